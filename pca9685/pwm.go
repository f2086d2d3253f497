package pca9685

import (
	"context"

	"github.com/aserranoh/librfs/pwm"
)

// PWMChannel drives a single output of the chip (or every output at once,
// when bound to AllChannels). It implements pwm.PWM by forwarding to the
// driver it was created from.
//
// The reference back to the driver is non-owning: a handle does not keep
// the device open, and using a handle after the driver has been closed
// fails with ErrDeviceGone instead of touching the bus.
type PWMChannel struct {
	controller *PCA9685
	channel    int
	phase      float64
	dutyCycle  float64
}

var _ pwm.PWM = (*PWMChannel)(nil)

// SetDutyCycle sets the fraction of each period the output is high. The
// pulse starts at the channel's phase offset within the period.
func (c *PWMChannel) SetDutyCycle(ctx context.Context, dutyCycle float64) error {
	c.dutyCycle = dutyCycle
	if c.controller == nil || c.controller.closed {
		return ErrDeviceGone
	}
	return c.controller.SetOnOffTimes(ctx, c.channel, c.phase, c.phase+dutyCycle)
}

// SetFrequency is a no-op: the PWM frequency is a chip-wide property,
// configured once through PCA9685.SetFrequency.
func (c *PWMChannel) SetFrequency(ctx context.Context, freqHz float64) error {
	return nil
}

// SetPhase moves the start of this channel's pulse within the period,
// between 0.0 and 1.0. Staggering phases across channels spreads out the
// current draw of the attached loads. The new phase takes effect on the
// next SetDutyCycle.
func (c *PWMChannel) SetPhase(ctx context.Context, phase float64) error {
	c.phase = phase
	return nil
}
