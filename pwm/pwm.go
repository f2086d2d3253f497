// Package pwm defines the capability contract for anything that can
// generate a PWM signal, such as one channel of a PCA9685 or a bare
// hardware timer pin.
package pwm

import "context"

// PWM is a single pulse-width-modulated output. Implementations are
// expected to be driven by exactly one owner at a time.
type PWM interface {
	// SetFrequency sets the frequency of the signal in hertz. On chips
	// where the frequency is shared by all channels this may be a no-op
	// at the channel level.
	SetFrequency(ctx context.Context, freqHz float64) error

	// SetDutyCycle sets the fraction of each period, between 0.0 and 1.0,
	// during which the output is driven high.
	SetDutyCycle(ctx context.Context, dutyCycle float64) error
}
