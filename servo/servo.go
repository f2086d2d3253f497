// Package servo maps a bounded angular domain onto the duty-cycle
// sub-range a hobby servo understands and drives it over any pwm.PWM.
package servo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aserranoh/librfs/pwm"
)

const (
	// MinAngleDeg is the lowest angle a servo accepts.
	MinAngleDeg = -90.0
	// MaxAngleDeg is the highest angle a servo accepts.
	MaxAngleDeg = 90.0

	// RefreshFrequencyHz is the conventional hobby-servo refresh rate.
	RefreshFrequencyHz = 50.0

	// DefaultHalfAngleDutyCycle is the default duty-cycle span between
	// the zero position and either extreme: at 50 Hz, 0.025 of the 20 ms
	// period is the usual 0.5 ms swing.
	DefaultHalfAngleDutyCycle = 0.025
	// DefaultOffset is the default duty cycle of the zero position: at
	// 50 Hz, 0.075 of the 20 ms period is the usual 1.5 ms center pulse.
	DefaultOffset = 0.075
)

// Servo converts angles in degrees to duty cycles on the PWM output it
// owns. The calibration scalars are fixed at construction.
type Servo struct {
	pwm                pwm.PWM
	halfAngleDutyCycle float64
	offset             float64
}

// New returns a servo with the common hobby-servo calibration.
func New(p pwm.PWM) *Servo {
	return NewWithCalibration(p, DefaultHalfAngleDutyCycle, DefaultOffset)
}

// NewWithCalibration returns a servo whose pulse widths are tuned to a
// particular piece of hardware: halfAngleDutyCycle is the duty-cycle span
// from the zero position to either extreme, offset the duty cycle of the
// zero position.
func NewWithCalibration(p pwm.PWM, halfAngleDutyCycle, offset float64) *Servo {
	return &Servo{pwm: p, halfAngleDutyCycle: halfAngleDutyCycle, offset: offset}
}

// Init configures the 50 Hz refresh rate on the servo's output.
func (s *Servo) Init(ctx context.Context) error {
	return s.pwm.SetFrequency(ctx, RefreshFrequencyHz)
}

// SetAngle moves the servo to an absolute angle in degrees, between
// MinAngleDeg and MaxAngleDeg.
func (s *Servo) SetAngle(ctx context.Context, angleDeg float64) error {
	if angleDeg < MinAngleDeg || angleDeg > MaxAngleDeg {
		return errors.Errorf("servo: angle must be between %.0f and %.0f degrees, got %f",
			MinAngleDeg, MaxAngleDeg, angleDeg)
	}
	return s.pwm.SetDutyCycle(ctx, angleDeg/MaxAngleDeg*s.halfAngleDutyCycle+s.offset)
}
