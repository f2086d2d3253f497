package inject

import (
	"context"

	"github.com/aserranoh/librfs/pwm"
)

// PWM is an injected PWM output.
type PWM struct {
	pwm.PWM
	SetFrequencyFunc func(ctx context.Context, freqHz float64) error
	SetDutyCycleFunc func(ctx context.Context, dutyCycle float64) error
}

// SetFrequency calls the injected SetFrequency or the real version.
func (p *PWM) SetFrequency(ctx context.Context, freqHz float64) error {
	if p.SetFrequencyFunc == nil {
		return p.PWM.SetFrequency(ctx, freqHz)
	}
	return p.SetFrequencyFunc(ctx, freqHz)
}

// SetDutyCycle calls the injected SetDutyCycle or the real version.
func (p *PWM) SetDutyCycle(ctx context.Context, dutyCycle float64) error {
	if p.SetDutyCycleFunc == nil {
		return p.PWM.SetDutyCycle(ctx, dutyCycle)
	}
	return p.SetDutyCycleFunc(ctx, dutyCycle)
}
