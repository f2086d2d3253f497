package servo

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/aserranoh/librfs/testutils/inject"
)

func TestInit(t *testing.T) {
	var gotFreq float64
	fake := &inject.PWM{}
	fake.SetFrequencyFunc = func(ctx context.Context, freqHz float64) error {
		gotFreq = freqHz
		return nil
	}

	s := New(fake)
	test.That(t, s.Init(context.Background()), test.ShouldBeNil)
	test.That(t, gotFreq, test.ShouldEqual, 50.0)
}

func TestSetAngle(t *testing.T) {
	ctx := context.Background()

	var gotDuty float64
	calls := 0
	fake := &inject.PWM{}
	fake.SetDutyCycleFunc = func(ctx context.Context, dutyCycle float64) error {
		gotDuty = dutyCycle
		calls++
		return nil
	}

	s := New(fake)

	// Zero angle sits at the calibration offset.
	test.That(t, s.SetAngle(ctx, 0), test.ShouldBeNil)
	test.That(t, gotDuty, test.ShouldEqual, DefaultOffset)

	test.That(t, s.SetAngle(ctx, 90), test.ShouldBeNil)
	test.That(t, gotDuty, test.ShouldAlmostEqual, DefaultOffset+DefaultHalfAngleDutyCycle)

	test.That(t, s.SetAngle(ctx, -90), test.ShouldBeNil)
	test.That(t, gotDuty, test.ShouldAlmostEqual, DefaultOffset-DefaultHalfAngleDutyCycle)

	// Out-of-range angles are rejected before the PWM is touched.
	before := calls
	test.That(t, s.SetAngle(ctx, 91), test.ShouldNotBeNil)
	test.That(t, s.SetAngle(ctx, -91), test.ShouldNotBeNil)
	test.That(t, calls, test.ShouldEqual, before)
}

func TestSetAngleCalibration(t *testing.T) {
	ctx := context.Background()

	var gotDuty float64
	fake := &inject.PWM{}
	fake.SetDutyCycleFunc = func(ctx context.Context, dutyCycle float64) error {
		gotDuty = dutyCycle
		return nil
	}

	s := NewWithCalibration(fake, 0.05, 0.1)
	test.That(t, s.SetAngle(ctx, 45), test.ShouldBeNil)
	test.That(t, gotDuty, test.ShouldAlmostEqual, 0.125)
}
