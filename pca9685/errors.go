package pca9685

import "github.com/pkg/errors"

var (
	// ErrNotOpen is returned when an operation needs an open bus handle
	// and the device was never opened or has been closed.
	ErrNotOpen = errors.New("pca9685: device not open")

	// ErrDeviceGone is returned by a PWM channel whose backing device has
	// been closed out from under it.
	ErrDeviceGone = errors.New("pca9685: device gone")
)

func newInvalidChannelError(channel int) error {
	return errors.Errorf("pca9685: channel must be 0-%d or AllChannels, got %d", channelCount-1, channel)
}

func newFractionRangeError(name string, value float64) error {
	return errors.Errorf("pca9685: %s must be between 0.0 and 1.0, got %f", name, value)
}
