// Package i2c offers register-oriented I2C buses for Linux systems.
package i2c

import "context"

// Bus represents a shareable I2C bus.
type Bus interface {
	// OpenHandle returns a handle to the device at addr. The handle MUST
	// be closed when done; you cannot have two open for the same addr.
	OpenHandle(addr byte) (Handle, error)
}

// Handle is similar to an io handle bound to one device address. It MUST
// be closed to release the bus.
type Handle interface {
	ReadByteData(ctx context.Context, register byte) (byte, error)
	WriteByteData(ctx context.Context, register, data byte) error

	ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error)
	WriteBlockData(ctx context.Context, register byte, data []byte) error

	// Close closes the handle and releases the lock on the bus.
	Close() error
}
