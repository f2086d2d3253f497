package i2c

import (
	"context"
	"strconv"
	"strings"

	goi2c "github.com/d2r2/go-i2c"
	"github.com/pkg/errors"
)

type linuxBus struct {
	number int
	path   string
}

// NewLinuxBus returns the I2C bus behind a Linux character device such as
// "/dev/i2c-1".
func NewLinuxBus(path string) (Bus, error) {
	idx := strings.LastIndex(path, "-")
	if idx < 0 {
		return nil, errors.Errorf("cannot find bus number in I2C device path %q", path)
	}
	number, err := strconv.Atoi(path[idx+1:])
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse bus number in I2C device path %q", path)
	}
	return &linuxBus{number: number, path: path}, nil
}

// This lets the linuxBus type implement the Bus interface.
func (bus *linuxBus) OpenHandle(addr byte) (Handle, error) {
	dev, err := goi2c.NewI2C(addr, bus.number)
	if err != nil {
		return nil, err
	}
	return &linuxHandle{dev: dev}, nil
}

// We want to use the go-i2c device struct, but we also want it to conform
// to the Handle interface, and we cannot define new functions on non-local
// types. So, we wrap it in a local struct.
type linuxHandle struct {
	dev *goi2c.I2C
}

func (h *linuxHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	return h.dev.ReadRegU8(register)
}

func (h *linuxHandle) WriteByteData(ctx context.Context, register, data byte) error {
	return h.dev.WriteRegU8(register, data)
}

func (h *linuxHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	results, count, err := h.dev.ReadRegBytes(register, int(numBytes))
	if err != nil {
		return nil, err
	}
	if count != int(numBytes) {
		return nil, errors.Errorf("not enough bytes read from I2C register %d, address %d on bus %d: needed %d, got %d",
			register, h.dev.GetAddr(), h.dev.GetBus(), numBytes, count)
	}
	return results, nil
}

func (h *linuxHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	// The underlying library has no dedicated "write many bytes to a
	// register" call; on register-addressed devices this is equivalent to
	// writing the register address followed by the payload.
	rawData := make([]byte, len(data)+1)
	rawData[0] = register
	copy(rawData[1:], data)
	bytesWritten, err := h.dev.WriteBytes(rawData)
	if err != nil {
		return err
	}
	if bytesWritten != len(rawData) {
		return errors.Errorf("not all bytes written to I2C register %d, address %d on bus %d: had %d, wrote %d",
			register, h.dev.GetAddr(), h.dev.GetBus(), len(data), bytesWritten-1)
	}
	return nil
}

func (h *linuxHandle) Close() error {
	return h.dev.Close()
}
