// Package messages holds the binary command records exchanged with the
// motion-control core.
package messages

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"
)

// servoCommandTag opens every encoded ServoCommand.
var servoCommandTag = []byte("SERVO")

// ServoCommandSize is the exact encoded size of a ServoCommand: the
// 5-byte tag, a 4-byte signed identifier and a 4-byte float angle.
const ServoCommandSize = 13

// ServoCommand asks for one servo (or the joint it actuates) to move to
// an absolute angle.
type ServoCommand struct {
	// ID identifies the servo or joint the command addresses.
	ID int32
	// AngleDeg is the requested angle in degrees.
	AngleDeg float32
}

// MarshalBinary encodes the command as the fixed 13-byte little-endian
// record.
func (c ServoCommand) MarshalBinary() ([]byte, error) {
	data := make([]byte, 0, ServoCommandSize)
	data = append(data, servoCommandTag...)
	data = binary.LittleEndian.AppendUint32(data, uint32(c.ID))
	data = binary.LittleEndian.AppendUint32(data, math.Float32bits(c.AngleDeg))
	return data, nil
}

// UnmarshalServoCommand decodes a fixed 13-byte record. A record is
// accepted only if its size and tag both match exactly; anything else is
// a validation error, never a partial parse.
func UnmarshalServoCommand(data []byte) (ServoCommand, error) {
	if len(data) != ServoCommandSize {
		return ServoCommand{}, errors.Errorf("servo command must be %d bytes, got %d", ServoCommandSize, len(data))
	}
	if !bytes.Equal(data[:len(servoCommandTag)], servoCommandTag) {
		return ServoCommand{}, errors.Errorf("servo command has wrong tag %q", data[:len(servoCommandTag)])
	}
	return ServoCommand{
		ID:       int32(binary.LittleEndian.Uint32(data[5:9])),
		AngleDeg: math.Float32frombits(binary.LittleEndian.Uint32(data[9:13])),
	}, nil
}

func (c ServoCommand) String() string {
	return fmt.Sprintf("SERVO(id=%d, angle=%f)", c.ID, c.AngleDeg)
}
