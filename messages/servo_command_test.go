package messages

import (
	"testing"

	"go.viam.com/test"
)

func TestServoCommandRoundTrip(t *testing.T) {
	cmd := ServoCommand{ID: 3, AngleDeg: -42.5}

	data, err := cmd.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(data), test.ShouldEqual, ServoCommandSize)
	test.That(t, string(data[:5]), test.ShouldEqual, "SERVO")

	decoded, err := UnmarshalServoCommand(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, cmd)
}

func TestUnmarshalServoCommandRejections(t *testing.T) {
	valid, err := ServoCommand{ID: 1, AngleDeg: 10}.MarshalBinary()
	test.That(t, err, test.ShouldBeNil)

	// Wrong size, even by one byte in either direction.
	_, err = UnmarshalServoCommand(valid[:ServoCommandSize-1])
	test.That(t, err, test.ShouldNotBeNil)
	_, err = UnmarshalServoCommand(append(valid, 0))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = UnmarshalServoCommand(nil)
	test.That(t, err, test.ShouldNotBeNil)

	// Wrong tag.
	bad := append([]byte{}, valid...)
	bad[0] = 'X'
	_, err = UnmarshalServoCommand(bad)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestServoCommandString(t *testing.T) {
	cmd := ServoCommand{ID: 2, AngleDeg: 15}
	test.That(t, cmd.String(), test.ShouldEqual, "SERVO(id=2, angle=15.000000)")
}
