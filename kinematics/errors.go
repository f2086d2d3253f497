package kinematics

import "github.com/pkg/errors"

// ErrNoChainInformation is used when a chain description holds no joints.
var ErrNoChainInformation = errors.New("no chain information")

func newDOFMismatchError(expected, actual int) error {
	return errors.Errorf("chain has %d joints but got %d angles", expected, actual)
}
