// Package main aims a serial-chain linkage at a Cartesian target: it
// solves the chain's inverse kinematics and realizes the resulting joint
// angles on hobby servos driven by a PCA9685.
package main

import (
	"context"
	"flag"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/aserranoh/librfs/i2c"
	"github.com/aserranoh/librfs/kinematics"
	"github.com/aserranoh/librfs/pca9685"
	"github.com/aserranoh/librfs/servo"
	"github.com/aserranoh/librfs/utils"
)

var logger = golog.NewDevelopmentLogger("gazed")

func main() {
	goutils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) (err error) {
	flags := flag.NewFlagSet(args[0], flag.ContinueOnError)
	chainFile := flags.String("chain", "chain.json", "chain description file")
	device := flags.String("device", "/dev/i2c-1", "I2C bus device")
	address := flags.Uint("address", 0x40, "I2C address of the PCA9685")
	channelList := flags.String("channels", "0,1,2", "PWM channel per joint, base first")
	targetSpec := flags.String("target", "", "target position as x,y,z")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	chain, err := kinematics.ParseChainJSONFile(*chainFile)
	if err != nil {
		return err
	}
	channels, err := parseChannels(*channelList)
	if err != nil {
		return err
	}
	if len(channels) != chain.DOF() {
		return errors.Errorf("chain has %d joints but %d channels were given", chain.DOF(), len(channels))
	}
	target, err := parseTarget(*targetSpec)
	if err != nil {
		return err
	}

	bus, err := i2c.NewLinuxBus(*device)
	if err != nil {
		return err
	}
	controller := pca9685.New(logger)
	if err := controller.Open(ctx, bus, byte(*address)); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, controller.Close(ctx))
	}()

	// The refresh rate is a chip-wide property, set once on the
	// controller rather than per channel.
	if err := controller.SetFrequency(ctx, servo.RefreshFrequencyHz); err != nil {
		return err
	}
	servos := make([]*servo.Servo, 0, len(channels))
	for _, channel := range channels {
		pwmChannel, err := controller.PWM(channel)
		if err != nil {
			return err
		}
		servos = append(servos, servo.New(pwmChannel))
	}

	logger.Infow("aiming at target", "x", target.X, "y", target.Y, "z", target.Z)
	chain.InverseKinematics(target, 0, 0)
	residual := chain.ForwardKinematics().Sub(target).Norm()
	logger.Infow("solved", "residual", residual)

	for i, angle := range chain.Angles() {
		angleDeg := utils.Clamp(utils.RadToDeg(angle), servo.MinAngleDeg, servo.MaxAngleDeg)
		if err := servos[i].SetAngle(ctx, angleDeg); err != nil {
			return err
		}
		logger.Debugw("joint set", "joint", i, "angle_deg", angleDeg)
	}
	return nil
}

func parseChannels(spec string) ([]int, error) {
	var channels []int
	for _, field := range strings.Split(spec, ",") {
		channel, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, errors.Wrapf(err, "bad channel list %q", spec)
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

func parseTarget(spec string) (r3.Vector, error) {
	fields := strings.Split(spec, ",")
	if len(fields) != 3 {
		return r3.Vector{}, errors.Errorf("target must be x,y,z, got %q", spec)
	}
	var values [3]float64
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "bad target %q", spec)
		}
		values[i] = value
	}
	return r3.Vector{X: values[0], Y: values[1], Z: values[2]}, nil
}
