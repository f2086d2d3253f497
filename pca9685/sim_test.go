package pca9685

import (
	"context"

	"github.com/aserranoh/librfs/i2c"
)

// simChip simulates the register file of a PCA9685 well enough to test
// the driver against: power-on defaults, ALL_LED broadcast writes, the
// restart-pending flag and the write-1-to-clear restart protocol.
type simChip struct {
	registers    [256]byte
	openAddr     byte
	handleClosed bool
	// transactions counts every bus transaction; validation-failure tests
	// assert it does not move.
	transactions int

	readErr  error
	writeErr error
}

func newSimChip() *simChip {
	c := &simChip{}
	c.registers[mode1Register] = mode1SleepMask | mode1AllCallMask
	c.registers[mode2Register] = mode2ExtDriverMask
	c.registers[subAdr1Register] = 0xe2
	c.registers[subAdr2Register] = 0xe4
	c.registers[subAdr3Register] = 0xe8
	c.registers[allCallRegister] = 0xe0
	c.registers[prescaleRegister] = 0x1e
	// Every output powers up latched fully off.
	for channel := 0; channel < channelCount; channel++ {
		c.registers[channelRegister(channel)+3] = ledFullOffMask
	}
	c.registers[channelRegister(AllChannels)+3] = ledFullOffMask
	return c
}

func (c *simChip) OpenHandle(addr byte) (i2c.Handle, error) {
	c.openAddr = addr
	c.handleClosed = false
	return c, nil
}

func (c *simChip) ReadByteData(ctx context.Context, register byte) (byte, error) {
	c.transactions++
	if c.readErr != nil {
		return 0, c.readErr
	}
	return c.registers[register], nil
}

func (c *simChip) WriteByteData(ctx context.Context, register, data byte) error {
	c.transactions++
	if c.writeErr != nil {
		return c.writeErr
	}
	c.storeByte(register, data)
	return nil
}

func (c *simChip) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	c.transactions++
	if c.readErr != nil {
		return nil, c.readErr
	}
	data := make([]byte, numBytes)
	copy(data, c.registers[register:int(register)+int(numBytes)])
	return data, nil
}

func (c *simChip) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	c.transactions++
	if c.writeErr != nil {
		return c.writeErr
	}
	for i, b := range data {
		c.storeByte(register+byte(i), b)
	}
	return nil
}

func (c *simChip) Close() error {
	c.handleClosed = true
	return nil
}

func (c *simChip) storeByte(register, data byte) {
	switch {
	case register == mode1Register:
		c.storeMode1(data)
	case register >= channelRegister(AllChannels) && register < channelRegister(AllChannels)+numRegistersPerChannel:
		// ALL_LED writes land on every channel's quadruplet.
		offset := register - channelRegister(AllChannels)
		for channel := 0; channel < channelCount; channel++ {
			c.registers[channelRegister(channel)+offset] = data
		}
		c.registers[register] = data
	default:
		c.registers[register] = data
	}
}

func (c *simChip) storeMode1(data byte) {
	old := c.registers[mode1Register]
	stored := data
	if data&mode1RestartMask != 0 {
		if old&mode1SleepMask == 0 {
			// Restart executes once the oscillator is running; the bit
			// reads back as 0 afterwards.
			stored &^= mode1RestartMask
		} else {
			// Ignored while asleep; a pending restart stays pending.
			stored = stored&^mode1RestartMask | old&mode1RestartMask
		}
	} else {
		// Writing 0 never clears a pending restart.
		stored |= old & mode1RestartMask
	}
	// Going to sleep while channels are still driven makes a restart
	// necessary to resume the output sequence.
	if stored&mode1SleepMask != 0 && old&mode1SleepMask == 0 && c.anyChannelActive() {
		stored |= mode1RestartMask
	}
	c.registers[mode1Register] = stored
}

func (c *simChip) anyChannelActive() bool {
	for channel := 0; channel < channelCount; channel++ {
		if c.registers[channelRegister(channel)+3]&ledFullOffMask == 0 {
			return true
		}
	}
	return false
}
