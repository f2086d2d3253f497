// Package pca9685 implements a register-level driver for the NXP PCA9685
// 16-channel, 12-bit PWM controller, the chip behind most hobby servo
// HATs. The datasheet is at
// https://www.nxp.com/docs/en/data-sheet/PCA9685.pdf
//
// The driver owns exclusive access to one chip on an I2C bus. After Open,
// chip-wide settings (PWM frequency, sleep/restart, sub-addresses, output
// modes) are configured here, while individual outputs are driven through
// PWMChannel handles obtained from PWM.
//
// There is no internal locking: a PCA9685 assumes exclusive ownership of
// its bus address between Open and Close. If several devices share the
// same physical bus, the caller must serialize the transactions.
package pca9685

import (
	"context"
	"math"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/aserranoh/librfs/i2c"
)

// AllChannels addresses every PWM channel at once. The value is chosen so
// that the per-channel register arithmetic lands on the chip's ALL_LED
// broadcast registers: 61*4 + 6 = 250.
const AllChannels = 61

// InternalClockFrequency is the frequency in hertz of the chip's built-in
// oscillator, used whenever no external clock is wired up.
const InternalClockFrequency = 25e6

// ClockMode designates the clock source the chip is running on.
type ClockMode int

const (
	// ClockInternal means the chip uses its internal 25 MHz oscillator.
	ClockInternal ClockMode = iota
	// ClockExternal means the chip uses the EXTCLK pin.
	ClockExternal
)

// OutputChange designates the bus event on which the chip latches new PWM
// settings into its outputs.
type OutputChange int

const (
	// OutputChangeOnStop updates the outputs on the I2C STOP condition.
	OutputChangeOnStop OutputChange = iota
	// OutputChangeOnAck updates the outputs on the I2C ACK condition.
	OutputChangeOnAck
)

// OutputDisabledMode designates the state of the outputs while they are
// disabled through the OE pin. The values match the chip's OUTNE field.
type OutputDisabledMode int

const (
	// OutputDisabledLow drives the outputs low.
	OutputDisabledLow OutputDisabledMode = 0
	// OutputDisabledDriver drives the outputs high when an external
	// driver is in use, high-impedance otherwise.
	OutputDisabledDriver OutputDisabledMode = 1
	// OutputDisabledHighImpedance leaves the outputs high-impedance.
	OutputDisabledHighImpedance OutputDisabledMode = 2
)

// OnOffTimes is the decoded on/off configuration of one PWM channel.
type OnOffTimes struct {
	// On is the position of the rising edge within the cycle, between 0.0
	// (start of the cycle) and 1.0 (end of the cycle).
	On float64
	// Off is the position of the falling edge within the cycle.
	Off float64
	// AlwaysOn reports whether the channel is latched fully on.
	AlwaysOn bool
	// AlwaysOff reports whether the channel is latched fully off. It
	// takes precedence over AlwaysOn on the chip.
	AlwaysOff bool
}

const (
	mode1Register    = 0
	mode2Register    = 1
	subAdr1Register  = 2
	subAdr2Register  = 3
	subAdr3Register  = 4
	allCallRegister  = 5
	prescaleRegister = 254

	mode1RestartMask       = 0x80
	mode1ExtClockMask      = 0x40
	mode1AutoIncrementMask = 0x20
	mode1SleepMask         = 0x10
	mode1Sub1Mask          = 0x08
	mode1Sub2Mask          = 0x04
	mode1Sub3Mask          = 0x02
	mode1AllCallMask       = 0x01

	mode2InvertMask       = 0x10
	mode2OutputChangeMask = 0x08
	mode2ExtDriverMask    = 0x04
	mode2OutNEMask        = 0x03

	ledFullOnMask  = 0x10
	ledFullOffMask = 0x10

	channelCount           = 16
	numRegistersPerChannel = 4
	channelRegistersOffset = 6
	counterTicks           = 4096
	minPrescale            = 3
	maxPrescale            = 255

	oscillatorStabilizationDelay = 500 * time.Microsecond
)

// PCA9685 is the driver for one chip. The zero value is not usable; use
// New, then Open before any other call.
type PCA9685 struct {
	logger golog.Logger
	handle i2c.Handle
	closed bool
}

// New returns a driver with no device attached yet.
func New(logger golog.Logger) *PCA9685 {
	return &PCA9685{logger: logger}
}

// Open acquires the device at address on the given bus and enables the
// chip's register auto-increment mode, which the multi-byte channel
// transfers rely on. If auto-increment cannot be enabled the bus handle
// is released again and Open fails as a whole.
func (d *PCA9685) Open(ctx context.Context, bus i2c.Bus, address byte) error {
	handle, err := bus.OpenHandle(address)
	if err != nil {
		return err
	}
	d.handle = handle
	d.closed = false

	if err := d.setAutoIncrement(ctx, true); err != nil {
		d.handle = nil
		return multierr.Combine(err, handle.Close())
	}
	d.logger.Debugf("opened PCA9685 at address %#x", address)
	return nil
}

// Close forces every channel to always-off and releases the bus handle.
// Forcing the outputs off first guarantees no channel is left holding a
// stale duty cycle once this process lets go of the bus.
func (d *PCA9685) Close(ctx context.Context) error {
	if d.handle == nil {
		return ErrNotOpen
	}
	offErr := d.SetAlwaysOff(ctx, AllChannels, true)
	closeErr := d.handle.Close()
	d.handle = nil
	d.closed = true
	d.logger.Debug("closed PCA9685")
	return multierr.Combine(offErr, closeErr)
}

// PWM returns a handle driving a single channel, from 0 to 15, or every
// channel at once for AllChannels. The handle borrows this driver: once
// the driver is closed, the handle fails with ErrDeviceGone.
func (d *PCA9685) PWM(channel int) (*PWMChannel, error) {
	if !channelExists(channel) {
		return nil, newInvalidChannelError(channel)
	}
	return &PWMChannel{controller: d, channel: channel}, nil
}

// SetFrequency sets the PWM frequency of all channels, assuming the chip
// runs on its internal oscillator.
func (d *PCA9685) SetFrequency(ctx context.Context, freqHz float64) error {
	return d.SetFrequencyWithClock(ctx, freqHz, InternalClockFrequency)
}

// SetFrequencyWithClock sets the PWM frequency of all channels given the
// frequency of the clock the chip actually runs on. The chip's prescaler
// limits the usable range to roughly 24 Hz through 1526 Hz at 25 MHz.
//
// The prescale register only latches while the oscillator is stopped, so
// the chip is put to sleep for the write and restarted afterwards.
func (d *PCA9685) SetFrequencyWithClock(ctx context.Context, freqHz, clockFreqHz float64) error {
	if freqHz <= 0 {
		return errors.Errorf("pca9685: frequency must be positive, got %f", freqHz)
	}
	if clockFreqHz < 0 {
		return errors.Errorf("pca9685: clock frequency cannot be negative, got %f", clockFreqHz)
	}
	prescale := int(math.Round(clockFreqHz/(counterTicks*freqHz))) - 1
	if prescale < minPrescale || prescale > maxPrescale {
		return errors.Errorf("pca9685: frequency %f Hz needs prescale %d, outside the chip's range [%d, %d]",
			freqHz, prescale, minPrescale, maxPrescale)
	}

	if err := d.Sleep(ctx); err != nil {
		return err
	}
	if err := d.writeRegister(ctx, prescaleRegister, byte(prescale)); err != nil {
		return err
	}
	_, err := d.Restart(ctx)
	return err
}

// Frequency returns the PWM frequency of all channels, assuming the chip
// runs on its internal oscillator.
func (d *PCA9685) Frequency(ctx context.Context) (float64, error) {
	return d.FrequencyWithClock(ctx, InternalClockFrequency)
}

// FrequencyWithClock returns the PWM frequency of all channels given the
// frequency of the clock the chip actually runs on.
func (d *PCA9685) FrequencyWithClock(ctx context.Context, clockFreqHz float64) (float64, error) {
	if clockFreqHz < 0 {
		return 0, errors.Errorf("pca9685: clock frequency cannot be negative, got %f", clockFreqHz)
	}
	prescale, err := d.readRegister(ctx, prescaleRegister)
	if err != nil {
		return 0, err
	}
	return clockFreqHz / ((float64(prescale) + 1) * counterTicks), nil
}

// Sleep stops the chip's oscillator, freezing all outputs.
func (d *PCA9685) Sleep(ctx context.Context) error {
	return d.setBit(ctx, mode1Register, mode1SleepMask, true)
}

// Asleep reports whether the chip's oscillator is stopped.
func (d *PCA9685) Asleep(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1SleepMask)
}

// NeedsRestart reports whether the chip was put to sleep while channels
// were still being driven, in which case Restart is needed to resume the
// output sequence.
func (d *PCA9685) NeedsRestart(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1RestartMask)
}

// Restart wakes the chip from sleep, waits for the oscillator to
// stabilize and, if the chip paused active channels when it went to
// sleep, resumes the output sequence. It reports whether such a resume
// was needed.
func (d *PCA9685) Restart(ctx context.Context) (bool, error) {
	needed, err := d.NeedsRestart(ctx)
	if err != nil {
		return false, err
	}

	if err := d.setBit(ctx, mode1Register, mode1SleepMask, false); err != nil {
		return false, err
	}
	// The oscillator needs at least 500us to stabilize after sleep.
	if !goutils.SelectContextOrWait(ctx, oscillatorStabilizationDelay) {
		return false, ctx.Err()
	}

	if needed {
		if err := d.setBit(ctx, mode1Register, mode1RestartMask, true); err != nil {
			return false, err
		}
	}
	return needed, nil
}

// SetOnOffTimes programs the rising and falling edge of one channel (or
// of every channel, for AllChannels). onTime and offTime are positions
// within the signal period, from 0.0 at the start of the period to 1.0 at
// the end. Each is quantized to one of the chip's 4096 ticks; the two may
// not quantize to the same tick, because the register pair cannot encode
// a degenerate pulse that way.
//
// The four bytes are issued as a single block write, so the update is
// atomic at the bus-transaction level.
func (d *PCA9685) SetOnOffTimes(ctx context.Context, channel int, onTime, offTime float64) error {
	if !channelExists(channel) {
		return newInvalidChannelError(channel)
	}
	if onTime < 0 || onTime > 1 {
		return newFractionRangeError("on time", onTime)
	}
	if offTime < 0 || offTime > 1 {
		return newFractionRangeError("off time", offTime)
	}

	onTicks := quantizeTicks(onTime)
	offTicks := quantizeTicks(offTime)
	if onTicks == offTicks {
		return errors.Errorf("pca9685: on time and off time quantize to the same tick (%d)", onTicks)
	}

	data := []byte{
		byte(onTicks),
		byte(onTicks>>8) & 0x0f,
		byte(offTicks),
		byte(offTicks>>8) & 0x0f,
	}
	return d.writeBlock(ctx, channelRegister(channel), data)
}

// OnOffTimes reads back the on/off configuration of one channel.
func (d *PCA9685) OnOffTimes(ctx context.Context, channel int) (OnOffTimes, error) {
	if !channelExists(channel) {
		return OnOffTimes{}, newInvalidChannelError(channel)
	}
	data, err := d.readBlock(ctx, channelRegister(channel), numRegistersPerChannel)
	if err != nil {
		return OnOffTimes{}, err
	}

	onTicks := uint16(data[1]&0x0f)<<8 | uint16(data[0])
	offTicks := uint16(data[3]&0x0f)<<8 | uint16(data[2])
	return OnOffTimes{
		On:        float64(onTicks) / counterTicks,
		Off:       float64(offTicks) / counterTicks,
		AlwaysOn:  data[1]&ledFullOnMask != 0,
		AlwaysOff: data[3]&ledFullOffMask != 0,
	}, nil
}

// SetAlwaysOn latches a channel (or every channel, for AllChannels) fully
// on, independent of its stored on/off times.
func (d *PCA9685) SetAlwaysOn(ctx context.Context, channel int, enabled bool) error {
	if !channelExists(channel) {
		return newInvalidChannelError(channel)
	}
	return d.setBit(ctx, channelRegister(channel)+1, ledFullOnMask, enabled)
}

// SetAlwaysOff latches a channel (or every channel, for AllChannels)
// fully off, independent of its stored on/off times.
func (d *PCA9685) SetAlwaysOff(ctx context.Context, channel int, enabled bool) error {
	if !channelExists(channel) {
		return newInvalidChannelError(channel)
	}
	return d.setBit(ctx, channelRegister(channel)+3, ledFullOffMask, enabled)
}

// ClockMode returns the clock source the chip is running on. There is no
// setter: the EXTCLK bit is sticky and only a power cycle clears it.
func (d *PCA9685) ClockMode(ctx context.Context) (ClockMode, error) {
	external, err := d.getBit(ctx, mode1Register, mode1ExtClockMask)
	if err != nil {
		return ClockInternal, err
	}
	if external {
		return ClockExternal, nil
	}
	return ClockInternal, nil
}

// ExternalDriver reports whether the outputs are configured as totem pole
// for an external driver rather than open-drain.
func (d *PCA9685) ExternalDriver(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode2Register, mode2ExtDriverMask)
}

// SetExternalDriver configures the outputs as totem pole for an external
// driver rather than open-drain.
func (d *PCA9685) SetExternalDriver(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode2Register, mode2ExtDriverMask, enabled)
}

// OutputInverted reports whether the output logic state is inverted.
func (d *PCA9685) OutputInverted(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode2Register, mode2InvertMask)
}

// SetOutputInverted sets whether the output logic state is inverted.
func (d *PCA9685) SetOutputInverted(ctx context.Context, inverted bool) error {
	return d.setBit(ctx, mode2Register, mode2InvertMask, inverted)
}

// OutputChange returns the bus event on which the chip latches new PWM
// settings into its outputs.
func (d *PCA9685) OutputChange(ctx context.Context) (OutputChange, error) {
	onAck, err := d.getBit(ctx, mode2Register, mode2OutputChangeMask)
	if err != nil {
		return OutputChangeOnStop, err
	}
	if onAck {
		return OutputChangeOnAck, nil
	}
	return OutputChangeOnStop, nil
}

// SetOutputChange sets the bus event on which the chip latches new PWM
// settings into its outputs.
func (d *PCA9685) SetOutputChange(ctx context.Context, value OutputChange) error {
	return d.setBit(ctx, mode2Register, mode2OutputChangeMask, value == OutputChangeOnAck)
}

// OutputDisabledMode returns the state the outputs take while disabled
// through the OE pin.
func (d *PCA9685) OutputDisabledMode(ctx context.Context) (OutputDisabledMode, error) {
	value, err := d.readRegister(ctx, mode2Register)
	if err != nil {
		return OutputDisabledLow, err
	}
	switch value & mode2OutNEMask {
	case 0:
		return OutputDisabledLow, nil
	case 1:
		return OutputDisabledDriver, nil
	default:
		return OutputDisabledHighImpedance, nil
	}
}

// SetOutputDisabledMode sets the state the outputs take while disabled
// through the OE pin.
func (d *PCA9685) SetOutputDisabledMode(ctx context.Context, value OutputDisabledMode) error {
	return d.setBits(ctx, mode2Register, mode2OutNEMask, byte(value))
}

// SubAddress1 returns the first programmable sub-address, an extra I2C
// address the chip answers to for group commands. It is 0xE2 at power-up
// and disabled until SetSubAddress1Enabled turns it on.
func (d *PCA9685) SubAddress1(ctx context.Context) (byte, error) {
	return d.readRegister(ctx, subAdr1Register)
}

// SetSubAddress1 sets the first programmable sub-address.
func (d *PCA9685) SetSubAddress1(ctx context.Context, address byte) error {
	return d.writeRegister(ctx, subAdr1Register, address&0xfe)
}

// SubAddress1Enabled reports whether the chip answers to sub-address 1.
func (d *PCA9685) SubAddress1Enabled(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1Sub1Mask)
}

// SetSubAddress1Enabled sets whether the chip answers to sub-address 1.
func (d *PCA9685) SetSubAddress1Enabled(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode1Register, mode1Sub1Mask, enabled)
}

// SubAddress2 returns the second programmable sub-address. It is 0xE4 at
// power-up and disabled until SetSubAddress2Enabled turns it on.
func (d *PCA9685) SubAddress2(ctx context.Context) (byte, error) {
	return d.readRegister(ctx, subAdr2Register)
}

// SetSubAddress2 sets the second programmable sub-address.
func (d *PCA9685) SetSubAddress2(ctx context.Context, address byte) error {
	return d.writeRegister(ctx, subAdr2Register, address&0xfe)
}

// SubAddress2Enabled reports whether the chip answers to sub-address 2.
func (d *PCA9685) SubAddress2Enabled(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1Sub2Mask)
}

// SetSubAddress2Enabled sets whether the chip answers to sub-address 2.
func (d *PCA9685) SetSubAddress2Enabled(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode1Register, mode1Sub2Mask, enabled)
}

// SubAddress3 returns the third programmable sub-address. It is 0xE8 at
// power-up and disabled until SetSubAddress3Enabled turns it on.
func (d *PCA9685) SubAddress3(ctx context.Context) (byte, error) {
	return d.readRegister(ctx, subAdr3Register)
}

// SetSubAddress3 sets the third programmable sub-address.
func (d *PCA9685) SetSubAddress3(ctx context.Context, address byte) error {
	return d.writeRegister(ctx, subAdr3Register, address&0xfe)
}

// SubAddress3Enabled reports whether the chip answers to sub-address 3.
func (d *PCA9685) SubAddress3Enabled(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1Sub3Mask)
}

// SetSubAddress3Enabled sets whether the chip answers to sub-address 3.
func (d *PCA9685) SetSubAddress3Enabled(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode1Register, mode1Sub3Mask, enabled)
}

// AllCallAddress returns the ALL_CALL address, an I2C address shared by
// every PCA9685 on the bus. It is 0xE0 and enabled at power-up.
func (d *PCA9685) AllCallAddress(ctx context.Context) (byte, error) {
	return d.readRegister(ctx, allCallRegister)
}

// SetAllCallAddress sets the ALL_CALL address.
func (d *PCA9685) SetAllCallAddress(ctx context.Context, address byte) error {
	return d.writeRegister(ctx, allCallRegister, address&0xfe)
}

// AllCallAddressEnabled reports whether the chip answers to the ALL_CALL
// address.
func (d *PCA9685) AllCallAddressEnabled(ctx context.Context) (bool, error) {
	return d.getBit(ctx, mode1Register, mode1AllCallMask)
}

// SetAllCallAddressEnabled sets whether the chip answers to the ALL_CALL
// address.
func (d *PCA9685) SetAllCallAddressEnabled(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode1Register, mode1AllCallMask, enabled)
}

func (d *PCA9685) setAutoIncrement(ctx context.Context, enabled bool) error {
	return d.setBit(ctx, mode1Register, mode1AutoIncrementMask, enabled)
}

func channelExists(channel int) bool {
	return (channel >= 0 && channel < channelCount) || channel == AllChannels
}

func channelRegister(channel int) byte {
	return byte(channel*numRegistersPerChannel + channelRegistersOffset)
}

func quantizeTicks(fraction float64) uint16 {
	ticks := uint16(fraction * counterTicks)
	if ticks > counterTicks-1 {
		ticks = counterTicks - 1
	}
	return ticks
}

func (d *PCA9685) readRegister(ctx context.Context, register byte) (byte, error) {
	if d.handle == nil {
		return 0, ErrNotOpen
	}
	return d.handle.ReadByteData(ctx, register)
}

func (d *PCA9685) writeRegister(ctx context.Context, register, value byte) error {
	if d.handle == nil {
		return ErrNotOpen
	}
	return d.handle.WriteByteData(ctx, register, value)
}

func (d *PCA9685) readBlock(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	if d.handle == nil {
		return nil, ErrNotOpen
	}
	return d.handle.ReadBlockData(ctx, register, numBytes)
}

func (d *PCA9685) writeBlock(ctx context.Context, register byte, data []byte) error {
	if d.handle == nil {
		return ErrNotOpen
	}
	return d.handle.WriteBlockData(ctx, register, data)
}

func (d *PCA9685) getBit(ctx context.Context, register, mask byte) (bool, error) {
	value, err := d.readRegister(ctx, register)
	if err != nil {
		return false, err
	}
	return value&mask != 0, nil
}

func (d *PCA9685) setBit(ctx context.Context, register, mask byte, value bool) error {
	current, err := d.readRegister(ctx, register)
	if err != nil {
		return err
	}
	if value {
		current |= mask
	} else {
		current &^= mask
	}
	return d.writeRegister(ctx, register, current)
}

func (d *PCA9685) setBits(ctx context.Context, register, mask, value byte) error {
	current, err := d.readRegister(ctx, register)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, register, current&^mask|value&mask)
}
