package adapter

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"
	"github.com/mklimuk/vdec"
)

const VendorID = 0x04D8
const ProductID = 0x00DD

const (
	cmdStatus        = 0x10
	cmdWriteData     = 0x90
	cmdReadData      = 0x91
	cmdGetReadData   = 0x40
	cmdSetGPIOValues = 0x50
	cmdGetGPIOValues = 0x51
	cmdSetSRAM       = 0xB1
	cmdGetSRAM       = 0xB0
)

const reportSize = 64

var ErrCommandUnsupported = errors.New("unsupported command")
var ErrCommandFailed = errors.New("command failed")

var _ vdec.I2CBus = &MCP2221{}

// MCP2221 is the Microchip USB-to-I2C/GPIO bridge. It serves as a bench
// transport: the decoder register bus over I2C and up to four control or
// detect lines on GP0..GP3.
type MCP2221 struct {
	mx           sync.Mutex
	request      []byte
	response     []byte
	responseWait time.Duration
	index        int
	logger       *slog.Logger
}

type MCP2221Status struct {
	I2CDataBufferCounter   int    `yaml:"i2c_data_buffer_counter"`
	I2CSpeedDivider        int    `yaml:"i2c_speed_divider"`
	I2CTimeout             int    `yaml:"i2c_timeout"`
	CurrentAddress         string `yaml:"current_address"`
	LastWriteRequestedSize uint16 `yaml:"last_write_requested_size"`
	LastWriteSentSize      uint16 `yaml:"last_write_sent_size"`
	ReadPending            int    `yaml:"read_pending"`
}

type GPIOMode byte

const (
	GPIOModeOut         GPIOMode = 0b00000000
	GPIOModeIn          GPIOMode = 0b00001000
	GPIOModeNoOperation GPIOMode = 0xEF
)

func (m GPIOMode) String() string {
	switch m {
	case GPIOModeIn:
		return "INPUT"
	case GPIOModeOut:
		return "OUTPUT"
	default:
		return "NOOP"
	}
}

type MCP2221GPIOValues struct {
	Modes  [4]GPIOMode `yaml:"modes"`
	Values [4]byte     `yaml:"values"`
}

type MCP2221Option func(*MCP2221)

// WithDeviceIndex selects one adapter when several are plugged in.
func WithDeviceIndex(index int) MCP2221Option {
	return func(d *MCP2221) {
		d.index = index
	}
}

func WithResponseWait(wait time.Duration) MCP2221Option {
	return func(d *MCP2221) {
		d.responseWait = wait
	}
}

func WithLogger(logger *slog.Logger) MCP2221Option {
	return func(d *MCP2221) {
		d.logger = logger
	}
}

func NewMCP2221(opts ...MCP2221Option) *MCP2221 {
	d := &MCP2221{
		request:      make([]byte, reportSize),
		response:     make([]byte, reportSize),
		responseWait: 50 * time.Millisecond,
		index:        -1,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *MCP2221) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	encodeWrite(d.request, address, buffer)
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("write to %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		d.logger.Debug("mcp2221: adapter busy", "address", address)
		return vdec.ErrBusBusy
	}
	return nil
}

func (d *MCP2221) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	encodeRead(d.request, address, len(buffer))
	err := d.send(ctx)
	if err != nil {
		return fmt.Errorf("bus read from %x failed: %w", address, err)
	}
	if d.response[1] == 0x01 {
		return vdec.ErrBusBusy
	}
	d.resetBuffers()
	d.request[0] = cmdGetReadData
	err = d.send(ctx)
	if err != nil {
		return fmt.Errorf("error getting read data from adapter: %w", err)
	}
	return decodeReadData(d.response, buffer)
}

// SetGPIO drives one GP pin as an output at the given value.
func (d *MCP2221) SetGPIO(ctx context.Context, pin int, value bool) error {
	if pin < 0 || pin > 3 {
		return fmt.Errorf("mcp2221: invalid pin GP%d", pin)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	encodeSetGPIO(d.request, pin, &value, GPIOModeOut)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set GPIO values command write failed: %w", err)
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

// SetGPIODirection switches one GP pin between input and output without
// touching its output latch.
func (d *MCP2221) SetGPIODirection(ctx context.Context, pin int, mode GPIOMode) error {
	if pin < 0 || pin > 3 {
		return fmt.Errorf("mcp2221: invalid pin GP%d", pin)
	}
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	encodeSetGPIO(d.request, pin, nil, mode)
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set GPIO direction command write failed: %w", err)
	}
	if d.response[1] != 0x00 {
		return ErrCommandFailed
	}
	return nil
}

func (d *MCP2221) ReadGPIO(ctx context.Context) (MCP2221GPIOValues, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdGetGPIOValues
	var res MCP2221GPIOValues
	if err := d.send(ctx); err != nil {
		return res, fmt.Errorf("read GPIO values command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return res, ErrCommandFailed
	}
	return decodeGPIOValues(d.response), nil
}

// SetGPIOFunction assigns GP pins to plain GPIO operation in SRAM so they
// can be used as lines.
func (d *MCP2221) SetGPIOFunction(ctx context.Context, modes [4]GPIOMode) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdSetSRAM
	// alter GP designation
	d.request[7] = 0x80
	for i, m := range modes {
		d.request[8+i] = byte(m)
	}
	if err := d.send(ctx); err != nil {
		return fmt.Errorf("set GP parameters command write failed: %w", err)
	}
	if d.response[1] == 0x01 {
		return ErrCommandFailed
	}
	return nil
}

func (d *MCP2221) Status(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.resetBuffers()
	d.request[0] = cmdStatus
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) Release(ctx context.Context) error {
	d.mx.Lock()
	defer d.mx.Unlock()
	_, err := d.releaseBus(ctx)
	return err
}

func (d *MCP2221) ReleaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.releaseBus(ctx)
}

func (d *MCP2221) releaseBus(ctx context.Context) (*MCP2221Status, error) {
	d.resetBuffers()
	d.request[0] = cmdStatus
	// cancel current I2C transfer
	d.request[2] = 0x10
	err := d.send(ctx)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	return bufferToStatus(d.response), nil
}

func (d *MCP2221) open() (*hid.Device, error) {
	devs := hid.Enumerate(VendorID, ProductID)
	if len(devs) == 0 {
		return nil, fmt.Errorf("MCP2221 device not found")
	}
	if d.index < 0 {
		if len(devs) > 1 {
			return nil, fmt.Errorf("ambiguous device identification")
		}
		return devs[0].Open()
	}
	if d.index >= len(devs) {
		return nil, fmt.Errorf("no device with id %d", d.index)
	}
	return devs[d.index].Open()
}

func (d *MCP2221) send(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dev, err := d.open()
	if err != nil {
		return fmt.Errorf("error opening device: %w", err)
	}
	defer func() {
		_ = dev.Close()
	}()
	d.logger.Debug("mcp2221: sending request", "dump", hex.EncodeToString(d.request[:8]))
	n, err := dev.Write(d.request)
	if err != nil {
		return fmt.Errorf("could not write request: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short write: %d", n)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d.responseWait):
	}
	n, err = dev.Read(d.response)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if n != reportSize {
		return fmt.Errorf("short read: %d", n)
	}
	d.logger.Debug("mcp2221: read response", "dump", hex.EncodeToString(d.response[:8]))
	return nil
}

func (d *MCP2221) resetBuffers() {
	resetBuffer(d.request)
	resetBuffer(d.response)
}

func resetBuffer(buf []byte) {
	for i := range buf {
		buf[i] = 0x00
	}
}

func encodeWrite(req []byte, address byte, buffer []byte) {
	req[0] = cmdWriteData
	binary.LittleEndian.PutUint16(req[1:3], uint16(len(buffer)))
	req[3] = address << 1
	copy(req[4:], buffer)
}

func encodeRead(req []byte, address byte, size int) {
	req[0] = cmdReadData
	binary.LittleEndian.PutUint16(req[1:3], uint16(size))
	req[3] = address<<1 + 1
}

func decodeReadData(resp []byte, buffer []byte) error {
	if resp[1] == 0x41 {
		return fmt.Errorf("error reading the I2C slave data from the I2C engine")
	}
	if resp[3] == 127 || int(resp[3]) != len(buffer) {
		return fmt.Errorf("invalid data size byte; expected %d, got %d", len(buffer), resp[3])
	}
	copy(buffer, resp[4:])
	return nil
}

// encodeSetGPIO fills a Set GPIO Output Values request for one pin. Each
// pin owns four bytes starting at 2+4*pin: alter output, output value,
// alter direction, direction.
func encodeSetGPIO(req []byte, pin int, value *bool, mode GPIOMode) {
	req[0] = cmdSetGPIOValues
	base := 2 + 4*pin
	if value != nil {
		req[base] = 0x01
		if *value {
			req[base+1] = 0x01
		}
	}
	req[base+2] = 0x01
	if mode == GPIOModeIn {
		req[base+3] = 0x01
	}
}

func decodeGPIOValues(resp []byte) MCP2221GPIOValues {
	var res MCP2221GPIOValues
	for i := 0; i < 4; i++ {
		res.Values[i] = resp[2+2*i]
		res.Modes[i] = GPIOModeNoOperation
		if dir := resp[3+2*i]; dir != byte(GPIOModeNoOperation) {
			res.Modes[i] = GPIOMode(dir << 3)
		}
	}
	return res
}

func bufferToStatus(buffer []byte) *MCP2221Status {
	/*
		9: Lower byte (16-bit value) of the requested I2C transfer length
		10: Higher byte (16-bit value) of the requested I2C transfer length
		11:	Lower byte (16-bit value) of the already transferred (through I2C) number of bytes
		12:	Higher byte (16-bit value) of the already transferred (through I2C) number of bytes
		13:	Internal I2C data buffer counter
		14: Current I2C communication speed divider value
		15: Current I2C timeout value
		16:	Lower byte (16-bit value) of the I2C address being used
		17:	Higher byte (16-bit value) of the I2C address being used
	*/
	status := &MCP2221Status{
		I2CDataBufferCounter: int(buffer[13]),
		I2CSpeedDivider:      int(buffer[14]),
		I2CTimeout:           int(buffer[15]),
		ReadPending:          int(buffer[25]),
		CurrentAddress:       hex.EncodeToString(buffer[16:18]),
	}
	status.LastWriteRequestedSize = binary.LittleEndian.Uint16(buffer[9:11])
	status.LastWriteSentSize = binary.LittleEndian.Uint16(buffer[11:13])
	return status
}
