package gpio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
)

type registry int

const DefaultMCP23017Address = 0x21

const (
	IODIR registry = iota
	IPOL
	GPINTEN
	DEFVAL
	INTCON
	IOCON
	GPPU
	INTF
	INTCAP
	GPIO
	OLAT
)

// Port selects one of the two 8-bit expander ports.
type Port int

const (
	PortA Port = iota
	PortB
)

func (p Port) String() string {
	if p == PortB {
		return "B"
	}
	return "A"
}

// register returns the register address for the given IOCON.BANK setting.
// With BANK=0 port registers are interleaved, with BANK=1 they are split
// into two blocks.
func register(bank int, reg registry, port Port) byte {
	if bank == 0 {
		return byte(reg)<<1 | byte(port)
	}
	return byte(port)<<4 | byte(reg)
}

// MCP23017 is a 16-bit I2C I/O expander. Boards without enough host pins
// route decoder reset/power-down and camera detect lines through it.
type MCP23017 struct {
	mx         sync.Mutex
	transport  vdec.I2CBus
	bank       int
	address    byte
	retryLimit int
}

type MCP23017Option func(*MCP23017)

func WithExpanderRetryLimit(limit int) MCP23017Option {
	return func(m *MCP23017) {
		m.retryLimit = limit
	}
}

// WithBank selects the IOCON.BANK register layout the expander runs with.
func WithBank(bank int) MCP23017Option {
	return func(m *MCP23017) {
		m.bank = bank
	}
}

func NewMCP23017(bus vdec.I2CBus, address byte, opts ...MCP23017Option) *MCP23017 {
	m := &MCP23017{retryLimit: 1, transport: bus, address: address}
	for _, opt := range opts {
		opt(m)
	}
	if m.retryLimit < 1 {
		m.retryLimit = 1
	}
	return m
}

func (m *MCP23017) readRegister(ctx context.Context, addr byte) (byte, error) {
	err := m.transport.WriteToAddr(ctx, m.address, []byte{addr})
	if err != nil {
		return 0x00, fmt.Errorf("could not set I/O register address: %w", err)
	}
	buf := make([]byte, 1)
	err = m.transport.ReadFromAddr(ctx, m.address, buf)
	if err != nil {
		return 0x00, fmt.Errorf("could not read gpio data: %w", err)
	}
	return buf[0], nil
}

func (m *MCP23017) read(ctx context.Context, reg registry, port Port) (byte, error) {
	addr := register(m.bank, reg, port)
	var err error
	var res byte
	for i := m.retryLimit; i > 0; i-- {
		res, err = m.readRegister(ctx, addr)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, vdec.ErrBusBusy) {
			return res, fmt.Errorf("mcp23017: could not read register %#02x: %w", addr, err)
		}
		// try to release the bus
		_ = m.transport.Release(ctx)
	}
	return res, fmt.Errorf("mcp23017: could not read register %#02x (retry limit reached): %w", addr, err)
}

func (m *MCP23017) write(ctx context.Context, reg registry, port Port, val byte) error {
	addr := register(m.bank, reg, port)
	var err error
	for i := m.retryLimit; i > 0; i-- {
		err = m.transport.WriteToAddr(ctx, m.address, []byte{addr, val})
		if err == nil {
			return nil
		}
		if !errors.Is(err, vdec.ErrBusBusy) {
			return fmt.Errorf("mcp23017: could not write register %#02x: %w", addr, err)
		}
		_ = m.transport.Release(ctx)
	}
	return fmt.Errorf("mcp23017: could not write register %#02x (retry limit reached): %w", addr, err)
}

// update performs a read-modify-write of a single bit.
func (m *MCP23017) update(ctx context.Context, reg registry, port Port, pin int, set bool) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	val, err := m.read(ctx, reg, port)
	if err != nil {
		return err
	}
	if set {
		val |= 1 << pin
	} else {
		val &^= 1 << pin
	}
	return m.write(ctx, reg, port, val)
}

// SetDirection configures a port (1 bits are inputs).
func (m *MCP23017) SetDirection(ctx context.Context, port Port, inout byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.write(ctx, IODIR, port, inout)
}

// PullUp sets up pull up resistors on a port.
func (m *MCP23017) PullUp(ctx context.Context, port Port, settings byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.write(ctx, GPPU, port, settings)
}

// ReadPort reads the port input register.
func (m *MCP23017) ReadPort(ctx context.Context, port Port) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.read(ctx, GPIO, port)
}

func (m *MCP23017) Read(ctx context.Context) ([]byte, error) {
	res := make([]byte, 2)
	var err error
	res[0], err = m.ReadPort(ctx, PortA)
	if err != nil {
		return nil, fmt.Errorf("could not read gpio set A: %w", err)
	}
	res[1], err = m.ReadPort(ctx, PortB)
	if err != nil {
		return nil, fmt.Errorf("could not read gpio set B: %w", err)
	}
	return res, nil
}

// ReadSettings reads the IOCON register.
func (m *MCP23017) ReadSettings(ctx context.Context) (byte, error) {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.read(ctx, IOCON, PortA)
}

func (m *MCP23017) WriteSettings(ctx context.Context, settings byte) error {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.write(ctx, IOCON, PortA, settings)
}

// Line returns a single expander pin as a line.
func (m *MCP23017) Line(port Port, pin int) *ExpanderLine {
	return &ExpanderLine{exp: m, port: port, pin: pin}
}

var _ Pin = &ExpanderLine{}

// ExpanderLine is one pin of an MCP23017.
type ExpanderLine struct {
	exp  *MCP23017
	port Port
	pin  int
}

func (l *ExpanderLine) String() string {
	return fmt.Sprintf("mcp23017:%s%d", l.port, l.pin)
}

// Out writes the output latch first, then switches the pin to output so
// the line never glitches to the previous latch value.
func (l *ExpanderLine) Out(ctx context.Context, level gpio.Level) error {
	if err := l.exp.update(ctx, OLAT, l.port, l.pin, bool(level)); err != nil {
		return fmt.Errorf("%s: %w", l, err)
	}
	if err := l.exp.update(ctx, IODIR, l.port, l.pin, false); err != nil {
		return fmt.Errorf("%s: %w", l, err)
	}
	return nil
}

func (l *ExpanderLine) Claim(ctx context.Context) error {
	return nil
}

// Release turns the pin back into an input.
func (l *ExpanderLine) Release(ctx context.Context) error {
	return l.In(ctx)
}

func (l *ExpanderLine) In(ctx context.Context) error {
	if err := l.exp.update(ctx, IODIR, l.port, l.pin, true); err != nil {
		return fmt.Errorf("%s: %w", l, err)
	}
	return nil
}

func (l *ExpanderLine) Read(ctx context.Context) (gpio.Level, error) {
	val, err := l.exp.ReadPort(ctx, l.port)
	if err != nil {
		return gpio.Low, fmt.Errorf("%s: %w", l, err)
	}
	return val&(1<<l.pin) != 0, nil
}

func (l *ExpanderLine) Close() error {
	return nil
}
