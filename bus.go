package vdec

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

type I2CDevice interface {
	BusReader
	BusWriter
}

// RegisterBus reads and writes 8-bit registers of a single chip.
// Address and value are 8 bits wide throughout.
type RegisterBus interface {
	ReadReg(ctx context.Context, addr byte) (byte, error)
	WriteReg(ctx context.Context, addr, val byte) error
}

// Locker is the bus-wide exclusive lock. Power transitions and register
// programs hold it for their whole duration.
type Locker interface {
	Lock()
	Unlock()
}

// Line is a digital output signal (reset, power-down, enable).
type Line interface {
	Out(ctx context.Context, level gpio.Level) error
}

// ClaimableLine can be switched between driven (claimed) and released
// (high impedance) states.
type ClaimableLine interface {
	Line
	Claim(ctx context.Context) error
	Release(ctx context.Context) error
}

// InputLine is a digital input signal.
type InputLine interface {
	In(ctx context.Context) error
	Read(ctx context.Context) (gpio.Level, error)
}

// EdgeLine is an input line able to block until it sees an edge.
// WaitForEdge returns ctx.Err() when the context is done.
type EdgeLine interface {
	InputLine
	WaitForEdge(ctx context.Context) error
}

// Rail is a controllable power supply domain.
type Rail interface {
	Enable(ctx context.Context, on bool) error
}

// Clock is the chip input clock.
type Clock interface {
	SetFrequency(ctx context.Context, f physic.Frequency) error
	Enable(ctx context.Context, on bool) error
}

// LineName identifies a control line of a decoder chip.
type LineName string

const (
	LineReset   LineName = "reset"
	LinePowerDn LineName = "pwdn"
	LinePowerEn LineName = "power_en"
	LineSMHS    LineName = "sm_hs"
)

// RailName identifies a power rail of a decoder chip.
type RailName string

const (
	RailIO     RailName = "iovdd"
	RailCore   RailName = "dvdd"
	RailAnalog RailName = "avdd"
	RailAF     RailName = "afvdd"
)

// BusChannel is everything a decoder driver needs from its board: the
// serialized register bus, the named control lines, the power rails and
// the input clock.
type BusChannel interface {
	RegisterBus
	Locker
	SetLine(ctx context.Context, name LineName, level gpio.Level) error
	ClaimLine(ctx context.Context, name LineName, claimed bool) error
	EnableRail(ctx context.Context, name RailName, on bool) error
	SetClock(ctx context.Context, f physic.Frequency) error
	EnableClock(ctx context.Context, on bool) error
}
