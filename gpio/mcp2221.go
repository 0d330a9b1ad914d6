package gpio

import (
	"context"
	"fmt"

	"github.com/mklimuk/vdec/adapter"
	"periph.io/x/conn/v3/gpio"
)

// Bridge is the GPIO part of the MCP2221 adapter.
type Bridge interface {
	SetGPIO(ctx context.Context, pin int, value bool) error
	SetGPIODirection(ctx context.Context, pin int, mode adapter.GPIOMode) error
	ReadGPIO(ctx context.Context) (adapter.MCP2221GPIOValues, error)
}

var _ Pin = &BridgeLine{}

// BridgeLine is one of the GP0..GP3 pins of an MCP2221.
type BridgeLine struct {
	bridge Bridge
	pin    int
}

func NewBridgeLine(bridge Bridge, pin int) (*BridgeLine, error) {
	if pin < 0 || pin > 3 {
		return nil, fmt.Errorf("mcp2221: invalid pin GP%d", pin)
	}
	return &BridgeLine{bridge: bridge, pin: pin}, nil
}

func (l *BridgeLine) Out(ctx context.Context, level gpio.Level) error {
	if err := l.bridge.SetGPIO(ctx, l.pin, bool(level)); err != nil {
		return fmt.Errorf("mcp2221: could not drive GP%d: %w", l.pin, err)
	}
	return nil
}

func (l *BridgeLine) Claim(ctx context.Context) error {
	return nil
}

func (l *BridgeLine) Release(ctx context.Context) error {
	return l.In(ctx)
}

func (l *BridgeLine) In(ctx context.Context) error {
	if err := l.bridge.SetGPIODirection(ctx, l.pin, adapter.GPIOModeIn); err != nil {
		return fmt.Errorf("mcp2221: could not set GP%d as input: %w", l.pin, err)
	}
	return nil
}

func (l *BridgeLine) Read(ctx context.Context) (gpio.Level, error) {
	values, err := l.bridge.ReadGPIO(ctx)
	if err != nil {
		return gpio.Low, fmt.Errorf("mcp2221: could not read GP%d: %w", l.pin, err)
	}
	if values.Modes[l.pin] == adapter.GPIOModeNoOperation {
		return gpio.Low, fmt.Errorf("mcp2221: GP%d is not a GPIO", l.pin)
	}
	return values.Values[l.pin] != 0, nil
}

func (l *BridgeLine) Close() error {
	return nil
}
