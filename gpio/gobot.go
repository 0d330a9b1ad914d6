package gpio

import (
	"context"
	"fmt"

	gobotgpio "gobot.io/x/gobot/v2/drivers/gpio"
	"periph.io/x/conn/v3/gpio"
)

var _ Pin = &GobotLine{}

// DigitalPins is the digital I/O part of a gobot platform adaptor.
type DigitalPins interface {
	gobotgpio.DigitalReader
	gobotgpio.DigitalWriter
}

// GobotLine is a header pin of a gobot adaptor (e.g. "7" on a NanoPi NEO).
type GobotLine struct {
	pins DigitalPins
	pin  string
}

func NewGobotLine(pins DigitalPins, pin string) *GobotLine {
	return &GobotLine{pins: pins, pin: pin}
}

func (l *GobotLine) Out(ctx context.Context, level gpio.Level) error {
	var val byte
	if level {
		val = 1
	}
	if err := l.pins.DigitalWrite(l.pin, val); err != nil {
		return fmt.Errorf("gobot: could not write pin %s: %w", l.pin, err)
	}
	return nil
}

func (l *GobotLine) Claim(ctx context.Context) error {
	return nil
}

// Release is a no-op: gobot adaptors keep exported pins until Finalize.
func (l *GobotLine) Release(ctx context.Context) error {
	return nil
}

// In is implicit: gobot switches the pin direction on DigitalRead.
func (l *GobotLine) In(ctx context.Context) error {
	return nil
}

func (l *GobotLine) Read(ctx context.Context) (gpio.Level, error) {
	val, err := l.pins.DigitalRead(l.pin)
	if err != nil {
		return gpio.Low, fmt.Errorf("gobot: could not read pin %s: %w", l.pin, err)
	}
	return val != 0, nil
}

func (l *GobotLine) Close() error {
	return nil
}

