package gpio

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

var _ Pin = &PeriphLine{}
var _ vdec.EdgeLine = &PeriphLine{}
var _ vdec.Clock = &PWMClock{}

// PeriphLine is a host pin opened through periph.io.
type PeriphLine struct {
	pin  gpio.PinIO
	pull gpio.Pull
	edge gpio.Edge
}

type PeriphLineOption func(*PeriphLine)

func WithPull(pull gpio.Pull) PeriphLineOption {
	return func(l *PeriphLine) {
		l.pull = pull
	}
}

// WithEdges enables edge detection when the line is used as input.
func WithEdges(edge gpio.Edge) PeriphLineOption {
	return func(l *PeriphLine) {
		l.edge = edge
	}
}

// OpenPeriphLine looks the pin up by name ("GPIO17", "P1_11"...). The host
// must have been initialized.
func OpenPeriphLine(name string, opts ...PeriphLineOption) (*PeriphLine, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("periph: no pin named %q: %w", name, vdec.ErrLineUnavailable)
	}
	return NewPeriphLine(pin, opts...), nil
}

func NewPeriphLine(pin gpio.PinIO, opts ...PeriphLineOption) *PeriphLine {
	l := &PeriphLine{pin: pin, pull: gpio.PullNoChange, edge: gpio.NoEdge}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *PeriphLine) Out(ctx context.Context, level gpio.Level) error {
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("periph: could not drive %s %s: %w", l.pin.Name(), level, err)
	}
	return nil
}

// Claim is a no-op: a host pin is driven from its first Out call.
func (l *PeriphLine) Claim(ctx context.Context) error {
	return nil
}

// Release turns the pin into a floating input.
func (l *PeriphLine) Release(ctx context.Context) error {
	if err := l.pin.In(gpio.Float, gpio.NoEdge); err != nil {
		return fmt.Errorf("periph: could not release %s: %w", l.pin.Name(), err)
	}
	return nil
}

func (l *PeriphLine) In(ctx context.Context) error {
	if err := l.pin.In(l.pull, l.edge); err != nil {
		return fmt.Errorf("periph: could not configure %s as input: %w", l.pin.Name(), err)
	}
	return nil
}

func (l *PeriphLine) Read(ctx context.Context) (gpio.Level, error) {
	return l.pin.Read(), nil
}

func (l *PeriphLine) WaitForEdge(ctx context.Context) error {
	for {
		if l.pin.WaitForEdge(edgePollInterval) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (l *PeriphLine) Close() error {
	return l.pin.Halt()
}

// PWMClock drives the decoder input clock from a PWM capable host pin at
// half duty.
type PWMClock struct {
	mx   sync.Mutex
	pin  gpio.PinIO
	freq physic.Frequency
	on   bool
}

func NewPWMClock(pin gpio.PinIO) *PWMClock {
	return &PWMClock{pin: pin}
}

// SetFrequency stores the frequency; a running clock is restarted with it.
func (c *PWMClock) SetFrequency(ctx context.Context, f physic.Frequency) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.freq = f
	if c.on {
		return c.start()
	}
	return nil
}

func (c *PWMClock) Enable(ctx context.Context, on bool) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if !on {
		c.on = false
		if err := c.pin.Halt(); err != nil {
			return fmt.Errorf("periph: could not stop clock on %s: %w", c.pin.Name(), err)
		}
		return c.pin.Out(gpio.Low)
	}
	if c.freq == 0 {
		return fmt.Errorf("periph: clock frequency not set on %s", c.pin.Name())
	}
	if err := c.start(); err != nil {
		return err
	}
	c.on = true
	return nil
}

func (c *PWMClock) start() error {
	if err := c.pin.PWM(gpio.DutyHalf, c.freq); err != nil {
		return fmt.Errorf("periph: could not start %s clock on %s: %w", c.freq, c.pin.Name(), err)
	}
	return nil
}
