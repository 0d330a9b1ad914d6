// Package board assembles the bus channel of one decoder chip from a
// register bus and the lines, rails and clock it is wired to.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/cci"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var _ vdec.BusChannel = &Channel{}

// Channel is a vdec.BusChannel. Resources that are not wired report
// vdec.ErrUnsupportedLine so that power sequences skip them.
type Channel struct {
	*cci.Bus
	mx     sync.Mutex
	lines  map[vdec.LineName]vdec.Line
	rails  map[vdec.RailName]vdec.Rail
	clock  vdec.Clock
	logger *slog.Logger
}

type Option func(*Channel)

func WithLine(name vdec.LineName, line vdec.Line) Option {
	return func(c *Channel) {
		c.lines[name] = line
	}
}

func WithRail(name vdec.RailName, rail vdec.Rail) Option {
	return func(c *Channel) {
		c.rails[name] = rail
	}
}

func WithClock(clock vdec.Clock) Option {
	return func(c *Channel) {
		c.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = logger
	}
}

func NewChannel(bus *cci.Bus, opts ...Option) *Channel {
	c := &Channel{
		Bus:    bus,
		lines:  map[vdec.LineName]vdec.Line{},
		rails:  map[vdec.RailName]vdec.Rail{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) line(name vdec.LineName) (vdec.Line, error) {
	c.mx.Lock()
	defer c.mx.Unlock()
	l, ok := c.lines[name]
	if !ok {
		return nil, fmt.Errorf("board: line %s: %w", name, vdec.ErrUnsupportedLine)
	}
	return l, nil
}

func (c *Channel) SetLine(ctx context.Context, name vdec.LineName, level gpio.Level) error {
	l, err := c.line(name)
	if err != nil {
		return err
	}
	if err := l.Out(ctx, level); err != nil {
		return fmt.Errorf("board: could not drive %s %s: %w", name, level, err)
	}
	c.logger.Debug("line set", "line", name, "level", level)
	return nil
}

// ClaimLine claims or releases a line. Lines without a released state
// stay driven.
func (c *Channel) ClaimLine(ctx context.Context, name vdec.LineName, claimed bool) error {
	l, err := c.line(name)
	if err != nil {
		return err
	}
	cl, ok := l.(vdec.ClaimableLine)
	if !ok {
		return nil
	}
	if claimed {
		err = cl.Claim(ctx)
	} else {
		err = cl.Release(ctx)
	}
	if err != nil {
		return fmt.Errorf("board: could not claim %s (claimed=%t): %w", name, claimed, err)
	}
	return nil
}

func (c *Channel) EnableRail(ctx context.Context, name vdec.RailName, on bool) error {
	c.mx.Lock()
	r, ok := c.rails[name]
	c.mx.Unlock()
	if !ok {
		return fmt.Errorf("board: rail %s: %w", name, vdec.ErrUnsupportedLine)
	}
	if err := r.Enable(ctx, on); err != nil {
		return fmt.Errorf("board: could not switch rail %s: %w", name, err)
	}
	c.logger.Debug("rail switched", "rail", name, "on", on)
	return nil
}

func (c *Channel) SetClock(ctx context.Context, f physic.Frequency) error {
	if c.clock == nil {
		return fmt.Errorf("board: clock: %w", vdec.ErrUnsupportedLine)
	}
	if err := c.clock.SetFrequency(ctx, f); err != nil {
		return fmt.Errorf("board: could not set clock to %s: %w", f, err)
	}
	return nil
}

func (c *Channel) EnableClock(ctx context.Context, on bool) error {
	if c.clock == nil {
		return fmt.Errorf("board: clock: %w", vdec.ErrUnsupportedLine)
	}
	if err := c.clock.Enable(ctx, on); err != nil {
		return fmt.Errorf("board: could not switch clock: %w", err)
	}
	return nil
}

// Close closes every line that owns a system resource.
func (c *Channel) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	var errs []error
	for name, l := range c.lines {
		if cl, ok := l.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, fmt.Errorf("line %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
