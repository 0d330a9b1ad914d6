package gpio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

var _ vdec.Rail = &LineRail{}
var _ vdec.Rail = FixedRail{}
var _ vdec.Clock = &FixedClock{}

// LineRail is a supply switched by a load switch or LDO enable line.
type LineRail struct {
	line      vdec.Line
	activeLow bool
}

func NewLineRail(line vdec.Line, activeLow bool) *LineRail {
	return &LineRail{line: line, activeLow: activeLow}
}

func (r *LineRail) Enable(ctx context.Context, on bool) error {
	level := gpio.Level(on != r.activeLow)
	if err := r.line.Out(ctx, level); err != nil {
		return fmt.Errorf("rail: %w", err)
	}
	return nil
}

// FixedRail is a supply that is always on.
type FixedRail struct {
	Name string
}

func (r FixedRail) Enable(ctx context.Context, on bool) error {
	slog.Debug("fixed rail, nothing to switch", "rail", r.Name, "on", on)
	return nil
}

// FixedClock is a free running oscillator. The frequency is recorded so a
// mismatch with the chip requirement can be reported.
type FixedClock struct {
	Frequency physic.Frequency
}

func (c *FixedClock) SetFrequency(ctx context.Context, f physic.Frequency) error {
	if c.Frequency != 0 && c.Frequency != f {
		return fmt.Errorf("clock: fixed oscillator runs at %s, %s requested: %w", c.Frequency, f, vdec.ErrUnsupportedFeature)
	}
	return nil
}

func (c *FixedClock) Enable(ctx context.Context, on bool) error {
	return nil
}
