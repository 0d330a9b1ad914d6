//go:build !linux

package gpio

import (
	"context"
	"fmt"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
)

// CdevLine is not available on non-Linux platforms.
type CdevLine struct {
	chip   string
	offset int
}

type CdevLineOption func(*CdevLine)

func WithBothEdges() CdevLineOption {
	return func(*CdevLine) {}
}

func WithPullUp() CdevLineOption {
	return func(*CdevLine) {}
}

func NewCdevLine(chip string, offset int, opts ...CdevLineOption) *CdevLine {
	return &CdevLine{chip: chip, offset: offset}
}

func (l *CdevLine) unsupported() error {
	return fmt.Errorf("cdev: %s/%d requires linux: %w", l.chip, l.offset, vdec.ErrUnsupportedFeature)
}

func (l *CdevLine) Claim(ctx context.Context) error {
	return l.unsupported()
}

func (l *CdevLine) Out(ctx context.Context, level gpio.Level) error {
	return l.unsupported()
}

func (l *CdevLine) In(ctx context.Context) error {
	return l.unsupported()
}

func (l *CdevLine) Read(ctx context.Context) (gpio.Level, error) {
	return gpio.Low, l.unsupported()
}

func (l *CdevLine) WaitForEdge(ctx context.Context) error {
	return l.unsupported()
}

func (l *CdevLine) Release(ctx context.Context) error {
	return nil
}

func (l *CdevLine) Close() error {
	return nil
}
