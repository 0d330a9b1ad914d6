//go:build linux

package gpio

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/vdec"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/gpio"
)

var _ Pin = &CdevLine{}
var _ vdec.EdgeLine = &CdevLine{}

// CdevLine is a line requested from the Linux GPIO character device. The
// line is requested on first use and kept until Release or Close.
type CdevLine struct {
	mx     sync.Mutex
	chip   string
	offset int
	edges  bool
	pullUp bool
	line   *gpiocdev.Line
	output bool
	events chan struct{}
}

type CdevLineOption func(*CdevLine)

// WithBothEdges requests edge events for the line when used as input.
func WithBothEdges() CdevLineOption {
	return func(l *CdevLine) {
		l.edges = true
	}
}

func WithPullUp() CdevLineOption {
	return func(l *CdevLine) {
		l.pullUp = true
	}
}

func NewCdevLine(chip string, offset int, opts ...CdevLineOption) *CdevLine {
	l := &CdevLine{chip: chip, offset: offset, events: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *CdevLine) inputOptions() []gpiocdev.LineReqOption {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	if l.pullUp {
		opts = append(opts, gpiocdev.WithPullUp)
	} else {
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if l.edges {
		opts = append(opts, gpiocdev.WithBothEdges, gpiocdev.WithEventHandler(l.onEvent))
	}
	return opts
}

func (l *CdevLine) onEvent(gpiocdev.LineEvent) {
	select {
	case l.events <- struct{}{}:
	default:
	}
}

func (l *CdevLine) Claim(ctx context.Context) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.line != nil {
		return nil
	}
	line, err := gpiocdev.RequestLine(l.chip, l.offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("vdec"))
	if err != nil {
		return fmt.Errorf("cdev: request %s/%d: %w", l.chip, l.offset, err)
	}
	l.line = line
	l.output = true
	return nil
}

func (l *CdevLine) Out(ctx context.Context, level gpio.Level) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	v := 0
	if level {
		v = 1
	}
	if l.line == nil {
		line, err := gpiocdev.RequestLine(l.chip, l.offset, gpiocdev.AsOutput(v), gpiocdev.WithConsumer("vdec"))
		if err != nil {
			return fmt.Errorf("cdev: request %s/%d: %w", l.chip, l.offset, err)
		}
		l.line = line
		l.output = true
		return nil
	}
	if !l.output {
		if err := l.line.Reconfigure(gpiocdev.AsOutput(v)); err != nil {
			return fmt.Errorf("cdev: reconfigure %s/%d as output: %w", l.chip, l.offset, err)
		}
		l.output = true
		return nil
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("cdev: set %s/%d: %w", l.chip, l.offset, err)
	}
	return nil
}

func (l *CdevLine) In(ctx context.Context) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.line == nil {
		opts := append(l.inputOptions(), gpiocdev.WithConsumer("vdec"))
		line, err := gpiocdev.RequestLine(l.chip, l.offset, opts...)
		if err != nil {
			return fmt.Errorf("cdev: request %s/%d as input: %w", l.chip, l.offset, err)
		}
		l.line = line
		l.output = false
		return nil
	}
	if l.output {
		if err := l.line.Reconfigure(gpiocdev.AsInput); err != nil {
			return fmt.Errorf("cdev: reconfigure %s/%d as input: %w", l.chip, l.offset, err)
		}
		l.output = false
	}
	return nil
}

func (l *CdevLine) Read(ctx context.Context) (gpio.Level, error) {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.line == nil {
		return gpio.Low, fmt.Errorf("cdev: %s/%d not requested: %w", l.chip, l.offset, vdec.ErrLineUnavailable)
	}
	v, err := l.line.Value()
	if err != nil {
		return gpio.Low, fmt.Errorf("cdev: read %s/%d: %w", l.chip, l.offset, err)
	}
	return v != 0, nil
}

// WaitForEdge blocks until an edge event arrives. The line must have been
// created WithBothEdges and configured with In.
func (l *CdevLine) WaitForEdge(ctx context.Context) error {
	if !l.edges {
		return fmt.Errorf("cdev: %s/%d has no edge detection: %w", l.chip, l.offset, vdec.ErrUnsupportedFeature)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.events:
		return nil
	}
}

// Release returns the line to the kernel.
func (l *CdevLine) Release(ctx context.Context) error {
	return l.Close()
}

func (l *CdevLine) Close() error {
	l.mx.Lock()
	defer l.mx.Unlock()
	if l.line == nil {
		return nil
	}
	err := l.line.Close()
	l.line = nil
	if err != nil {
		return fmt.Errorf("cdev: close %s/%d: %w", l.chip, l.offset, err)
	}
	return nil
}
