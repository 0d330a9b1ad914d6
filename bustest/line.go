package bustest

import (
	"context"
	"errors"
	"sync"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
)

var _ vdec.EdgeLine = &Line{}
var _ vdec.ClaimableLine = &Line{}

// ErrScriptExhausted is returned by Read once a scripted line ran out of
// samples and has no steady level.
var ErrScriptExhausted = errors.New("bustest: script exhausted")

// Line is a scripted line. Reads return Script samples in order, then the
// last sample forever. Hooks let tests block a read to simulate a slow
// line, or observe Release calls.
type Line struct {
	mx       sync.Mutex
	Script   []gpio.Level
	Errs     map[int]error
	reads    int
	Outs     []gpio.Level
	Inputs   int
	Released bool
	Claimed  bool
	edges    chan struct{}
	// OnRead runs before every read, outside the line lock.
	OnRead func()
	// OnRelease runs when the line is released.
	OnRelease func()
}

func NewLine(script ...gpio.Level) *Line {
	return &Line{Script: script, Errs: map[int]error{}, edges: make(chan struct{}, 16)}
}

// Levels converts 0/1 samples into levels.
func Levels(samples ...int) []gpio.Level {
	res := make([]gpio.Level, len(samples))
	for i, s := range samples {
		res[i] = s != 0
	}
	return res
}

func (l *Line) Out(ctx context.Context, level gpio.Level) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.Outs = append(l.Outs, level)
	return nil
}

func (l *Line) Claim(ctx context.Context) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.Claimed = true
	return nil
}

func (l *Line) Release(ctx context.Context) error {
	l.mx.Lock()
	l.Released = true
	hook := l.OnRelease
	l.mx.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (l *Line) In(ctx context.Context) error {
	l.mx.Lock()
	defer l.mx.Unlock()
	l.Inputs++
	return nil
}

// Read returns the next sample. Errs injects an error for the read with
// the given zero based index.
func (l *Line) Read(ctx context.Context) (gpio.Level, error) {
	l.mx.Lock()
	hook := l.OnRead
	l.mx.Unlock()
	if hook != nil {
		hook()
	}
	l.mx.Lock()
	defer l.mx.Unlock()
	n := l.reads
	l.reads++
	if err, ok := l.Errs[n]; ok {
		return gpio.Low, err
	}
	if len(l.Script) == 0 {
		return gpio.Low, ErrScriptExhausted
	}
	if n >= len(l.Script) {
		return l.Script[len(l.Script)-1], nil
	}
	return l.Script[n], nil
}

// Reads returns how many reads were made.
func (l *Line) Reads() int {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.reads
}

func (l *Line) IsReleased() bool {
	l.mx.Lock()
	defer l.mx.Unlock()
	return l.Released
}

// Edge simulates a hardware edge.
func (l *Line) Edge() {
	select {
	case l.edges <- struct{}{}:
	default:
	}
}

func (l *Line) WaitForEdge(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.edges:
		return nil
	}
}

func (l *Line) Close() error {
	return l.Release(context.Background())
}
