package sensor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mklimuk/vdec"
)

type Control int

const (
	ControlGain Control = iota
	ControlExposure
)

func (c Control) String() string {
	switch c {
	case ControlGain:
		return "gain"
	case ControlExposure:
		return "exposure"
	}
	return fmt.Sprintf("Control(%d)", int(c))
}

func ParseControl(s string) (Control, error) {
	switch strings.ToLower(s) {
	case "gain":
		return ControlGain, nil
	case "exposure", "exp":
		return ControlExposure, nil
	}
	return 0, fmt.Errorf("%q: %w", s, vdec.ErrUnknownControl)
}

type ControlRange struct {
	Min     int32
	Max     int32
	Step    int32
	Default int32
	// Volatile controls are read back on every Get.
	Volatile bool
}

func (r ControlRange) validate(v int32) error {
	if v < r.Min || v > r.Max {
		return fmt.Errorf("%d not in [%d, %d]: %w", v, r.Min, r.Max, vdec.ErrOutOfRange)
	}
	if r.Step > 1 && (v-r.Min)%r.Step != 0 {
		return fmt.Errorf("%d not a multiple of step %d: %w", v, r.Step, vdec.ErrOutOfRange)
	}
	return nil
}

// ControlState holds validated control values. Set never touches hardware.
type ControlState struct {
	mx       sync.Mutex
	ranges   map[Control]ControlRange
	values   map[Control]int32
	readBack func(Control) (int32, error)
}

type ControlOption func(*ControlState)

// WithReadBack installs the hook volatile controls are read through.
func WithReadBack(fn func(Control) (int32, error)) ControlOption {
	return func(c *ControlState) {
		c.readBack = fn
	}
}

func NewControlState(gain, exposure ControlRange, opts ...ControlOption) *ControlState {
	c := &ControlState{
		ranges: map[Control]ControlRange{ControlGain: gain, ControlExposure: exposure},
		values: map[Control]int32{ControlGain: gain.Default, ControlExposure: exposure.Default},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ControlState) Range(ctrl Control) (ControlRange, error) {
	r, ok := c.ranges[ctrl]
	if !ok {
		return ControlRange{}, fmt.Errorf("%s: %w", ctrl, vdec.ErrUnknownControl)
	}
	return r, nil
}

func (c *ControlState) Get(ctrl Control) (int32, error) {
	r, err := c.Range(ctrl)
	if err != nil {
		return 0, err
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	if r.Volatile && c.readBack != nil {
		v, err := c.readBack(ctrl)
		if err != nil {
			return 0, fmt.Errorf("sensor: read back %s: %w", ctrl, err)
		}
		c.values[ctrl] = v
	}
	return c.values[ctrl], nil
}

func (c *ControlState) Set(ctrl Control, v int32) error {
	r, err := c.Range(ctrl)
	if err != nil {
		return err
	}
	if err := r.validate(v); err != nil {
		return fmt.Errorf("sensor: set %s: %w", ctrl, err)
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.values[ctrl] = v
	return nil
}

// SetExposureGain validates both values before storing either.
func (c *ControlState) SetExposureGain(exposure, gain int32) error {
	if err := c.ranges[ControlExposure].validate(exposure); err != nil {
		return fmt.Errorf("sensor: set exposure: %w", err)
	}
	if err := c.ranges[ControlGain].validate(gain); err != nil {
		return fmt.Errorf("sensor: set gain: %w", err)
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	c.values[ControlExposure] = exposure
	c.values[ControlGain] = gain
	return nil
}
