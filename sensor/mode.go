package sensor

import (
	"context"
	"fmt"

	"github.com/mklimuk/vdec"
)

// WriteError reports the register at which a program stopped.
type WriteError struct {
	Address byte
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("register %#02x: %v: %v", e.Address, vdec.ErrWriteFailed, e.Err)
}

func (e *WriteError) Unwrap() []error {
	return []error{vdec.ErrWriteFailed, e.Err}
}

// WriteProgram writes the program in order and stops at the first failure.
func WriteProgram(ctx context.Context, bus vdec.RegisterBus, prog Program) error {
	for _, rv := range prog {
		if err := bus.WriteReg(ctx, rv.Addr, rv.Val); err != nil {
			return &WriteError{Address: rv.Addr, Err: err}
		}
	}
	return nil
}

// ModeConfigurator applies a format and window to the chip. The caller
// holds the bus lock for the whole Apply.
type ModeConfigurator struct{}

func (ModeConfigurator) Apply(ctx context.Context, bus vdec.RegisterBus, format *Format, window *Window) error {
	if format == nil || window == nil {
		return fmt.Errorf("sensor: apply: %w", vdec.ErrNoMatchingMode)
	}
	if err := WriteProgram(ctx, bus, format.Program); err != nil {
		return fmt.Errorf("sensor: format %q: %w", format.Description, err)
	}
	if err := WriteProgram(ctx, bus, window.Program); err != nil {
		return fmt.Errorf("sensor: window %s: %w", window, err)
	}
	if window.PostConfigure != nil {
		if err := window.PostConfigure(ctx, bus); err != nil {
			return fmt.Errorf("sensor: window %s post configure: %w", window, err)
		}
	}
	return nil
}
