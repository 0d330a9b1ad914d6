// Package detect watches camera insertion on up to four detect lines and
// reports every observed change to a sink.
package detect

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/vdec"
)

// MaxChannels is the number of detect lines a decoder can have.
const MaxChannels = 4

type Status int

const (
	StatusUnknown Status = iota
	StatusAbsent
	StatusPresent
)

func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusPresent:
		return "present"
	}
	return "unknown"
}

// Value is the raw status value reported to listeners: 1 when a camera is
// present, 0 otherwise.
func (s Status) Value() uint32 {
	if s == StatusPresent {
		return 1
	}
	return 0
}

// Event is one observed channel change.
type Event struct {
	Channel int
	Status  Status
	Time    time.Time
}

// String is the uevent style representation listeners match on.
func (e Event) String() string {
	return fmt.Sprintf("SENSOR_RAVAL=0x%x", e.Status.Value())
}

// Sink receives detection events. Sinks are shared between devices and
// must accept concurrent calls.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// Channel is one detect line.
type Channel struct {
	Index     int
	Line      vdec.InputLine
	Power     vdec.Line
	ActiveLow bool
	status    Status
}

func NewChannel(index int, line vdec.InputLine) *Channel {
	return &Channel{Index: index, Line: line}
}

func (c *Channel) normalize(high bool) Status {
	if high != c.ActiveLow {
		return StatusPresent
	}
	return StatusAbsent
}

func (c *Channel) sample(ctx context.Context) (Status, error) {
	if err := c.Line.In(ctx); err != nil {
		return StatusUnknown, fmt.Errorf("channel %d: could not configure input: %w", c.Index, err)
	}
	level, err := c.Line.Read(ctx)
	if err != nil {
		return StatusUnknown, fmt.Errorf("channel %d: could not read: %w", c.Index, err)
	}
	return c.normalize(bool(level)), nil
}
