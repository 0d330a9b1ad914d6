package detect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mklimuk/vdec"
)

const (
	DefaultInterval = time.Second
	DefaultSettle   = 20 * time.Millisecond
)

// Scheduler decides when detection passes run. Run blocks until ctx is
// done and must not call poll after it returns.
type Scheduler interface {
	Validate(channels []*Channel) error
	Run(ctx context.Context, channels []*Channel, poll func(ctx context.Context))
}

// TimerPoll runs a pass immediately and then once per Interval, measured
// from the end of the previous pass.
type TimerPoll struct {
	Interval time.Duration
	// After replaces time.After in tests.
	After func(time.Duration) <-chan time.Time
}

func (t TimerPoll) Validate([]*Channel) error {
	if t.Interval < 0 {
		return fmt.Errorf("negative poll interval %s", t.Interval)
	}
	return nil
}

func (t TimerPoll) Run(ctx context.Context, _ []*Channel, poll func(ctx context.Context)) {
	interval := t.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	after := t.After
	if after == nil {
		after = time.After
	}
	for {
		poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-after(interval):
		}
	}
}

// EdgeInterrupt runs a pass after any detect line changes level. Edges
// arriving within Settle of each other are coalesced into one pass.
type EdgeInterrupt struct {
	Settle time.Duration
}

func (e EdgeInterrupt) Validate(channels []*Channel) error {
	for _, ch := range channels {
		if _, ok := ch.Line.(vdec.EdgeLine); !ok {
			return fmt.Errorf("channel %d: %w: line has no edge support", ch.Index, vdec.ErrUnsupportedFeature)
		}
	}
	return nil
}

func (e EdgeInterrupt) Run(ctx context.Context, channels []*Channel, poll func(ctx context.Context)) {
	settle := e.Settle
	if settle == 0 {
		settle = DefaultSettle
	}
	trigger := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, ch := range channels {
		line := ch.Line.(vdec.EdgeLine)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := line.WaitForEdge(ctx); err != nil {
					if ctx.Err() != nil {
						return
					}
					// transient edge errors back off one settle period
					select {
					case <-ctx.Done():
						return
					case <-time.After(settle):
					}
					continue
				}
				select {
				case trigger <- struct{}{}:
				default:
				}
			}
		}()
	}
	defer wg.Wait()

	// initial state
	poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(settle):
		}
		select {
		case <-trigger:
		default:
		}
		poll(ctx)
	}
}
