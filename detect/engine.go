package detect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/vdec"
)

var ErrStopped = errors.New("detection engine stopped")

type releaser interface {
	Release(ctx context.Context) error
}

// Engine polls the detect channels of one device. At most one pass runs at
// a time whether it is triggered by the scheduler or called directly.
type Engine struct {
	pass      sync.Mutex
	statusMx  sync.RWMutex
	channels  []*Channel
	power     []vdec.Line
	scheduler Scheduler
	sink      Sink
	logger    *slog.Logger
	now       func() time.Time

	runMx   sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

type EngineOption func(*Engine)

func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

func WithSink(s Sink) EngineOption {
	return func(e *Engine) {
		e.sink = s
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPowerLines hands over detect power lines released on Stop.
func WithPowerLines(lines ...vdec.Line) EngineOption {
	return func(e *Engine) {
		e.power = append(e.power, lines...)
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine over at most MaxChannels channels.
func NewEngine(channels []*Channel, opts ...EngineOption) (*Engine, error) {
	if len(channels) > MaxChannels {
		return nil, fmt.Errorf("detect: %d channels, at most %d supported", len(channels), MaxChannels)
	}
	e := &Engine{
		channels:  channels,
		scheduler: TimerPoll{Interval: DefaultInterval},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Channels() int {
	return len(e.channels)
}

// Indices returns the configured index of every channel.
func (e *Engine) Indices() []int {
	res := make([]int, len(e.channels))
	for i, ch := range e.channels {
		res[i] = ch.Index
	}
	return res
}

// PollOnce samples every channel and returns the changes. The first
// Absent observation of a channel only records the baseline; a camera
// already present is reported. Read errors are logged and the channel is
// skipped until the next pass.
func (e *Engine) PollOnce(ctx context.Context) []Event {
	e.pass.Lock()
	defer e.pass.Unlock()
	e.runMx.Lock()
	stopped := e.stopped
	e.runMx.Unlock()
	if stopped {
		return nil
	}
	var events []Event
	for _, ch := range e.channels {
		if ctx.Err() != nil {
			return events
		}
		status, err := ch.sample(ctx)
		if err != nil {
			e.logger.Warn("detect read failed", "channel", ch.Index, "error", err)
			continue
		}
		e.statusMx.Lock()
		prev := ch.status
		ch.status = status
		e.statusMx.Unlock()
		if prev == status {
			continue
		}
		if prev == StatusUnknown && status == StatusAbsent {
			e.logger.Debug("detect baseline", "channel", ch.Index, "status", status)
			continue
		}
		ev := Event{Channel: ch.Index, Status: status, Time: e.now()}
		events = append(events, ev)
		e.logger.Info("camera status changed", "channel", ch.Index, "status", status, "event", ev.String())
		if e.sink != nil {
			if err := e.sink.Notify(ctx, ev); err != nil {
				e.logger.Warn("could not deliver detect event", "channel", ch.Index, "error", err)
			}
		}
	}
	return events
}

// Status returns the last known status of the channel with the given index.
func (e *Engine) Status(index int) Status {
	e.statusMx.RLock()
	defer e.statusMx.RUnlock()
	for _, ch := range e.channels {
		if ch.Index == index {
			return ch.status
		}
	}
	return StatusUnknown
}

// StatusBitmask packs the last known status of each channel in 4 bits at
// 4*index. It never triggers a read.
func (e *Engine) StatusBitmask() uint32 {
	e.statusMx.RLock()
	defer e.statusMx.RUnlock()
	var mask uint32
	for _, ch := range e.channels {
		mask |= ch.status.Value() << (4 * ch.Index)
	}
	return mask
}

func (e *Engine) StatusString() string {
	return fmt.Sprintf("0x%x", e.StatusBitmask())
}

// Start runs the scheduler in the background. Starting a running engine
// is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.runMx.Lock()
	defer e.runMx.Unlock()
	if e.stopped {
		return ErrStopped
	}
	if e.cancel != nil {
		return nil
	}
	if len(e.channels) == 0 {
		e.logger.Info("no detect channels, detection disabled")
		return nil
	}
	if err := e.scheduler.Validate(e.channels); err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go func() {
		defer close(e.done)
		e.scheduler.Run(runCtx, e.channels, func(ctx context.Context) {
			e.PollOnce(ctx)
		})
	}()
	e.logger.Debug("detection started", "channels", len(e.channels))
	return nil
}

// Stop cancels the scheduler and waits for it, lets an in-flight pass
// finish, then releases every channel and power line. Stop is idempotent.
func (e *Engine) Stop() error {
	e.runMx.Lock()
	if e.stopped {
		e.runMx.Unlock()
		return nil
	}
	e.stopped = true
	cancel, done := e.cancel, e.done
	e.runMx.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	// wait for a pass started outside the scheduler
	e.pass.Lock()
	defer e.pass.Unlock()

	ctx := context.Background()
	var errs []error
	for _, ch := range e.channels {
		if r, ok := ch.Line.(releaser); ok {
			if err := r.Release(ctx); err != nil {
				errs = append(errs, fmt.Errorf("channel %d: %w", ch.Index, err))
			}
		}
		if ch.Power != nil {
			if r, ok := ch.Power.(releaser); ok {
				if err := r.Release(ctx); err != nil {
					errs = append(errs, fmt.Errorf("channel %d power: %w", ch.Index, err))
				}
			}
		}
	}
	for _, p := range e.power {
		if r, ok := p.(releaser); ok {
			if err := r.Release(ctx); err != nil {
				errs = append(errs, fmt.Errorf("detect power: %w", err))
			}
		}
	}
	e.logger.Debug("detection stopped")
	return errors.Join(errs...)
}
