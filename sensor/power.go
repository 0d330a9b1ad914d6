package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mklimuk/vdec"
	"periph.io/x/conn/v3/gpio"
)

// PowerSequencer drives the board lines, rails and clock of one chip.
type PowerSequencer struct {
	mx      sync.Mutex
	ch      vdec.BusChannel
	profile PowerProfile
	state   PowerState
	// dirty is set while the last On or Off stopped half way
	dirty  bool
	sleep  func(time.Duration)
	logger *slog.Logger
}

type PowerOption func(*PowerSequencer)

// WithSleep replaces time.Sleep for settle delays.
func WithSleep(sleep func(time.Duration)) PowerOption {
	return func(p *PowerSequencer) {
		p.sleep = sleep
	}
}

// WithInitialState sets the power state the hardware is assumed to be in,
// e.g. when a previous process left the chip powered.
func WithInitialState(state PowerState) PowerOption {
	return func(p *PowerSequencer) {
		p.state = state
	}
}

func WithPowerLogger(logger *slog.Logger) PowerOption {
	return func(p *PowerSequencer) {
		p.logger = logger
	}
}

func NewPowerSequencer(ch vdec.BusChannel, profile PowerProfile, opts ...PowerOption) *PowerSequencer {
	p := &PowerSequencer{
		ch:      ch,
		profile: profile,
		state:   PowerOff,
		sleep:   time.Sleep,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *PowerSequencer) State() PowerState {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.state
}

type step struct {
	name   string
	run    func(ctx context.Context) error
	settle time.Duration
}

// Dirty reports whether the last On or Off transition failed part way,
// leaving resources in a state the reported power state does not describe.
func (p *PowerSequencer) Dirty() bool {
	p.mx.Lock()
	defer p.mx.Unlock()
	return p.dirty
}

// Transition moves the chip to the target power state. A failing step
// aborts the sequence; steps already applied are left as they are and the
// reported state does not change. After such a failure the same target
// runs again in full.
func (p *PowerSequencer) Transition(ctx context.Context, target PowerState) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	if p.state == target && !p.dirty {
		p.logger.Debug("power state unchanged", "state", target)
		return nil
	}
	var steps []step
	switch target {
	case PowerOn:
		steps = p.onSteps()
	case PowerOff:
		steps = p.offSteps()
	case PowerStandbyOn:
		steps = p.standbySteps(gpio.Low)
	case PowerStandbyOff:
		steps = p.standbySteps(gpio.High)
	default:
		return fmt.Errorf("sensor: power %s: %w", target, vdec.ErrInvalidPowerState)
	}
	// standby only toggles the reset line and stays off the bus lock
	if target == PowerOn || target == PowerOff {
		p.ch.Lock()
		defer p.ch.Unlock()
	}
	if err := p.run(ctx, target, steps); err != nil {
		if target == PowerOn || target == PowerOff {
			p.dirty = true
		}
		return err
	}
	p.logger.Debug("power state changed", "from", p.state, "to", target)
	p.state = target
	if target == PowerOn || target == PowerOff {
		p.dirty = false
	}
	return nil
}

func (p *PowerSequencer) run(ctx context.Context, target PowerState, steps []step) error {
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			if errors.Is(err, vdec.ErrUnsupportedLine) {
				p.logger.Debug("power step skipped, resource not wired", "target", target, "step", s.name)
				continue
			}
			return fmt.Errorf("sensor: power %s failed at %s: %w: %w", target, s.name, vdec.ErrResourceUnavailable, err)
		}
		if s.settle > 0 {
			p.sleep(s.settle)
		}
	}
	return nil
}

func (p *PowerSequencer) lineStep(l LineLevel) step {
	return step{
		name: fmt.Sprintf("%s=%s", l.Line, l.Level),
		run: func(ctx context.Context) error {
			return p.ch.SetLine(ctx, l.Line, l.Level)
		},
	}
}

func (p *PowerSequencer) railStep(name vdec.RailName, on bool) step {
	return step{
		name: fmt.Sprintf("rail %s on=%t", name, on),
		run: func(ctx context.Context) error {
			return p.ch.EnableRail(ctx, name, on)
		},
	}
}

func (p *PowerSequencer) claimStep(name vdec.LineName, claimed bool) step {
	return step{
		name: fmt.Sprintf("claim %s=%t", name, claimed),
		run: func(ctx context.Context) error {
			return p.ch.ClaimLine(ctx, name, claimed)
		},
	}
}

func withSettle(steps []step, d time.Duration) []step {
	if len(steps) > 0 {
		steps[len(steps)-1].settle += d
	}
	return steps
}

func (p *PowerSequencer) onSteps() []step {
	prof := p.profile
	var steps []step
	for _, l := range prof.Lines {
		steps = append(steps, p.claimStep(l, true))
	}
	for _, l := range prof.Hold {
		steps = append(steps, p.lineStep(l))
	}
	steps = append(steps, p.lineStep(LineLevel{Line: vdec.LinePowerEn, Level: gpio.High}))
	if prof.IORail != "" {
		steps = append(steps, p.railStep(prof.IORail, true))
		steps = withSettle(steps, prof.IOSettle)
	}
	var rails []step
	for _, r := range prof.CoreRails {
		rails = append(rails, p.railStep(r, true))
	}
	steps = append(steps, withSettle(rails, prof.RailSettle)...)
	steps = append(steps,
		step{
			name: fmt.Sprintf("clock %s", prof.Clock),
			run: func(ctx context.Context) error {
				return p.ch.SetClock(ctx, prof.Clock)
			},
		},
		step{
			name: "clock on",
			run: func(ctx context.Context) error {
				return p.ch.EnableClock(ctx, true)
			},
			settle: prof.ClockSettle,
		},
	)
	var active []step
	for _, l := range prof.Active {
		active = append(active, p.lineStep(l))
	}
	return append(steps, withSettle(active, prof.FinalSettle)...)
}

func (p *PowerSequencer) offSteps() []step {
	prof := p.profile
	var steps []step
	for _, l := range prof.Assert {
		steps = append(steps, p.lineStep(l))
	}
	steps = append(steps, step{
		name: "clock off",
		run: func(ctx context.Context) error {
			return p.ch.EnableClock(ctx, false)
		},
	})
	for _, r := range prof.OffRails {
		steps = append(steps, p.railStep(r, false))
	}
	steps = append(steps, p.lineStep(LineLevel{Line: vdec.LinePowerEn, Level: gpio.Low}))
	for _, l := range prof.Lines {
		steps = append(steps, p.claimStep(l, false))
	}
	return steps
}

func (p *PowerSequencer) standbySteps(level gpio.Level) []step {
	s := p.lineStep(LineLevel{Line: vdec.LineReset, Level: level})
	s.settle = p.profile.StandbySettle
	return []step{s}
}

// Reset pulses the reset line low then high. With pulse false the line is
// only released high. The bus lock is held so no register access sees a
// chip in reset.
func (p *PowerSequencer) Reset(ctx context.Context, pulse bool) error {
	p.mx.Lock()
	defer p.mx.Unlock()
	p.ch.Lock()
	defer p.ch.Unlock()
	hold := p.profile.ResetHold
	if hold == 0 {
		hold = 5 * time.Millisecond
	}
	var steps []step
	if pulse {
		low := p.lineStep(LineLevel{Line: vdec.LineReset, Level: gpio.Low})
		low.settle = hold
		steps = append(steps, low)
	}
	high := p.lineStep(LineLevel{Line: vdec.LineReset, Level: gpio.High})
	high.settle = hold
	steps = append(steps, high)
	for _, s := range steps {
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("sensor: reset failed at %s: %w: %w", s.name, vdec.ErrResourceUnavailable, err)
		}
		p.sleep(s.settle)
	}
	return nil
}
