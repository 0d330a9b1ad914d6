package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/bustest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

func testProfile() PowerProfile {
	return PowerProfile{
		Lines:         []vdec.LineName{vdec.LinePowerDn, vdec.LineReset, vdec.LinePowerEn},
		Hold:          []LineLevel{{vdec.LineReset, gpio.Low}, {vdec.LinePowerDn, gpio.Low}},
		Active:        []LineLevel{{vdec.LineReset, gpio.High}, {vdec.LinePowerDn, gpio.High}},
		Assert:        []LineLevel{{vdec.LineReset, gpio.Low}, {vdec.LinePowerDn, gpio.Low}},
		IORail:        vdec.RailIO,
		CoreRails:     []vdec.RailName{vdec.RailCore, vdec.RailAnalog},
		OffRails:      []vdec.RailName{vdec.RailAnalog, vdec.RailCore, vdec.RailIO},
		Clock:         24 * physic.MegaHertz,
		IOSettle:      2 * time.Millisecond,
		RailSettle:    30 * time.Millisecond,
		ClockSettle:   30 * time.Millisecond,
		FinalSettle:   30 * time.Millisecond,
		StandbySettle: time.Millisecond,
	}
}

type sleepRecorder struct {
	mx     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.sleeps = append(s.sleeps, d)
}

func line(name vdec.LineName, level gpio.Level) bustest.Op {
	return bustest.Op(fmt.Sprintf("line %s=%s", name, level))
}

func TestPowerSequencer_On(t *testing.T) {
	ch := bustest.NewChannel()
	rec := &sleepRecorder{}
	p := NewPowerSequencer(ch, testProfile(), WithSleep(rec.sleep))

	require.NoError(t, p.Transition(context.Background(), PowerOn))

	expected := []bustest.Op{
		"lock",
		"claim pwdn", "claim reset", "claim power_en",
		line(vdec.LineReset, gpio.Low), line(vdec.LinePowerDn, gpio.Low),
		line(vdec.LinePowerEn, gpio.High),
		"rail iovdd=on",
		"rail dvdd=on", "rail avdd=on",
		bustest.Op(fmt.Sprintf("clock %s", 24*physic.MegaHertz)), "clock on",
		line(vdec.LineReset, gpio.High), line(vdec.LinePowerDn, gpio.High),
		"unlock",
	}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("power on sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond}, rec.sleeps)
	assert.Equal(t, PowerOn, p.State())
}

func TestPowerSequencer_Off(t *testing.T) {
	ch := bustest.NewChannel()
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))
	ctx := context.Background()
	require.NoError(t, p.Transition(ctx, PowerOn))
	ch.Reset()

	require.NoError(t, p.Transition(ctx, PowerOff))

	expected := []bustest.Op{
		"lock",
		line(vdec.LineReset, gpio.Low), line(vdec.LinePowerDn, gpio.Low),
		"clock off",
		"rail avdd=off", "rail dvdd=off", "rail iovdd=off",
		line(vdec.LinePowerEn, gpio.Low),
		"release pwdn", "release reset", "release power_en",
		"unlock",
	}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("power off sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, PowerOff, p.State())
}

func TestPowerSequencer_Idempotent(t *testing.T) {
	for _, target := range []PowerState{PowerOn, PowerOff, PowerStandbyOn, PowerStandbyOff} {
		t.Run(target.String(), func(t *testing.T) {
			ch := bustest.NewChannel()
			p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))
			ctx := context.Background()

			require.NoError(t, p.Transition(ctx, target))
			first := p.State()
			require.NoError(t, p.Transition(ctx, target))
			assert.Equal(t, target, first)
			assert.Equal(t, first, p.State())
		})
	}
}

func TestPowerSequencer_FailureKeepsStateAndReleasesLock(t *testing.T) {
	ch := bustest.NewChannel()
	failure := errors.New("regulator fault")
	ch.Fail["rail dvdd=on"] = failure
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))

	err := p.Transition(context.Background(), PowerOn)
	assert.ErrorIs(t, err, vdec.ErrResourceUnavailable)
	assert.ErrorIs(t, err, failure)
	assert.Contains(t, err.Error(), "rail dvdd")
	assert.Equal(t, PowerOff, p.State())
	assert.False(t, ch.IsLocked())

	ops := ch.Ops()
	assert.Equal(t, bustest.Op("unlock"), ops[len(ops)-1])
	// no rollback: the IO rail stays on and nothing after the failing step ran
	assert.True(t, ch.Rails[vdec.RailIO])
	assert.Equal(t, 0, ch.Count("clock on"))
	assert.Equal(t, 0, ch.Count("rail iovdd=off"))
}

func TestPowerSequencer_OffAfterFailedOnRunsInFull(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Fail["rail dvdd=on"] = errors.New("regulator fault")
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))
	ctx := context.Background()

	require.Error(t, p.Transition(ctx, PowerOn))
	assert.True(t, p.Dirty())
	require.True(t, ch.Rails[vdec.RailIO])
	ch.Reset()

	require.NoError(t, p.Transition(ctx, PowerOff))
	assert.False(t, p.Dirty())
	assert.False(t, ch.Rails[vdec.RailIO])
	assert.Equal(t, 1, ch.Count("rail iovdd=off"))
	assert.Equal(t, 1, ch.Count(line(vdec.LinePowerEn, gpio.Low)))
	for _, l := range []string{"release pwdn", "release reset", "release power_en"} {
		assert.Equal(t, 1, ch.Count(bustest.Op(l)), l)
	}
	assert.Equal(t, PowerOff, p.State())

	ch.Reset()
	require.NoError(t, p.Transition(ctx, PowerOff))
	assert.Empty(t, ch.Ops(), "completed off is not repeated")
}

func TestPowerSequencer_OnRetriedAfterFailure(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Fail["clock on"] = errors.New("pwm busy")
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))
	ctx := context.Background()

	require.Error(t, p.Transition(ctx, PowerOn))
	delete(ch.Fail, "clock on")
	require.NoError(t, p.Transition(ctx, PowerOn))
	assert.Equal(t, PowerOn, p.State())
	assert.False(t, p.Dirty())
}

func TestPowerSequencer_UnwiredResourcesAreSkipped(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Fail["claim power_en"] = vdec.ErrUnsupportedLine
	ch.Fail[line(vdec.LinePowerEn, gpio.High)] = vdec.ErrUnsupportedLine
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}))

	require.NoError(t, p.Transition(context.Background(), PowerOn))
	assert.Equal(t, PowerOn, p.State())
}

func TestPowerSequencer_Standby(t *testing.T) {
	ch := bustest.NewChannel()
	rec := &sleepRecorder{}
	p := NewPowerSequencer(ch, testProfile(), WithSleep(rec.sleep))
	ctx := context.Background()

	require.NoError(t, p.Transition(ctx, PowerStandbyOn))
	require.NoError(t, p.Transition(ctx, PowerStandbyOff))

	expected := []bustest.Op{line(vdec.LineReset, gpio.Low), line(vdec.LineReset, gpio.High)}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("standby touched more than the reset line (-want +got):\n%s", diff)
	}
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, rec.sleeps)
}

func TestPowerSequencer_InvalidTarget(t *testing.T) {
	p := NewPowerSequencer(bustest.NewChannel(), testProfile())
	assert.ErrorIs(t, p.Transition(context.Background(), PowerState(42)), vdec.ErrInvalidPowerState)
}

func TestPowerSequencer_Reset(t *testing.T) {
	ch := bustest.NewChannel()
	rec := &sleepRecorder{}
	p := NewPowerSequencer(ch, testProfile(), WithSleep(rec.sleep))

	require.NoError(t, p.Reset(context.Background(), true))
	expected := []bustest.Op{"lock", line(vdec.LineReset, gpio.Low), line(vdec.LineReset, gpio.High), "unlock"}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("reset pulse mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, rec.sleeps)

	ch.Reset()
	require.NoError(t, p.Reset(context.Background(), false))
	assert.Equal(t, []bustest.Op{"lock", line(vdec.LineReset, gpio.High), "unlock"}, ch.Ops())
}

func TestParsePowerState(t *testing.T) {
	for _, s := range []PowerState{PowerOff, PowerStandbyOn, PowerStandbyOff, PowerOn} {
		parsed, err := ParsePowerState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParsePowerState("sleep")
	assert.ErrorIs(t, err, vdec.ErrInvalidPowerState)
}

func TestPowerSequencer_InitialState(t *testing.T) {
	ch := bustest.NewChannel()
	p := NewPowerSequencer(ch, testProfile(), WithSleep(func(time.Duration) {}), WithInitialState(PowerOn))
	assert.Equal(t, PowerOn, p.State())
	require.NoError(t, p.Transition(context.Background(), PowerOff))
	assert.Equal(t, 1, ch.Count("clock off"))
}
