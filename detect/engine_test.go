package detect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/bustest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mx     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Notify(ctx context.Context, ev Event) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) Events() []Event {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]Event(nil), s.events...)
}

func TestEngine_ReportsOnlyChanges(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(0, 0, 1, 1, 0)...)
	sink := &recordingSink{}
	e, err := NewEngine([]*Channel{NewChannel(0, line)}, WithSink(sink))
	require.NoError(t, err)

	ctx := context.Background()
	var perPass [][]Event
	for i := 0; i < 5; i++ {
		perPass = append(perPass, e.PollOnce(ctx))
	}
	assert.Empty(t, perPass[0], "absent baseline is silent")
	assert.Empty(t, perPass[1])
	require.Len(t, perPass[2], 1)
	assert.Equal(t, StatusPresent, perPass[2][0].Status)
	assert.Empty(t, perPass[3])
	require.Len(t, perPass[4], 1)
	assert.Equal(t, StatusAbsent, perPass[4][0].Status)

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "SENSOR_RAVAL=0x1", events[0].String())
	assert.Equal(t, "SENSOR_RAVAL=0x0", events[1].String())
	assert.Equal(t, 5, line.Inputs, "line is switched to input before every read")
}

func TestEngine_PresentAtStartIsReported(t *testing.T) {
	e, err := NewEngine([]*Channel{NewChannel(2, bustest.NewLine(bustest.Levels(1)...))})
	require.NoError(t, err)
	events := e.PollOnce(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Channel)
}

func TestEngine_ActiveLow(t *testing.T) {
	ch := NewChannel(0, bustest.NewLine(bustest.Levels(0)...))
	ch.ActiveLow = true
	e, err := NewEngine([]*Channel{ch})
	require.NoError(t, err)
	e.PollOnce(context.Background())
	assert.Equal(t, StatusPresent, e.Status(0))
}

func TestEngine_StatusBitmask(t *testing.T) {
	e, err := NewEngine([]*Channel{
		NewChannel(0, bustest.NewLine(bustest.Levels(1)...)),
		NewChannel(1, bustest.NewLine(bustest.Levels(0)...)),
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), e.StatusBitmask(), "unknown packs as zero")

	e.PollOnce(context.Background())
	assert.Equal(t, uint32(0x01), e.StatusBitmask())
	assert.Equal(t, "0x1", e.StatusString())
}

func TestEngine_StatusBitmaskUsesChannelIndex(t *testing.T) {
	e, err := NewEngine([]*Channel{
		NewChannel(1, bustest.NewLine(bustest.Levels(1)...)),
		NewChannel(3, bustest.NewLine(bustest.Levels(1)...)),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, e.Indices())
	e.PollOnce(context.Background())
	assert.Equal(t, "0x1010", e.StatusString())
}

func TestEngine_ReadErrorSkipsChannel(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(1, 1)...)
	line.Errs[0] = errors.New("line gone")
	other := bustest.NewLine(bustest.Levels(1)...)
	e, err := NewEngine([]*Channel{NewChannel(0, line), NewChannel(1, other)})
	require.NoError(t, err)

	events := e.PollOnce(context.Background())
	require.Len(t, events, 1, "the failing channel must not stop the pass")
	assert.Equal(t, 1, events[0].Channel)
	assert.Equal(t, StatusUnknown, e.Status(0))

	events = e.PollOnce(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, 0, events[0].Channel)
}

func TestEngine_SinkErrorIsNotFatal(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	e, err := NewEngine([]*Channel{NewChannel(0, bustest.NewLine(bustest.Levels(1)...))}, WithSink(sink))
	require.NoError(t, err)
	assert.Len(t, e.PollOnce(context.Background()), 1)
	assert.Equal(t, StatusPresent, e.Status(0))
}

func TestEngine_TooManyChannels(t *testing.T) {
	var channels []*Channel
	for i := 0; i < 5; i++ {
		channels = append(channels, NewChannel(i, bustest.NewLine()))
	}
	_, err := NewEngine(channels)
	assert.Error(t, err)
}

func TestEngine_TimerPoll(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(0, 1)...)
	tick := make(chan time.Time)
	var intervals []time.Duration
	var mx sync.Mutex
	sched := TimerPoll{Interval: time.Second, After: func(d time.Duration) <-chan time.Time {
		mx.Lock()
		intervals = append(intervals, d)
		mx.Unlock()
		return tick
	}}
	sink := &recordingSink{}
	e, err := NewEngine([]*Channel{NewChannel(0, line)}, WithScheduler(sched), WithSink(sink))
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	assert.Eventually(t, func() bool { return line.Reads() == 1 }, time.Second, time.Millisecond, "first pass runs immediately")
	tick <- time.Now()
	assert.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, e.Stop())
	mx.Lock()
	assert.Equal(t, time.Second, intervals[0])
	mx.Unlock()
	assert.True(t, line.IsReleased())
}

func TestEngine_EdgeInterrupt(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(0, 1)...)
	sink := &recordingSink{}
	e, err := NewEngine([]*Channel{NewChannel(0, line)}, WithScheduler(EdgeInterrupt{Settle: time.Millisecond}), WithSink(sink))
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	assert.Eventually(t, func() bool { return line.Reads() == 1 }, time.Second, time.Millisecond)
	line.Edge()
	assert.Eventually(t, func() bool { return len(sink.Events()) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, e.Stop())
}

type levelOnly struct {
	vdec.InputLine
}

func TestEngine_EdgeInterruptNeedsEdgeLines(t *testing.T) {
	e, err := NewEngine([]*Channel{NewChannel(0, levelOnly{bustest.NewLine()})}, WithScheduler(EdgeInterrupt{}))
	require.NoError(t, err)
	assert.ErrorIs(t, e.Start(context.Background()), vdec.ErrUnsupportedFeature)
}

func TestEngine_StopIsIdempotent(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(0)...)
	power := bustest.NewLine()
	e, err := NewEngine([]*Channel{NewChannel(0, line)}, WithPowerLines(power))
	require.NoError(t, err)

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.True(t, line.IsReleased())
	assert.True(t, power.IsReleased())
	assert.ErrorIs(t, e.Start(context.Background()), ErrStopped)
	assert.Nil(t, e.PollOnce(context.Background()))
	assert.Zero(t, line.Reads())
}

func TestEngine_NoChannelsDisablesDetection(t *testing.T) {
	e, err := NewEngine(nil)
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	assert.Equal(t, "0x0", e.StatusString())
	require.NoError(t, e.Stop())
}

func TestEngine_StopWaitsForInFlightPass(t *testing.T) {
	line := bustest.NewLine(bustest.Levels(0)...)
	reading := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	var releasedDuringRead bool
	var inRead sync.Mutex
	line.OnRead = func() {
		once.Do(func() { close(reading) })
		inRead.Lock()
		defer inRead.Unlock()
		<-proceed
	}
	line.OnRelease = func() {
		if !inRead.TryLock() {
			releasedDuringRead = true
			return
		}
		inRead.Unlock()
	}
	e, err := NewEngine([]*Channel{NewChannel(0, line)}, WithScheduler(TimerPoll{Interval: time.Hour}))
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	<-reading

	stopped := make(chan error)
	go func() {
		stopped <- e.Stop()
	}()
	select {
	case <-stopped:
		t.Fatal("stop returned while a pass was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	assert.False(t, line.IsReleased())

	close(proceed)
	require.NoError(t, <-stopped)
	assert.True(t, line.IsReleased())
	assert.False(t, releasedDuringRead)
}
