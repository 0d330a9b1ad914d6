package gpio

import (
	"context"
	"errors"
	"testing"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/adapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

func TestPeriphLine(t *testing.T) {
	pin := &gpiotest.Pin{N: "GPIO17"}
	line := NewPeriphLine(pin)
	ctx := context.Background()

	require.NoError(t, line.Out(ctx, gpio.High))
	assert.Equal(t, gpio.High, pin.L)

	level, err := line.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, level)

	require.NoError(t, line.Out(ctx, gpio.Low))
	assert.Equal(t, gpio.Low, pin.L)
}

func TestPWMClock(t *testing.T) {
	pin := &gpiotest.Pin{N: "PWM0"}
	clock := NewPWMClock(pin)
	ctx := context.Background()

	assert.Error(t, clock.Enable(ctx, true), "clock without frequency must not start")

	require.NoError(t, clock.SetFrequency(ctx, 27*physic.MegaHertz))
	require.NoError(t, clock.Enable(ctx, true))
	assert.Equal(t, 27*physic.MegaHertz, pin.F)
	assert.Equal(t, gpio.DutyHalf, pin.D)

	require.NoError(t, clock.SetFrequency(ctx, 24*physic.MegaHertz))
	assert.Equal(t, 24*physic.MegaHertz, pin.F, "running clock should follow frequency changes")

	require.NoError(t, clock.Enable(ctx, false))
	assert.Equal(t, gpio.Low, pin.L)
}

type fakeDigitalPins struct {
	written map[string]byte
	values  map[string]int
	err     error
}

func (f *fakeDigitalPins) DigitalWrite(pin string, val byte) error {
	if f.err != nil {
		return f.err
	}
	f.written[pin] = val
	return nil
}

func (f *fakeDigitalPins) DigitalRead(pin string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.values[pin], nil
}

func TestGobotLine(t *testing.T) {
	pins := &fakeDigitalPins{written: map[string]byte{}, values: map[string]int{"11": 1}}
	ctx := context.Background()

	out := NewGobotLine(pins, "7")
	require.NoError(t, out.Out(ctx, gpio.High))
	assert.Equal(t, byte(1), pins.written["7"])

	in := NewGobotLine(pins, "11")
	level, err := in.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, level)

	pins.err = errors.New("unexported")
	assert.Error(t, out.Out(ctx, gpio.Low))
}

type fakeBridge struct {
	values adapter.MCP2221GPIOValues
	modes  map[int]adapter.GPIOMode
}

func (f *fakeBridge) SetGPIO(ctx context.Context, pin int, value bool) error {
	f.values.Values[pin] = 0
	if value {
		f.values.Values[pin] = 1
	}
	f.values.Modes[pin] = adapter.GPIOModeOut
	return nil
}

func (f *fakeBridge) SetGPIODirection(ctx context.Context, pin int, mode adapter.GPIOMode) error {
	f.values.Modes[pin] = mode
	return nil
}

func (f *fakeBridge) ReadGPIO(ctx context.Context) (adapter.MCP2221GPIOValues, error) {
	return f.values, nil
}

func TestBridgeLine(t *testing.T) {
	bridge := &fakeBridge{}
	bridge.values.Modes = [4]adapter.GPIOMode{adapter.GPIOModeOut, adapter.GPIOModeOut, adapter.GPIOModeNoOperation, adapter.GPIOModeOut}
	ctx := context.Background()

	_, err := NewBridgeLine(bridge, 4)
	assert.Error(t, err)

	line, err := NewBridgeLine(bridge, 1)
	require.NoError(t, err)
	require.NoError(t, line.Out(ctx, gpio.High))
	level, err := line.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, gpio.High, level)

	require.NoError(t, line.In(ctx))
	assert.Equal(t, adapter.GPIOModeIn, bridge.values.Modes[1])

	dedicated, err := NewBridgeLine(bridge, 2)
	require.NoError(t, err)
	_, err = dedicated.Read(ctx)
	assert.Error(t, err, "pins assigned to a dedicated function cannot be read")
}

type recordingLine struct {
	levels []gpio.Level
}

func (l *recordingLine) Out(ctx context.Context, level gpio.Level) error {
	l.levels = append(l.levels, level)
	return nil
}

func TestLineRail(t *testing.T) {
	ctx := context.Background()

	line := &recordingLine{}
	rail := NewLineRail(line, false)
	require.NoError(t, rail.Enable(ctx, true))
	require.NoError(t, rail.Enable(ctx, false))
	assert.Equal(t, []gpio.Level{gpio.High, gpio.Low}, line.levels)

	inverted := &recordingLine{}
	rail = NewLineRail(inverted, true)
	require.NoError(t, rail.Enable(ctx, true))
	assert.Equal(t, []gpio.Level{gpio.Low}, inverted.levels)
}

func TestFixedClock(t *testing.T) {
	ctx := context.Background()
	clock := &FixedClock{Frequency: 27 * physic.MegaHertz}
	assert.NoError(t, clock.SetFrequency(ctx, 27*physic.MegaHertz))
	assert.ErrorIs(t, clock.SetFrequency(ctx, 24*physic.MegaHertz), vdec.ErrUnsupportedFeature)
}
