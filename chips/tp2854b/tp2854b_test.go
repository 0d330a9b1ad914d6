package tp2854b

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mklimuk/vdec/bustest"
	"github.com/mklimuk/vdec/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestPowerOnSequence(t *testing.T) {
	ch := bustest.NewChannel()
	var sleeps []time.Duration
	p := sensor.NewPowerSequencer(ch, Chip().Power, sensor.WithSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))

	require.NoError(t, p.Transition(context.Background(), sensor.PowerOn))
	expected := []bustest.Op{
		"lock",
		"claim pwdn", "claim reset", "claim power_en",
		"line reset=Low", "line pwdn=Low",
		"line power_en=High",
		"rail iovdd=on",
		"rail dvdd=on", "rail avdd=on",
		bustest.Op(fmt.Sprintf("clock %s", 24*physic.MegaHertz)), "clock on",
		"line reset=High", "line pwdn=High",
		"unlock",
	}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("power on sequence mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []time.Duration{2 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond, 30 * time.Millisecond}, sleeps)
}

func TestPowerOffSequence(t *testing.T) {
	ch := bustest.NewChannel()
	p := sensor.NewPowerSequencer(ch, Chip().Power, sensor.WithSleep(func(time.Duration) {}))
	ctx := context.Background()
	require.NoError(t, p.Transition(ctx, sensor.PowerOn))
	ch.Reset()

	require.NoError(t, p.Transition(ctx, sensor.PowerOff))
	expected := []bustest.Op{
		"lock",
		"line reset=Low", "line pwdn=Low",
		"clock off",
		"rail afvdd=off", "rail avdd=off", "rail dvdd=off", "rail iovdd=off",
		"line power_en=Low",
		"release pwdn", "release reset", "release power_en",
		"unlock",
	}
	if diff := cmp.Diff(expected, ch.Ops()); diff != "" {
		t.Errorf("power off sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestStreamWritesFullProgram(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Regs[0xfe] = 0x54
	ch.Regs[0xff] = 0x28
	dev := sensor.NewDevice(Chip(), ch, sensor.WithPowerOptions(sensor.WithSleep(func(time.Duration) {})))
	ctx := context.Background()
	require.NoError(t, dev.Init(ctx))
	ch.Reset()

	require.NoError(t, dev.Stream(ctx, true))
	writes := ch.Writes()
	require.Len(t, writes, len(program1080p25))
	assert.Equal(t, bustest.Op("write 0x40=0x04"), writes[0])
	assert.Equal(t, bustest.Op("write 0x23=0x00"), writes[len(writes)-1], "csi-2 output is enabled last")
	assert.Equal(t, 1, ch.Count("write 0x40=0x08"))

	w, h := dev.Size()
	assert.Equal(t, uint32(1920), w)
	assert.Equal(t, uint32(1080), h)
	bus := dev.MediaBus()
	assert.Equal(t, sensor.BusCSI2, bus.Type)
	assert.Equal(t, 4, bus.Lanes)
	assert.Equal(t, 4, bus.VirtualChannels)
}

func TestDumpRegisters(t *testing.T) {
	regs := Chip().DumpRegisters
	assert.Len(t, regs, 239)
	assert.NotContains(t, regs, byte(0x60))
	assert.NotContains(t, regs, byte(0xe5))
	assert.Contains(t, regs, byte(0xff))
}

func TestDiscoverOptions(t *testing.T) {
	assert.Len(t, DiscoverOptions(), 2)
}
