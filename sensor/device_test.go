package sensor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/bustest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChip() *Chip {
	return &Chip{
		Name:     "testchip",
		Identity: Identity{LowReg: 0xfe, HighReg: 0xff, Expected: 0x2854},
		Power:    testProfile(),
		MediaBus: MediaBus{Type: BusCSI2, Lanes: 4, VirtualChannels: 4},
		Formats: []Format{
			{Description: "UYVY 1x16", Code: MediaBusUYVY8_1X16, BytesPerPixel: 2},
		},
		Windows: []Window{
			{Width: 1280, Height: 720, FPS: 30, Program: Program{{0x40, 0x04}, {0x02, 0x05}}},
			{Width: 1920, Height: 1080, FPS: 25, Program: Program{{0x40, 0x04}, {0x02, 0x04}}},
		},
		Gain:          testGain,
		Exposure:      testExposure,
		DumpRegisters: []byte{0xfe, 0xff},
	}
}

func newTestDevice(ch *bustest.Channel, opts ...DeviceOption) *Device {
	opts = append([]DeviceOption{WithPowerOptions(WithSleep(func(time.Duration) {}))}, opts...)
	return NewDevice(testChip(), ch, opts...)
}

func TestProbeIdentity_MatchOnThirdAttempt(t *testing.T) {
	ch := bustest.NewChannel()
	ch.ReadScript[0xfe] = []byte{0x54, 0x54, 0x54}
	ch.ReadScript[0xff] = []byte{0x00, 0x27, 0x28}

	id, err := ProbeIdentity(context.Background(), ch, testChip().Identity, RetryFullPair, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2854), id)
	assert.Equal(t, 3, ch.Count("read 0xfe"))
	assert.Equal(t, 3, ch.Count("read 0xff"))
}

func TestProbeIdentity_GivesUpAfterFiveAttempts(t *testing.T) {
	for _, policy := range []RetryPolicy{RetryFullPair, RetryHighByte} {
		t.Run(policy.String(), func(t *testing.T) {
			ch := bustest.NewChannel()
			ch.Regs[0xfe] = 0x50
			ch.Regs[0xff] = 0x28

			_, err := ProbeIdentity(context.Background(), ch, testChip().Identity, policy, slog.Default())
			assert.ErrorIs(t, err, vdec.ErrIdentityMismatch)
			assert.Equal(t, IdentityAttempts, ch.Count("read 0xff"))
			if policy == RetryFullPair {
				assert.Equal(t, IdentityAttempts, ch.Count("read 0xfe"))
			} else {
				assert.Equal(t, 1, ch.Count("read 0xfe"), "legacy retry re-reads only the high byte")
			}
			assert.Len(t, ch.Ops(), ch.Count("read 0xfe")+ch.Count("read 0xff"))
		})
	}
}

func TestProbeIdentity_HighByteRecombinesFirstLowByte(t *testing.T) {
	ch := bustest.NewChannel()
	ch.ReadScript[0xfe] = []byte{0x54}
	ch.ReadScript[0xff] = []byte{0xff, 0xff, 0x28}

	id, err := ProbeIdentity(context.Background(), ch, testChip().Identity, RetryHighByte, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2854), id)
	assert.Equal(t, 1, ch.Count("read 0xfe"))
}

func TestDevice_Init(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Regs[0xfe] = 0x54
	ch.Regs[0xff] = 0x28
	dev := newTestDevice(ch)

	require.NoError(t, dev.Init(context.Background()))
	assert.Equal(t, StateConfigured, dev.State())
	assert.Equal(t, uint16(0x2854), dev.Identity())
	assert.False(t, ch.IsLocked())
	ops := ch.Ops()
	assert.Equal(t, bustest.Op("lock"), ops[0])
	assert.Equal(t, bustest.Op("unlock"), ops[len(ops)-1])
}

func TestDevice_InitMismatch(t *testing.T) {
	ch := bustest.NewChannel()
	dev := newTestDevice(ch)

	err := dev.Init(context.Background())
	assert.ErrorIs(t, err, vdec.ErrIdentityMismatch)
	assert.Equal(t, StateUninitialized, dev.State())
	assert.ErrorIs(t, dev.Stream(context.Background(), true), vdec.ErrNotInitialized)
	assert.Empty(t, ch.Writes())

	// the caller may retry init
	ch.Regs[0xfe] = 0x54
	ch.Regs[0xff] = 0x28
	require.NoError(t, dev.Init(context.Background()))
	assert.Equal(t, StateConfigured, dev.State())
}

func initDevice(t *testing.T) (*Device, *bustest.Channel) {
	t.Helper()
	ch := bustest.NewChannel()
	ch.Regs[0xfe] = 0x54
	ch.Regs[0xff] = 0x28
	dev := newTestDevice(ch)
	require.NoError(t, dev.Init(context.Background()))
	ch.Reset()
	return dev, ch
}

func TestDevice_Stream(t *testing.T) {
	dev, ch := initDevice(t)
	ctx := context.Background()

	_, err := dev.CurrentWindow()
	assert.ErrorIs(t, err, vdec.ErrNotInitialized)

	_, _, err = dev.SetFormat(ctx, MediaBusUYVY8_1X16, 1920, 1080)
	require.NoError(t, err)
	require.NoError(t, dev.Stream(ctx, true))
	assert.Equal(t, []bustest.Op{"lock", "write 0x40=0x04", "write 0x02=0x04", "unlock"}, ch.Ops())
	assert.Equal(t, StateStreaming, dev.State())

	win, err := dev.CurrentWindow()
	require.NoError(t, err)
	assert.Equal(t, uint32(1920), win.Width)
	w, h := dev.Size()
	assert.Equal(t, uint32(1920), w)
	assert.Equal(t, uint32(1080), h)
	format, err := dev.CurrentFormat()
	require.NoError(t, err)
	assert.Equal(t, MediaBusUYVY8_1X16, format.Code)

	// enabling again re-applies
	require.NoError(t, dev.Stream(ctx, true))
	assert.Len(t, ch.Writes(), 4)

	// disabling writes nothing
	require.NoError(t, dev.Stream(ctx, false))
	assert.Len(t, ch.Writes(), 4)
	assert.Equal(t, StateConfigured, dev.State())
}

func TestDevice_StreamFailureKeepsPreviousWindow(t *testing.T) {
	dev, ch := initDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Stream(ctx, true))

	_, _, err := dev.SetFormat(ctx, MediaBusUYVY8_1X16, 1920, 1080)
	require.NoError(t, err)
	ch.Fail["write 0x02=0x04"] = assert.AnError
	err = dev.Stream(ctx, true)
	assert.ErrorIs(t, err, vdec.ErrWriteFailed)

	win, err := dev.CurrentWindow()
	require.NoError(t, err)
	assert.Equal(t, uint32(1280), win.Width, "applied window only changes after a successful apply")
	assert.False(t, ch.IsLocked())
}

func TestDevice_SetFormat(t *testing.T) {
	dev, _ := initDevice(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		width, height uint32
		expected      uint32
	}{
		{"exact", 1280, 720, 1280},
		{"smallest covering", 1000, 600, 1280},
		{"covering only the large one", 1600, 900, 1920},
		{"larger than all", 4000, 3000, 1920},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, win, err := dev.SetFormat(ctx, MediaBusUYVY8_1X16, tt.width, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, win.Width)
		})
	}

	_, _, err := dev.SetFormat(ctx, MediaBusUYVY8_2X8, 1920, 1080)
	assert.ErrorIs(t, err, vdec.ErrNoMatchingMode)
}

func TestDevice_SetFormatRequiresInit(t *testing.T) {
	dev := newTestDevice(bustest.NewChannel())
	_, _, err := dev.SetFormat(context.Background(), MediaBusUYVY8_1X16, 1920, 1080)
	assert.ErrorIs(t, err, vdec.ErrNotInitialized)
}

func TestDevice_PowerOffResetsLifecycle(t *testing.T) {
	dev, _ := initDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Power(ctx, PowerOn))
	require.NoError(t, dev.Stream(ctx, true))

	require.NoError(t, dev.Power(ctx, PowerOff))
	assert.Equal(t, PowerOff, dev.PowerState())
	assert.Equal(t, StateUninitialized, dev.State())
	_, err := dev.CurrentWindow()
	assert.ErrorIs(t, err, vdec.ErrNotInitialized)
}

func TestDevice_Controls(t *testing.T) {
	dev := newTestDevice(bustest.NewChannel())
	assert.ErrorIs(t, dev.SetControl(ControlGain, 0), vdec.ErrOutOfRange)
	v, err := dev.Control(ControlGain)
	require.NoError(t, err)
	assert.Equal(t, int32(1600), v)

	require.NoError(t, dev.SetExposureGain(4096, 6400))
	v, err = dev.Control(ControlExposure)
	require.NoError(t, err)
	assert.Equal(t, int32(4096), v)
}

type fakeDetector struct {
	dev          *Device
	stopped      bool
	powerAtStop  PowerState
	statusString string
}

func (f *fakeDetector) StatusString() string {
	return f.statusString
}

func (f *fakeDetector) Stop() error {
	f.stopped = true
	f.powerAtStop = f.dev.PowerState()
	return nil
}

func TestDevice_CloseStopsDetectionBeforePowerOff(t *testing.T) {
	dev, _ := initDevice(t)
	ctx := context.Background()
	assert.Equal(t, "0x0", dev.DetectStatus())

	det := &fakeDetector{dev: dev, statusString: "0x10"}
	dev.AttachDetector(det)
	assert.Equal(t, "0x10", dev.DetectStatus())
	require.NoError(t, dev.Power(ctx, PowerOn))

	require.NoError(t, dev.Close(ctx))
	assert.True(t, det.stopped)
	assert.Equal(t, PowerOn, det.powerAtStop)
	assert.Equal(t, PowerOff, dev.PowerState())
	assert.Equal(t, "0x0", dev.DetectStatus())
}

func TestDevice_Dump(t *testing.T) {
	dev, ch := initDevice(t)
	prog, err := dev.Dump(context.Background(), 0x00)
	require.NoError(t, err)
	assert.Equal(t, Program{{0xfe, 0x54}, {0xff, 0x28}}, prog)
	assert.Equal(t, 1, ch.Count("write 0x40=0x00"))
}

func TestDevice_StopDetectionKeepsPower(t *testing.T) {
	dev, _ := initDevice(t)
	ctx := context.Background()
	require.NoError(t, dev.Power(ctx, PowerOn))
	det := &fakeDetector{dev: dev, statusString: "0x1"}
	dev.AttachDetector(det)

	require.NoError(t, dev.StopDetection())
	assert.True(t, det.stopped)
	assert.Equal(t, PowerOn, dev.PowerState())
	assert.Equal(t, "0x0", dev.DetectStatus())
	require.NoError(t, dev.StopDetection(), "stopping twice is a no-op")
}

func TestDevice_CloseAfterFailedPowerOn(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Fail["rail avdd=on"] = errors.New("regulator fault")
	dev := newTestDevice(ch)
	ctx := context.Background()

	require.ErrorIs(t, dev.Power(ctx, PowerOn), vdec.ErrResourceUnavailable)
	assert.Equal(t, PowerOff, dev.PowerState())
	require.True(t, ch.Rails[vdec.RailIO])

	require.NoError(t, dev.Close(ctx))
	assert.False(t, ch.Rails[vdec.RailIO])
	assert.Equal(t, 1, ch.Count("rail iovdd=off"))
	assert.Equal(t, 1, ch.Count("release power_en"))
}

// flakyBus fails the first read of one register.
type flakyBus struct {
	*bustest.Channel
	addr   byte
	failed bool
}

func (b *flakyBus) ReadReg(ctx context.Context, addr byte) (byte, error) {
	if addr == b.addr && !b.failed {
		b.failed = true
		return 0, errors.New("nack")
	}
	return b.Channel.ReadReg(ctx, addr)
}

func TestIdentityRetry_HighByteRereadsFailedLowByte(t *testing.T) {
	ch := bustest.NewChannel()
	ch.Regs[0xfe] = 0x54
	ch.Regs[0xff] = 0x28
	bus := &flakyBus{Channel: ch, addr: 0xfe}

	id, err := ProbeIdentity(context.Background(), bus, testChip().Identity, RetryHighByte, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2854), id)
	assert.Equal(t, 1, ch.Count("read 0xfe"))
	assert.Equal(t, 1, ch.Count("read 0xff"))
}
