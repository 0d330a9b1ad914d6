package detect

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/bustest"
	"github.com/mklimuk/vdec/gpio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]*bustest.Line

func (r fakeResolver) Resolve(spec string) (gpio.Pin, error) {
	line, ok := r[spec]
	if !ok {
		return nil, fmt.Errorf("no pin %s: %w", spec, vdec.ErrLineUnavailable)
	}
	return line, nil
}

func (r fakeResolver) ResolveInput(spec string) (gpio.Pin, error) {
	return r.Resolve(spec)
}

func TestDiscover_MissingGroup(t *testing.T) {
	_, err := Discover(context.Background(), nil, fakeResolver{})
	assert.ErrorIs(t, err, vdec.ErrConfigMissing)
}

func TestDiscover_SharedPower(t *testing.T) {
	power := bustest.NewLine()
	det0 := bustest.NewLine()
	det2 := bustest.NewLine()
	resolver := fakeResolver{"cdev:10": power, "cdev:20": det0, "cdev:22": det2}
	group := map[string]string{
		KeyPower:        "cdev:10",
		"gpio_detect_0": "cdev:20",
		"gpio_detect_1": "cdev:21",
		"gpio_detect_2": "cdev:22",
	}

	res, err := Discover(context.Background(), group, resolver, WithDiscoverSleep(func(time.Duration) {
		t.Fatal("shared power has no settle")
	}))
	require.NoError(t, err)
	assert.Equal(t, bustest.Levels(1), power.Outs)
	require.Len(t, res.Power, 1)
	require.Len(t, res.Channels, 2, "unresolvable line 1 is skipped")
	assert.Equal(t, 0, res.Channels[0].Index)
	assert.Equal(t, 2, res.Channels[1].Index)
	assert.Equal(t, 1, det2.Inputs)
}

func TestDiscover_PerChannelPower(t *testing.T) {
	p0 := bustest.NewLine()
	p2 := bustest.NewLine()
	resolver := fakeResolver{"gobot:1": p0, "gobot:3": p2, "gobot:5": bustest.NewLine()}
	group := map[string]string{
		"gpio_power_0":  "gobot:1",
		"gpio_power_1":  "gobot:2",
		"gpio_power_2":  "gobot:3",
		"gpio_detect_0": "gobot:5",
	}
	var sleeps []time.Duration
	res, err := Discover(context.Background(), group, resolver,
		WithPerChannelPower(),
		WithActiveLow(),
		WithDiscoverSleep(func(d time.Duration) { sleeps = append(sleeps, d) }))
	require.NoError(t, err)
	assert.Equal(t, bustest.Levels(1), p0.Outs)
	assert.Equal(t, bustest.Levels(1), p2.Outs)
	assert.Len(t, res.Power, 2)
	assert.Equal(t, []time.Duration{DefaultPowerSettle, DefaultPowerSettle, DefaultPowerSettle, DefaultPowerSettle}, sleeps,
		"every power index settles, wired or not")
	require.Len(t, res.Channels, 1)
	assert.True(t, res.Channels[0].ActiveLow)
}

func TestDiscover_NoUsableLine(t *testing.T) {
	power := bustest.NewLine()
	group := map[string]string{KeyPower: "cdev:1", "gpio_detect_0": "cdev:9", "gpio_detect_7": "cdev:1"}
	res, err := Discover(context.Background(), group, fakeResolver{"cdev:1": power})
	assert.ErrorIs(t, err, vdec.ErrLineUnavailable)
	require.NotNil(t, res)
	assert.Len(t, res.Power, 1, "power stays on so the caller can release it")
}
