package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/gpio"
)

// Group keys of a detect configuration group.
const (
	KeyPower       = "gpio_power"
	KeyPowerPrefix = "gpio_power_"
	KeyDetect      = "gpio_detect_"
)

// DefaultPowerSettle is the wait after driving each per-channel detect
// power line.
const DefaultPowerSettle = 10 * time.Millisecond

// Resolver turns a pin spec into a line.
type Resolver interface {
	Resolve(spec string) (gpio.Pin, error)
	ResolveInput(spec string) (gpio.Pin, error)
}

// Discovery is the result of Discover.
type Discovery struct {
	Channels []*Channel
	Power    []vdec.Line
}

type discoverConfig struct {
	perChannelPower bool
	settle          time.Duration
	activeLow       bool
	logger          *slog.Logger
	sleep           func(time.Duration)
}

type DiscoverOption func(*discoverConfig)

// WithPerChannelPower looks up gpio_power_<i> lines instead of a single
// shared gpio_power line.
func WithPerChannelPower() DiscoverOption {
	return func(c *discoverConfig) {
		c.perChannelPower = true
	}
}

func WithPowerSettle(d time.Duration) DiscoverOption {
	return func(c *discoverConfig) {
		c.settle = d
	}
}

func WithActiveLow() DiscoverOption {
	return func(c *discoverConfig) {
		c.activeLow = true
	}
}

func WithDiscoverLogger(logger *slog.Logger) DiscoverOption {
	return func(c *discoverConfig) {
		c.logger = logger
	}
}

func WithDiscoverSleep(sleep func(time.Duration)) DiscoverOption {
	return func(c *discoverConfig) {
		c.sleep = sleep
	}
}

// Discover powers the detect circuitry described by group and acquires
// the detect lines gpio_detect_0..3 as inputs. Missing or unusable lines
// are skipped and the remaining ones keep their configured index. A nil
// group means detection is not configured.
func Discover(ctx context.Context, group map[string]string, resolver Resolver, opts ...DiscoverOption) (*Discovery, error) {
	cfg := discoverConfig{
		settle: DefaultPowerSettle,
		logger: slog.Default(),
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if group == nil {
		return nil, fmt.Errorf("detect: %w: no detect group", vdec.ErrConfigMissing)
	}
	res := &Discovery{}
	if cfg.perChannelPower {
		for i := 0; i < MaxChannels; i++ {
			if line := powerLine(ctx, cfg.logger, resolver, group, fmt.Sprintf("%s%d", KeyPowerPrefix, i)); line != nil {
				res.Power = append(res.Power, line)
			}
			cfg.sleep(cfg.settle)
		}
	} else if line := powerLine(ctx, cfg.logger, resolver, group, KeyPower); line != nil {
		res.Power = append(res.Power, line)
	}

	for i := 0; i < MaxChannels; i++ {
		key := fmt.Sprintf("%s%d", KeyDetect, i)
		spec, ok := group[key]
		if !ok || spec == "" {
			continue
		}
		line, err := resolver.ResolveInput(spec)
		if err != nil {
			cfg.logger.Warn("could not resolve detect line", "key", key, "spec", spec, "error", err)
			continue
		}
		if err := line.In(ctx); err != nil {
			cfg.logger.Warn("could not acquire detect line", "key", key, "spec", spec, "error", err)
			_ = line.Close()
			continue
		}
		ch := NewChannel(i, line)
		ch.ActiveLow = cfg.activeLow
		res.Channels = append(res.Channels, ch)
	}
	if len(res.Channels) == 0 {
		return res, fmt.Errorf("detect: %w: no usable detect line", vdec.ErrLineUnavailable)
	}
	return res, nil
}

// powerLine drives a detect power line high. Failures are logged only.
func powerLine(ctx context.Context, logger *slog.Logger, resolver Resolver, group map[string]string, key string) vdec.Line {
	spec, ok := group[key]
	if !ok || spec == "" {
		return nil
	}
	line, err := resolver.Resolve(spec)
	if err != nil {
		logger.Warn("could not resolve detect power line", "key", key, "spec", spec, "error", err)
		return nil
	}
	if err := line.Out(ctx, true); err != nil {
		logger.Warn("could not enable detect power", "key", key, "spec", spec, "error", err)
		_ = line.Close()
		return nil
	}
	return line
}
