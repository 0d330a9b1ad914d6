package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/adapter"
	"github.com/mklimuk/vdec/board"
	"github.com/mklimuk/vdec/cci"
	"github.com/mklimuk/vdec/chips"
	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/config"
	"github.com/mklimuk/vdec/detect"
	"github.com/mklimuk/vdec/gpio"
	"github.com/mklimuk/vdec/i2c"
	"github.com/mklimuk/vdec/notify"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// rig is everything opened from the board configuration.
type rig struct {
	cfg       *config.Config
	entry     chips.Entry
	transport vdec.I2CBus
	registry  *gpio.Registry
	channel   *board.Channel
	device    *sensor.Device
	bridge    *adapter.MCP2221
	expander  *gpio.MCP23017
	closers   []func() error
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, console.Exit(2, "%v", err)
	}
	return cfg, nil
}

// openTransport opens the configured I2C transport and the line registry
// sharing it.
func openTransport(cfg *config.Config) (*rig, error) {
	r := &rig{cfg: cfg}
	var regOpts []gpio.RegistryOption
	switch cfg.I2C.Transport {
	case config.TransportPeriph:
		var opts []i2c.GenericBusOption
		if cfg.I2C.Speed != "" {
			var speed physic.Frequency
			if err := speed.Set(cfg.I2C.Speed); err != nil {
				return nil, fmt.Errorf("invalid i2c speed %q: %w", cfg.I2C.Speed, err)
			}
			opts = append(opts, i2c.WithSpeed(speed))
		}
		bus, err := i2c.NewGenericBus(cfg.I2C.Bus, opts...)
		if err != nil {
			return nil, err
		}
		r.transport = bus
		r.closers = append(r.closers, bus.Close)
	case config.TransportGobot:
		npi := nanopi.NewNeoAdaptor()
		if err := npi.Connect(); err != nil {
			return nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		busNr := -1
		if cfg.I2C.Bus != "" {
			n, err := strconv.Atoi(cfg.I2C.Bus)
			if err != nil {
				_ = npi.Finalize()
				return nil, fmt.Errorf("invalid gobot bus %q: %w", cfg.I2C.Bus, err)
			}
			busNr = n
		}
		bus := i2c.NewGobotBus(npi, busNr)
		r.transport = bus
		r.closers = append(r.closers, bus.Close, npi.Finalize)
		regOpts = append(regOpts, gpio.WithGobot(npi))
	case config.TransportMCP2221:
		r.bridge = adapter.NewMCP2221(adapter.WithDeviceIndex(cfg.I2C.DeviceIndex), adapter.WithLogger(slog.Default()))
		r.transport = r.bridge
		regOpts = append(regOpts, gpio.WithBridge(r.bridge))
	}
	if cfg.Expander != nil {
		expOpts := []gpio.MCP23017Option{gpio.WithBank(cfg.Expander.Bank)}
		if cfg.I2C.RetryLimit > 0 {
			expOpts = append(expOpts, gpio.WithExpanderRetryLimit(cfg.I2C.RetryLimit))
		}
		r.expander = gpio.NewMCP23017(r.transport, cfg.Expander.Address, expOpts...)
		regOpts = append(regOpts, gpio.WithExpander(r.expander))
	}
	r.registry = gpio.NewRegistry(regOpts...)
	return r, nil
}

// openRig opens the transport and assembles the decoder device.
func openRig(c *cli.Context, extra ...sensor.DeviceOption) (*rig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	entry, err := chips.Lookup(cfg.Chip)
	if err != nil {
		return nil, console.Exit(2, "%v", err)
	}
	r, err := openTransport(cfg)
	if err != nil {
		return nil, console.Fail("could not open transport", err)
	}
	r.entry = entry
	chip := entry.Chip()
	address := chip.Address
	if cfg.I2C.Address != 0 {
		address = cfg.I2C.Address
	}
	var retry []cci.ConfigOption
	if cfg.I2C.RetryLimit > 0 {
		retry = append(retry, cci.WithRetryLimit(cfg.I2C.RetryLimit))
	}
	opts := []board.Option{board.WithLogger(slog.Default())}
	for name, spec := range cfg.Lines {
		line, err := r.registry.Resolve(spec)
		if err != nil {
			_ = r.close()
			return nil, console.Exit(2, "line %s: %v", name, err)
		}
		opts = append(opts, board.WithLine(vdec.LineName(name), line))
	}
	for name, rail := range cfg.Rails {
		if rail.Pin == "" {
			opts = append(opts, board.WithRail(vdec.RailName(name), gpio.FixedRail{Name: name}))
			continue
		}
		line, err := r.registry.Resolve(rail.Pin)
		if err != nil {
			_ = r.close()
			return nil, console.Exit(2, "rail %s: %v", name, err)
		}
		opts = append(opts, board.WithRail(vdec.RailName(name), gpio.NewLineRail(line, rail.ActiveLow)))
	}
	clock, err := openClock(cfg.Clock)
	if err != nil {
		_ = r.close()
		return nil, console.Exit(2, "clock: %v", err)
	}
	if clock != nil {
		opts = append(opts, board.WithClock(clock))
	}
	r.channel = board.NewChannel(cci.New(r.transport, address, retry...), opts...)
	r.closers = append([]func() error{r.channel.Close}, r.closers...)

	devOpts := []sensor.DeviceOption{sensor.WithLogger(slog.Default().With("chip", chip.Name))}
	if c.Bool("legacy-probe") {
		devOpts = append(devOpts, sensor.WithRetryPolicy(sensor.RetryHighByte))
	}
	r.device = sensor.NewDevice(chip, r.channel, append(devOpts, extra...)...)
	return r, nil
}

func openClock(cfg config.Clock) (vdec.Clock, error) {
	if cfg.Pin != "" {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("could not init host: %w", err)
		}
		pin := gpioreg.ByName(cfg.Pin)
		if pin == nil {
			return nil, fmt.Errorf("no pwm pin %q: %w", cfg.Pin, vdec.ErrLineUnavailable)
		}
		return gpio.NewPWMClock(pin), nil
	}
	if cfg.Fixed != "" {
		var f physic.Frequency
		if err := f.Set(cfg.Fixed); err != nil {
			return nil, fmt.Errorf("invalid clock frequency %q: %w", cfg.Fixed, err)
		}
		return &gpio.FixedClock{Frequency: f}, nil
	}
	return nil, nil
}

// buildEngine discovers the detect lines of the chip and assembles an
// engine notifying the log, the configured broker and sinks.
func (r *rig) buildEngine(ctx context.Context, sinks ...detect.Sink) (*detect.Engine, error) {
	opts := r.entry.DiscoverOptions()
	if r.cfg.Detect.ActiveLow {
		opts = append(opts, detect.WithActiveLow())
	}
	opts = append(opts, detect.WithDiscoverLogger(slog.Default()))
	disc, err := detect.Discover(ctx, r.cfg.DetectGroup(), r.registry, opts...)
	if err != nil {
		if disc != nil {
			releaseLines(disc.Power)
		}
		return nil, err
	}
	var sched detect.Scheduler = detect.TimerPoll{Interval: r.cfg.Detect.Interval}
	if r.cfg.Detect.Mode == config.DetectEdge {
		sched = detect.EdgeInterrupt{Settle: r.cfg.Detect.Settle}
	}
	sink := notify.Multi{notify.LogSink{Device: r.cfg.Chip, Logger: slog.Default()}}
	sink = append(sink, sinks...)
	if m := r.cfg.MQTT; m != nil {
		mqttOpts := []notify.MQTTOption{notify.WithQoS(m.QoS)}
		if m.Topic != "" {
			mqttOpts = append(mqttOpts, notify.WithTopic(m.Topic))
		}
		if m.Retained {
			mqttOpts = append(mqttOpts, notify.WithRetained())
		}
		mqtt, err := notify.DialMQTT(m.Broker, m.ClientID, r.cfg.Chip, mqttOpts...)
		if err != nil {
			console.Warnf("mqtt notifications disabled: %v", err)
		} else {
			sink = append(sink, mqtt)
			r.closers = append([]func() error{mqtt.Close}, r.closers...)
		}
	}
	engine, err := detect.NewEngine(disc.Channels,
		detect.WithScheduler(sched),
		detect.WithSink(sink),
		detect.WithPowerLines(disc.Power...),
		detect.WithLogger(slog.Default().With("chip", r.cfg.Chip)),
	)
	if err != nil {
		releaseLines(disc.Power)
		return nil, err
	}
	return engine, nil
}

// startDetection starts the engine and hands it to the device. Detection
// problems are reported and leave detection disabled.
func (r *rig) startDetection(ctx context.Context, sinks ...detect.Sink) *detect.Engine {
	engine, err := r.buildEngine(ctx, sinks...)
	if err != nil {
		console.Warnf("detection disabled: %v", err)
		return nil
	}
	if err := engine.Start(ctx); err != nil {
		console.Warnf("detection disabled: %v", err)
		_ = engine.Stop()
		return nil
	}
	r.device.AttachDetector(engine)
	return engine
}

func releaseLines(lines []vdec.Line) {
	for _, l := range lines {
		if c, ok := l.(io.Closer); ok {
			_ = c.Close()
		}
	}
}

func (r *rig) close() error {
	var errs []error
	for _, c := range r.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// shutdown stops detection, powers the chip off when asked to and closes
// the transport.
func (r *rig) shutdown(ctx context.Context, powerOff bool) {
	if powerOff {
		if err := r.device.Close(ctx); err != nil {
			console.Errorf("could not close device: %v", err)
		}
	} else if err := r.device.StopDetection(); err != nil {
		console.Errorf("could not stop detection: %v", err)
	}
	if err := r.close(); err != nil {
		console.Errorf("could not release resources: %v", err)
	}
}
