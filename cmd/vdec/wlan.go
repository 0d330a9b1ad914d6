package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/wlan"
	"github.com/urfave/cli/v2"
)

const defaultSerialPath = "/sys/class/sunxi_info/sys_info"

var wlanCmd = cli.Command{
	Name:  "wlan",
	Usage: "bring up the SDIO wireless chip of the board",
	Subcommands: cli.Commands{
		&wlanUpCmd,
		&wlanDownCmd,
		&wlanMACCmd,
		&wlanIRQCmd,
	},
}

func openWLAN(c *cli.Context) (*wlan.Device, *rig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if cfg.WLAN == nil {
		return nil, nil, console.Exit(2, "no wlan section in %s", c.String("config"))
	}
	r, err := openTransport(cfg)
	if err != nil {
		return nil, nil, console.Fail("could not open transport", err)
	}
	opts := []wlan.Option{wlan.WithLogger(slog.Default().With("device", "wlan"))}
	var power vdec.Line
	if cfg.WLAN.Power != "" {
		line, err := r.registry.Resolve(cfg.WLAN.Power)
		if err != nil {
			_ = r.close()
			return nil, nil, console.Exit(2, "wlan power: %v", err)
		}
		r.closers = append(r.closers, line.Close)
		power = line
	}
	if cfg.WLAN.RescanPath != "" {
		opts = append(opts, wlan.WithRescanner(wlan.SysfsRescan{Path: cfg.WLAN.RescanPath}))
	}
	if cfg.WLAN.PowerSettle > 0 {
		opts = append(opts, wlan.WithPowerSettle(cfg.WLAN.PowerSettle))
	}
	if cfg.WLAN.OOBIRQ != "" {
		line, err := r.registry.ResolveInput(cfg.WLAN.OOBIRQ)
		if err != nil {
			_ = r.close()
			return nil, nil, console.Exit(2, "wlan oob interrupt: %v", err)
		}
		r.closers = append(r.closers, line.Close)
		opts = append(opts, wlan.WithOOBInterrupt(line))
	}
	return wlan.New(power, opts...), r, nil
}

var wlanUpCmd = cli.Command{
	Name:  "up",
	Usage: "power the chip and rescan the SDIO bus",
	Action: func(c *cli.Context) error {
		dev, r, err := openWLAN(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		if err := dev.Up(context.Background()); err != nil {
			return console.Fail("wlan up failed", err)
		}
		console.PInfof(console.PictoAntenna, "wlan %s", console.State("up", true))
		return nil
	},
}

var wlanDownCmd = cli.Command{
	Name:  "down",
	Usage: "remove power and rescan the SDIO bus",
	Action: func(c *cli.Context) error {
		dev, r, err := openWLAN(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		if err := dev.Down(context.Background()); err != nil {
			return console.Fail("wlan down failed", err)
		}
		console.PInfof(console.PictoAntenna, "wlan %s", console.State("down", false))
		return nil
	},
}

var wlanMACCmd = cli.Command{
	Name:  "mac",
	Usage: "print the station address derived from the SoC serial",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "serial", Usage: "hex serial number instead of reading it from the system"},
	},
	Action: func(c *cli.Context) error {
		var serial []byte
		var err error
		if s := c.String("serial"); s != "" {
			serial, err = wlan.ParseSerial(s)
		} else {
			path := defaultSerialPath
			if cfg, cerr := loadConfig(c); cerr == nil && cfg.WLAN != nil && cfg.WLAN.SerialPath != "" {
				path = cfg.WLAN.SerialPath
			}
			serial, err = wlan.ReadSerial(path)
		}
		if err != nil {
			return console.Fail("read serial", err)
		}
		mac, err := wlan.MACFromSerial(serial)
		if err != nil {
			return console.Fail("derive mac", err)
		}
		console.Printf("%s\n", mac)
		return nil
	},
}

var wlanIRQCmd = cli.Command{
	Name:  "irq",
	Usage: "count out-of-band interrupts until interrupted",
	Action: func(c *cli.Context) error {
		dev, r, err := openWLAN(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		var count atomic.Int64
		err = dev.WatchInterrupt(ctx, func() {
			n := count.Add(1)
			slog.Debug("wlan oob interrupt", "count", n)
		})
		if err != nil {
			return console.Fail("watch interrupt", err)
		}
		console.PInfof(console.PictoAntenna, "%d interrupts", count.Load())
		return nil
	},
}
