package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/gpio"
	"github.com/urfave/cli/v2"
)

var expanderCmd = cli.Command{
	Name:  "expander",
	Usage: "MCP23017 I/O expander of the board",
	Subcommands: cli.Commands{
		&expanderStatusCmd,
		&expanderReadCmd,
		&expanderConfigureCmd,
		&expanderPullCmd,
	},
}

var portFlag = &cli.StringFlag{Name: "port", Value: "A", Usage: "expander port (A or B)"}

var maskFlag = &cli.StringFlag{Name: "mask", Required: true, Usage: "port bits, e.g. 0xff or 0b00001111"}

func openExpander(c *cli.Context) (*rig, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if cfg.Expander == nil {
		return nil, console.Exit(2, "no expander in %s", c.String("config"))
	}
	r, err := openTransport(cfg)
	if err != nil {
		return nil, console.Fail("could not open transport", err)
	}
	return r, nil
}

func parsePort(s string) (gpio.Port, error) {
	switch strings.ToUpper(s) {
	case "A":
		return gpio.PortA, nil
	case "B":
		return gpio.PortB, nil
	}
	return 0, console.Exit(2, "invalid port %q", s)
}

func parseMask(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, console.Exit(2, "invalid mask %q: %v", s, err)
	}
	return byte(v), nil
}

var expanderStatusCmd = cli.Command{
	Name:  "status",
	Usage: "print the IOCON register",
	Action: func(c *cli.Context) error {
		r, err := openExpander(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		settings, err := r.expander.ReadSettings(context.Background())
		if err != nil {
			return console.Fail("expander communication error", err)
		}
		console.PInfof(console.PictoPin, "IOCON %#08b", settings)
		return nil
	},
}

var expanderReadCmd = cli.Command{
	Name:  "read",
	Usage: "print both input ports",
	Action: func(c *cli.Context) error {
		r, err := openExpander(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		ports, err := r.expander.Read(context.Background())
		if err != nil {
			return console.Fail("expander communication error", err)
		}
		console.PInfof(console.PictoPin, "A %08b", ports[0])
		console.PInfof(console.PictoPin, "B %08b", ports[1])
		return nil
	},
}

var expanderConfigureCmd = cli.Command{
	Name:  "configure",
	Usage: "set port direction (1 bits are inputs)",
	Flags: []cli.Flag{portFlag, maskFlag},
	Action: func(c *cli.Context) error {
		port, err := parsePort(c.String("port"))
		if err != nil {
			return err
		}
		mask, err := parseMask(c.String("mask"))
		if err != nil {
			return err
		}
		r, err := openExpander(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		if err := r.expander.SetDirection(context.Background(), port, mask); err != nil {
			return console.Fail("expander communication error", err)
		}
		console.PInfof(console.PictoPin, "port %s direction %08b", port, mask)
		return nil
	},
}

var expanderPullCmd = cli.Command{
	Name:  "pull",
	Usage: "enable pull-up resistors (1 bits are pulled up)",
	Flags: []cli.Flag{portFlag, maskFlag},
	Action: func(c *cli.Context) error {
		port, err := parsePort(c.String("port"))
		if err != nil {
			return err
		}
		mask, err := parseMask(c.String("mask"))
		if err != nil {
			return err
		}
		r, err := openExpander(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		if err := r.expander.PullUp(context.Background(), port, mask); err != nil {
			return console.Fail("expander communication error", err)
		}
		console.PInfof(console.PictoPin, "port %s pull-up %08b", port, mask)
		return nil
	},
}
