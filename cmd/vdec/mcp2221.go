package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mklimuk/vdec/adapter"
	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "MCP2221 USB to I2C bridge",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "index", Usage: "bridge index when several are attached"},
	},
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
	},
}

func openBridge(c *cli.Context) *adapter.MCP2221 {
	return adapter.NewMCP2221(adapter.WithDeviceIndex(c.Int("index")), adapter.WithLogger(slog.Default()))
}

func printYAML(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	defer func() { _ = enc.Close() }()
	if err := enc.Encode(v); err != nil {
		return console.Fail("encoding error", err)
	}
	return nil
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		status, err := openBridge(c).Status(context.Background())
		if err != nil {
			return console.Fail("adapter communication error", err)
		}
		return printYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck transfer and free the bus",
	Action: func(c *cli.Context) error {
		status, err := openBridge(c).ReleaseBus(context.Background())
		if err != nil {
			return console.Fail("adapter communication error", err)
		}
		return printYAML(status)
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "read the GP0..GP3 pins or set them up",
	Subcommands: cli.Commands{
		{
			Name: "read",
			Action: func(c *cli.Context) error {
				values, err := openBridge(c).ReadGPIO(context.Background())
				if err != nil {
					return console.Fail("adapter communication error", err)
				}
				return printYAML(values)
			},
		},
		{
			Name:      "mode",
			Usage:     "set the mode of all four pins, e.g. out,in,in,noop",
			ArgsUsage: "MODES",
			Action: func(c *cli.Context) error {
				modes, err := parseGPIOModes(c.Args().First())
				if err != nil {
					return console.Exit(2, "%v", err)
				}
				if err := openBridge(c).SetGPIOFunction(context.Background(), modes); err != nil {
					return console.Fail("adapter communication error", err)
				}
				return nil
			},
		},
		{
			Name:      "set",
			ArgsUsage: "PIN 0|1",
			Action: func(c *cli.Context) error {
				var pin, value int
				if _, err := fmt.Sscanf(strings.Join(c.Args().Slice(), " "), "%d %d", &pin, &value); err != nil {
					return console.Exit(2, "expected a pin and a value: %v", err)
				}
				if err := openBridge(c).SetGPIO(context.Background(), pin, value != 0); err != nil {
					return console.Fail("adapter communication error", err)
				}
				return nil
			},
		},
	},
}

func parseGPIOModes(s string) ([4]adapter.GPIOMode, error) {
	var modes [4]adapter.GPIOMode
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return modes, fmt.Errorf("expected 4 modes, got %d", len(parts))
	}
	for i, p := range parts {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "out":
			modes[i] = adapter.GPIOModeOut
		case "in":
			modes[i] = adapter.GPIOModeIn
		case "noop", "-":
			modes[i] = adapter.GPIOModeNoOperation
		default:
			return modes, fmt.Errorf("invalid mode %q", p)
		}
	}
	return modes, nil
}
