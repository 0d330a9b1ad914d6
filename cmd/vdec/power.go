package main

import (
	"context"
	"errors"

	"github.com/mklimuk/vdec"
	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
)

var powerCmd = cli.Command{
	Name:      "power",
	Usage:     "run a power transition (on, off, standby, wake)",
	ArgsUsage: "STATE",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
		&cli.BoolFlag{Name: "reset", Usage: "pulse the reset line after the transition"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return console.Exit(2, "expected exactly one power state")
		}
		target, err := sensor.ParsePowerState(c.Args().First())
		if err != nil {
			return console.Exit(2, "%v", err)
		}
		// every invocation starts with a fresh sequencer; anything but on
		// acts on a chip some earlier invocation powered
		var opts []sensor.DeviceOption
		if target != sensor.PowerOn {
			opts = append(opts, sensor.WithPowerOptions(sensor.WithInitialState(sensor.PowerOn)))
		}
		if target == sensor.PowerOff && !c.Bool("yes") {
			ok, err := console.Confirm("power the decoder off?")
			if err != nil {
				return console.Fail("prompt error", err)
			}
			if !ok {
				return nil
			}
		}
		r, err := openRig(c, opts...)
		if err != nil {
			return err
		}
		ctx := context.Background()
		defer r.shutdown(ctx, false)

		if err := r.device.Power(ctx, target); err != nil {
			if errors.Is(err, vdec.ErrResourceUnavailable) {
				return console.Fail("board resource failed", err)
			}
			return console.Fail("power transition failed", err)
		}
		if c.Bool("reset") {
			if err := r.device.Reset(ctx, true); err != nil {
				return console.Fail("reset failed", err)
			}
		}
		console.PInfof(console.PictoPower, "%s is %s", r.device.Chip().Name, console.State(r.device.PowerState(), r.device.PowerState() == sensor.PowerOn))
		return nil
	},
}
