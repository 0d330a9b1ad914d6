package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
)

var ctrlCmd = cli.Command{
	Name:  "ctrl",
	Usage: "gain and exposure controls",
	Subcommands: cli.Commands{
		&ctrlListCmd,
		&ctrlGetCmd,
		&ctrlSetCmd,
	},
}

var ctrlListCmd = cli.Command{
	Name:  "list",
	Usage: "print control ranges",
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		w := tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "CONTROL\tMIN\tMAX\tSTEP\tDEFAULT\tVOLATILE\n")
		for _, ctrl := range []sensor.Control{sensor.ControlGain, sensor.ControlExposure} {
			rng, err := r.device.ControlRange(ctrl)
			if err != nil {
				return console.Fail("control range", err)
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%t\n", ctrl, rng.Min, rng.Max, rng.Step, rng.Default, rng.Volatile)
		}
		_ = w.Flush()
		return nil
	},
}

var ctrlGetCmd = cli.Command{
	Name:      "get",
	Usage:     "print the value of a control",
	ArgsUsage: "CONTROL",
	Action: func(c *cli.Context) error {
		ctrl, err := sensor.ParseControl(c.Args().First())
		if err != nil {
			return console.Exit(2, "%v", err)
		}
		r, err := openRig(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		v, err := r.device.Control(ctrl)
		if err != nil {
			return console.Fail("read control", err)
		}
		console.PInfof(console.PictoKnob, "%s = %d", ctrl, v)
		return nil
	},
}

var ctrlSetCmd = cli.Command{
	Name:      "set",
	Usage:     "validate and store control values",
	ArgsUsage: "CONTROL VALUE | --exposure N --gain N",
	Flags: []cli.Flag{
		&cli.Int64Flag{Name: "exposure", Usage: "exposure, set together with --gain"},
		&cli.Int64Flag{Name: "gain", Usage: "gain, set together with --exposure"},
	},
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		defer func() { _ = r.close() }()
		if c.IsSet("exposure") || c.IsSet("gain") {
			if !c.IsSet("exposure") || !c.IsSet("gain") {
				return console.Exit(2, "--exposure and --gain go together")
			}
			if err := r.device.SetExposureGain(int32(c.Int64("exposure")), int32(c.Int64("gain"))); err != nil {
				return console.Fail("set exposure and gain", err)
			}
			console.PInfof(console.PictoKnob, "exposure = %d, gain = %d", c.Int64("exposure"), c.Int64("gain"))
			return nil
		}
		if c.NArg() != 2 {
			return console.Exit(2, "expected a control and a value")
		}
		ctrl, err := sensor.ParseControl(c.Args().Get(0))
		if err != nil {
			return console.Exit(2, "%v", err)
		}
		v, err := strconv.ParseInt(c.Args().Get(1), 0, 32)
		if err != nil {
			return console.Exit(2, "invalid value %q: %v", c.Args().Get(1), err)
		}
		if err := r.device.SetControl(ctrl, int32(v)); err != nil {
			return console.Fail("set control", err)
		}
		console.PInfof(console.PictoKnob, "%s = %d", ctrl, v)
		return nil
	},
}
