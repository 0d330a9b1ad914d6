package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
)

var probeCmd = cli.Command{
	Name:  "probe",
	Usage: "power the decoder on, check its identity and print its capabilities",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "keep", Usage: "leave the chip powered after probing"},
	},
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		ctx := context.Background()
		defer r.shutdown(ctx, !c.Bool("keep"))

		if err := r.device.Power(ctx, sensor.PowerOn); err != nil {
			return console.Fail("power on failed", err)
		}
		console.PInfof(console.PictoPower, "%s powered %s", r.device.Chip().Name, r.device.PowerState())
		if err := r.device.Init(ctx); err != nil {
			return console.Fail("probe failed", err)
		}
		printChip(r.device)
		return nil
	},
}

func printChip(d *sensor.Device) {
	chip := d.Chip()
	console.PInfof(console.PictoChip, "%s found at %#02x, id %#04x", console.Green(chip.Name), chip.Address, d.Identity())
	bus := d.MediaBus()
	if bus.Type == sensor.BusCSI2 {
		console.Printf("bus: %s, %d lanes, %d virtual channels\n", bus.Type, bus.Lanes, bus.VirtualChannels)
	} else {
		edge := "rising"
		if bus.SampleFalling {
			edge = "falling"
		}
		console.Printf("bus: %s, pixel clock sampled on %s edge\n", bus.Type, edge)
	}
	w := tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "FORMAT\tCODE\tBPP\n")
	for _, f := range chip.Formats {
		_, _ = fmt.Fprintf(w, "%s\t%#x\t%d\n", f.Description, f.Code, f.BytesPerPixel)
	}
	_ = w.Flush()
	w = tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "WINDOW\tPCLK\tMIPI\tREGS\n")
	for _, win := range chip.Windows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", win, win.PixelClock, win.MIPIBitRate, len(win.Program))
	}
	_ = w.Flush()
	console.Printf("state: %s, power: %s\n", d.State(), d.PowerState())
}
