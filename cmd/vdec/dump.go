package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
)

var dumpCmd = cli.Command{
	Name:  "dump",
	Usage: "print the chip registers page by page",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{Name: "page", Aliases: []string{"p"}, Usage: "page to dump, all chip pages when unset"},
		&cli.BoolFlag{Name: "power", Usage: "power the chip on before dumping and off afterwards"},
	},
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		ctx := context.Background()
		defer r.shutdown(ctx, c.Bool("power"))

		pages := r.entry.DumpPages
		if c.IsSet("page") {
			pages = nil
			for _, p := range c.StringSlice("page") {
				v, err := strconv.ParseUint(p, 0, 8)
				if err != nil {
					return console.Exit(2, "invalid page %q: %v", p, err)
				}
				pages = append(pages, byte(v))
			}
		}
		if c.Bool("power") {
			if err := r.device.Power(ctx, sensor.PowerOn); err != nil {
				return console.Fail("power on failed", err)
			}
		}
		for _, page := range pages {
			prog, err := r.device.Dump(ctx, page)
			if err != nil {
				return console.Fail(fmt.Sprintf("dump of page %#02x", page), err)
			}
			console.PInfof(console.PictoNotebook, "page %#02x", page)
			printRegisters(prog)
		}
		return nil
	},
}

// printRegisters prints 16 registers per row.
func printRegisters(prog sensor.Program) {
	w := tabwriter.NewWriter(console.Writer(), 4, 0, 1, ' ', 0)
	for i, rv := range prog {
		_, _ = fmt.Fprintf(w, "%02x:%02x\t", rv.Addr, rv.Val)
		if i%16 == 15 {
			_, _ = fmt.Fprintln(w)
		}
	}
	if len(prog)%16 != 0 {
		_, _ = fmt.Fprintln(w)
	}
	_ = w.Flush()
}
