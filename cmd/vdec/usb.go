package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/mklimuk/vdec/adapter"
	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/urfave/cli/v2"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "list USB HID devices, MCP2221 bridges first",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "bridges", Usage: "list only MCP2221 bridges"},
	},
	Action: func(c *cli.Context) error {
		printHID(console.Writer(), hid.Enumerate(0, 0), c.Bool("bridges"))
		return nil
	},
}

func isBridge(dev hid.DeviceInfo) bool {
	return dev.VendorID == adapter.VendorID && dev.ProductID == adapter.ProductID
}

// printHID lists the devices. Bridges carry the index the mcp2221 command
// accepts with --index.
func printHID(out io.Writer, devices []hid.DeviceInfo, bridgesOnly bool) {
	w := tabwriter.NewWriter(out, 8, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "INDEX\tVENDOR\tPRODUCT\tSERIAL\tNAME\tPATH\n")
	index := 0
	for _, dev := range devices {
		if isBridge(dev) {
			_, _ = fmt.Fprintf(w, "%d\t%#04x\t%#04x\t%s\t%s\t%s\n", index, dev.VendorID, dev.ProductID, dev.Serial, "MCP2221", dev.Path)
			index++
		}
	}
	if bridgesOnly {
		_ = w.Flush()
		return
	}
	for _, dev := range devices {
		if !isBridge(dev) {
			_, _ = fmt.Fprintf(w, "-\t%#04x\t%#04x\t%s\t%s %s\t%s\n", dev.VendorID, dev.ProductID, dev.Serial, dev.Manufacturer, dev.Product, dev.Path)
		}
	}
	_ = w.Flush()
}
