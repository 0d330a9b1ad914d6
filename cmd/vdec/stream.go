package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/sensor"
	"github.com/urfave/cli/v2"
)

var streamCmd = cli.Command{
	Name:  "stream",
	Usage: "configure a mode and stream until interrupted",
	Flags: []cli.Flag{
		&cli.UintFlag{Name: "code", Usage: "media bus pixel code, the first chip format when unset"},
		&cli.UintFlag{Name: "width", Usage: "requested frame width"},
		&cli.UintFlag{Name: "height", Usage: "requested frame height"},
		&cli.BoolFlag{Name: "no-detect", Usage: "do not watch camera detection while streaming"},
	},
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer r.shutdown(context.Background(), true)

		if err := r.device.Power(ctx, sensor.PowerOn); err != nil {
			return console.Fail("power on failed", err)
		}
		if err := r.device.Init(ctx); err != nil {
			return console.Fail("probe failed", err)
		}
		if c.IsSet("code") || c.IsSet("width") || c.IsSet("height") {
			code := uint32(c.Uint("code"))
			if !c.IsSet("code") {
				code = r.device.Chip().Formats[0].Code
			}
			format, window, err := r.device.SetFormat(ctx, code, uint32(c.Uint("width")), uint32(c.Uint("height")))
			if err != nil {
				return console.Exit(2, "%v", err)
			}
			console.Infof("selected %s %s", console.Cyan(format.Description), window)
		}
		if err := r.device.Stream(ctx, true); err != nil {
			return console.Fail("stream on failed", err)
		}
		window, err := r.device.CurrentWindow()
		if err != nil {
			return console.Fail("current window", err)
		}
		format, err := r.device.CurrentFormat()
		if err != nil {
			return console.Fail("current format", err)
		}
		console.PInfof(console.PictoStream, "streaming %s %s (%#x, %d bytes per pixel)", window, format.Description, format.Code, format.BytesPerPixel)
		if !c.Bool("no-detect") {
			r.startDetection(ctx, consoleSink{})
		}

		<-ctx.Done()
		if err := r.device.Stream(context.Background(), false); err != nil {
			console.Errorf("stream off failed: %v", err)
		}
		console.PInfof(console.PictoStream, "stream stopped, cameras %s", r.device.DetectStatus())
		return nil
	},
}
