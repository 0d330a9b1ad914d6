package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/mklimuk/vdec/cmd/vdec/console"
	"github.com/mklimuk/vdec/detect"
	"github.com/urfave/cli/v2"
)

// consoleSink prints detection events.
type consoleSink struct{}

func (consoleSink) Notify(ctx context.Context, ev detect.Event) error {
	picto := console.PictoNoCamera
	if ev.Status == detect.StatusPresent {
		picto = console.PictoCamera
	}
	console.PInfof(picto, "%s channel %d %s (%s)", ev.Time.Format("15:04:05.000"), ev.Channel, ev.Status, ev)
	return nil
}

var detectCmd = cli.Command{
	Name:  "detect",
	Usage: "camera hot-plug detection",
	Subcommands: cli.Commands{
		&detectWatchCmd,
		&detectStatusCmd,
	},
}

var detectWatchCmd = cli.Command{
	Name:  "watch",
	Usage: "report camera changes until interrupted",
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer r.shutdown(context.Background(), false)

		engine, err := r.buildEngine(ctx, consoleSink{})
		if err != nil {
			return console.Fail("detection unavailable", err)
		}
		if err := engine.Start(ctx); err != nil {
			_ = engine.Stop()
			return console.Fail("could not start detection", err)
		}
		r.device.AttachDetector(engine)
		console.PInfof(console.PictoPlug, "watching %d channels (%s)", engine.Channels(), r.cfg.Detect.Mode)
		<-ctx.Done()
		console.PInfof(console.PictoPlug, "last status %s", engine.StatusString())
		return nil
	},
}

var detectStatusCmd = cli.Command{
	Name:  "status",
	Usage: "sample every detect line once",
	Action: func(c *cli.Context) error {
		r, err := openRig(c)
		if err != nil {
			return err
		}
		ctx := context.Background()
		defer r.shutdown(ctx, false)

		engine, err := r.buildEngine(ctx)
		if err != nil {
			return console.Fail("detection unavailable", err)
		}
		defer func() {
			if err := engine.Stop(); err != nil {
				console.Errorf("could not release detect lines: %v", err)
			}
		}()
		engine.PollOnce(ctx)
		w := tabwriter.NewWriter(console.Writer(), 8, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "CHANNEL\tSTATUS\n")
		for _, index := range engine.Indices() {
			_, _ = fmt.Fprintf(w, "%d\t%s\n", index, engine.Status(index))
		}
		_ = w.Flush()
		console.Printf("%s\n", engine.StatusString())
		return nil
	},
}
