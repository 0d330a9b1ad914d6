// Package gpio provides the digital lines, rails and clocks a decoder board
// is wired with. Lines come from several providers: periph.io host pins,
// the Linux GPIO character device, gobot adaptors, an MCP23017 I/O expander
// and the MCP2221 USB bridge.
package gpio

import (
	"context"
	"time"

	"github.com/mklimuk/vdec"
)

// Pin is a line that can be both driven and sampled.
type Pin interface {
	vdec.ClaimableLine
	vdec.InputLine
	Close() error
}

// edgePollInterval bounds how long a blocking edge wait may ignore
// context cancellation.
const edgePollInterval = 100 * time.Millisecond

func waitContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
