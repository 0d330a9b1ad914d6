package sensor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/vdec"
)

// IdentityAttempts is the total number of identity reads before giving up.
const IdentityAttempts = 5

// RetryPolicy selects what an identity retry re-reads.
type RetryPolicy int

const (
	// RetryFullPair re-reads both identity bytes on every attempt.
	RetryFullPair RetryPolicy = iota
	// RetryHighByte re-reads only the high byte and combines it with the
	// low byte of the first attempt.
	RetryHighByte
)

func (p RetryPolicy) String() string {
	if p == RetryHighByte {
		return "high-byte"
	}
	return "full-pair"
}

// ProbeIdentity reads the identity registers until they match or
// IdentityAttempts reads were made. Read errors count as failed attempts.
func ProbeIdentity(ctx context.Context, bus vdec.RegisterBus, id Identity, policy RetryPolicy, logger *slog.Logger) (uint16, error) {
	var low, high byte
	var haveLow bool
	var got uint16
	var lastErr error
	for attempt := 1; attempt <= IdentityAttempts; attempt++ {
		var err error
		if !haveLow || policy == RetryFullPair {
			low, err = bus.ReadReg(ctx, id.LowReg)
			if err != nil {
				lastErr = err
				logger.Debug("identity read failed", "attempt", attempt, "register", id.LowReg, "error", err)
				continue
			}
			haveLow = true
		}
		high, err = bus.ReadReg(ctx, id.HighReg)
		if err != nil {
			lastErr = err
			logger.Debug("identity read failed", "attempt", attempt, "register", id.HighReg, "error", err)
			continue
		}
		got = uint16(high)<<8 | uint16(low)
		if got == id.Expected {
			logger.Debug("identity matched", "id", fmt.Sprintf("%#04x", got), "attempt", attempt)
			return got, nil
		}
		lastErr = nil
		logger.Debug("identity mismatch", "attempt", attempt, "got", fmt.Sprintf("%#04x", got), "expected", fmt.Sprintf("%#04x", id.Expected))
	}
	if lastErr != nil {
		return got, fmt.Errorf("sensor: expected id %#04x after %d attempts: %w: %w", id.Expected, IdentityAttempts, vdec.ErrIdentityMismatch, lastErr)
	}
	return got, fmt.Errorf("sensor: expected id %#04x, got %#04x after %d attempts: %w", id.Expected, got, IdentityAttempts, vdec.ErrIdentityMismatch)
}
