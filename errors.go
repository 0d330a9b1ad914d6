package vdec

import "errors"

var (
	// ErrResourceUnavailable is returned when a line, rail or clock
	// operation fails during a power transition.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrWriteFailed is returned when a register program could not be written.
	ErrWriteFailed = errors.New("register write failed")
	// ErrOutOfRange is returned when a control value is rejected.
	ErrOutOfRange = errors.New("value out of range")
	// ErrIdentityMismatch is returned when the chip identity does not match.
	ErrIdentityMismatch = errors.New("chip identity mismatch")
	// ErrConfigMissing disables detection when its configuration group is absent.
	ErrConfigMissing = errors.New("detection configuration missing")
	// ErrLineUnavailable is returned when a line cannot be resolved or acquired.
	ErrLineUnavailable = errors.New("line unavailable")

	ErrNotInitialized     = errors.New("device not initialized")
	ErrInvalidPowerState  = errors.New("invalid power state")
	ErrUnknownControl     = errors.New("unknown control")
	ErrNoMatchingMode     = errors.New("no matching format or window")
	ErrUnsupportedLine    = errors.New("line not wired on this board")
	ErrUnsupportedFeature = errors.New("feature not supported")
)
