// Package notify delivers camera detection events to listeners.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mklimuk/vdec/detect"
)

// Payload is the JSON document published for every detection event.
type Payload struct {
	ID        string `json:"id"`
	Device    string `json:"device"`
	Channel   int    `json:"channel"`
	Status    string `json:"status"`
	RAVal     string `json:"raval"`
	Timestamp string `json:"timestamp"`
}

// FormatPayload creates the JSON payload for a detection event.
func FormatPayload(device string, ev detect.Event) ([]byte, error) {
	return json.Marshal(Payload{
		ID:        uuid.NewString(),
		Device:    device,
		Channel:   ev.Channel,
		Status:    ev.Status.String(),
		RAVal:     ev.String(),
		Timestamp: ev.Time.UTC().Format(time.RFC3339),
	})
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Device string
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, ev detect.Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, ev.String(), "device", s.Device, "channel", ev.Channel, "status", ev.Status)
	return nil
}

// Multi fans an event out to every sink. All sinks are called even when
// some of them fail.
type Multi []detect.Sink

func (m Multi) Notify(ctx context.Context, ev detect.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
