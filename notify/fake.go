package notify

import (
	"context"
	"sync"

	"github.com/mklimuk/vdec/detect"
)

// FakeSink records events for test assertions.
type FakeSink struct {
	mx sync.Mutex
	// Events contains every event received.
	Events []detect.Event
	// Err, if set, is returned by Notify.
	Err error
}

func (f *FakeSink) Notify(ctx context.Context, ev detect.Event) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.Events = append(f.Events, ev)
	return f.Err
}

// Received returns a copy of the recorded events.
func (f *FakeSink) Received() []detect.Event {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]detect.Event(nil), f.Events...)
}
