package events

import (
	"context"
	"sync"

	"go.uber.org/multierr"
)

// Fanout delivers each event to every configured publisher (broadcast
// plus archival). A failing sink does not stop the others; errors are
// combined for the caller to log.
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Publish(ctx context.Context, event Event) error {
	var errs error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (f *Fanout) Close() error {
	var errs error
	for _, p := range f.publishers {
		errs = multierr.Append(errs, p.Close())
	}
	return errs
}

// Recorder collects published events, for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
