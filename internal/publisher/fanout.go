package publisher

import (
	"context"

	"github.com/movitrak/avl/internal/models"
)

// Sink receives processed events.
type Sink interface {
	Publish(ctx context.Context, event *models.VehicleEvent) error
}

// Fanout delivers each event to every sink. Delivery is best effort; the
// first error is returned after all sinks have been tried.
type Fanout struct {
	sinks []Sink
}

// NewFanout combines sinks into one publisher.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

// Publish forwards the event to every sink.
func (f *Fanout) Publish(ctx context.Context, event *models.VehicleEvent) error {
	var firstErr error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
