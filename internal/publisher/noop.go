package publisher

import (
	"context"

	"github.com/movitrak/avl/internal/models"
)

// Noop discards every event. Used when no broker is configured.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(ctx context.Context, event *models.VehicleEvent) error {
	return nil
}
