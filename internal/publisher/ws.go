package publisher

import (
	"context"

	"github.com/movitrak/avl/internal/models"
	"github.com/movitrak/avl/pkg/ws"
)

// WSPublisher mirrors processed events to connected websocket clients.
type WSPublisher struct {
	hub *ws.Hub
}

// NewWSPublisher wraps the hub.
func NewWSPublisher(hub *ws.Hub) *WSPublisher {
	return &WSPublisher{hub: hub}
}

// Publish broadcasts the event; the hub never blocks the caller.
func (p *WSPublisher) Publish(ctx context.Context, event *models.VehicleEvent) error {
	p.hub.BroadcastEvent(event)
	return nil
}
