package dispatcher

import (
	"context"

	"github.com/garyjia/business-trip/internal/domain/event"
)

// Handler reacts to a trip event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// anyType subscribes a handler to every event type
const anyType event.Type = "*"
