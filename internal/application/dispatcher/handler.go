package dispatcher

import (
	"context"

	"github.com/garyjia/rental-billing/internal/domain/event"
)

// Handler reacts to a billing event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// anyType is the key for handlers that receive every event
const anyType event.Type = "*"
