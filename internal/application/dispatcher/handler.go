package dispatcher

import (
	"context"

	"github.com/founderstab/founders-tab/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Filter wraps a handler so it only runs for events matching pred
func Filter(pred func(evt *event.Event) bool, h Handler) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if !pred(evt) {
			return nil
		}
		return h(ctx, evt)
	}
}

// HasPayload matches events carrying a non-empty string under key
func HasPayload(key string) func(evt *event.Event) bool {
	return func(evt *event.Event) bool {
		return evt.GetPayloadString(key) != ""
	}
}
