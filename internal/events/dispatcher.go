package events

import (
	"context"
	"sync"

	"github.com/spec-kit/maintenance-service/internal/lifecycle"
)

// Handler handles a published lifecycle event.
type Handler func(context.Context, lifecycle.Event) error

// Dispatcher fans lifecycle events out to in-process subscribers. The
// engine itself performs no I/O; services publish the event the machine
// emitted after the snapshot is durably saved.
type Dispatcher interface {
	Publish(ctx context.Context, event lifecycle.Event) error
	Subscribe(eventType lifecycle.EventType, handler Handler)
}

type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[lifecycle.EventType][]Handler
}

// NewInMemoryDispatcher creates a synchronous dispatcher.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[lifecycle.EventType][]Handler),
	}
}

// Publish synchronously invokes handlers for the given event. Handler
// errors do not stop the remaining handlers.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event lifecycle.Event) error {
	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType lifecycle.EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
