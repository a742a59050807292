package client

import (
	"log/slog"
	"sync"
)

// Handler receives a server event's payload.
type Handler func(data Payload)

// Registration identifies one registered handler so it can be removed
// without affecting other handlers for the same event kind.
type Registration struct {
	dispatcher *Dispatcher
	kind       string
	id         uint64
}

// Remove unregisters this handler. Removing twice is a no-op.
func (r *Registration) Remove() {
	r.dispatcher.remove(r.kind, r.id)
}

type registeredHandler struct {
	id      uint64
	handler Handler
}

// Dispatcher routes decoded server events to handlers registered per
// event kind. Handlers run in registration order; a panicking handler is
// logged and skipped without stopping the remaining handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]registeredHandler
	nextID   uint64
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]registeredHandler),
		logger:   logger,
	}
}

// On registers a handler for an event kind.
func (d *Dispatcher) On(kind string, handler Handler) *Registration {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.handlers[kind] = append(d.handlers[kind], registeredHandler{id: d.nextID, handler: handler})
	return &Registration{dispatcher: d, kind: kind, id: d.nextID}
}

// Off removes every handler registered for an event kind.
func (d *Dispatcher) Off(kind string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, kind)
}

func (d *Dispatcher) remove(kind string, id uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	handlers := d.handlers[kind]
	for i, h := range handlers {
		if h.id == id {
			d.handlers[kind] = append(handlers[:i:i], handlers[i+1:]...)
			return
		}
	}
}

// Dispatch invokes every handler registered for the event kind, in
// registration order.
func (d *Dispatcher) Dispatch(kind string, data Payload) {
	d.mu.RLock()
	handlers := make([]registeredHandler, len(d.handlers[kind]))
	copy(handlers, d.handlers[kind])
	d.mu.RUnlock()

	for _, h := range handlers {
		d.invoke(kind, h.handler, data)
	}
}

func (d *Dispatcher) invoke(kind string, handler Handler, data Payload) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", "event", kind, "panic", r)
		}
	}()
	handler(data)
}
