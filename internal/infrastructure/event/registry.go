package event

import (
	"slices"
	"sync"

	"github.com/retailpos/backoffice/internal/domain/shared"
)

// allEvents keys handlers registered without event types
const allEvents = ""

// HandlerRegistry maps event types to handlers. Lookups return handlers
// for the exact type first, then the catch-all ones.
type HandlerRegistry struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
}

func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to eventTypes, or to every event when none
// are given. Repeated registrations are ignored.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{allEvents}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range eventTypes {
		if !slices.Contains(r.byType[t], handler) {
			r.byType[t] = append(r.byType[t], handler)
		}
	}
}

// Unregister drops handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, handlers := range r.byType {
		kept := slices.DeleteFunc(slices.Clone(handlers), func(h shared.EventHandler) bool { return h == handler })
		if len(kept) == 0 {
			delete(r.byType, t)
			continue
		}
		r.byType[t] = kept
	}
}

func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if eventType == allEvents {
		return slices.Clone(r.byType[allEvents])
	}
	return slices.Concat(r.byType[eventType], r.byType[allEvents])
}

// Count is the number of distinct handlers, however many types each has
func (r *HandlerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[shared.EventHandler]struct{})
	for _, handlers := range r.byType {
		for _, h := range handlers {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}
