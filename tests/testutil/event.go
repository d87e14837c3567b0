// Package testutil holds helpers shared by the integration tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/retailpos/backoffice/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
}

// NewEventRecorder records events of the given types, or of every type
// when none are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes returns the event types this handler subscribes to
func (h *EventRecorder) EventTypes() []string {
	return h.eventTypes
}

// Handle records event and returns the configured error
func (h *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns a copy of the recorded events
func (h *EventRecorder) Handled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]shared.DomainEvent, len(h.handled))
	copy(out, h.handled)
	return out
}

// Types returns the type of each recorded event, in arrival order
func (h *EventRecorder) Types() []string {
	events := h.Handled()
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}

// SetError makes Handle fail with err
func (h *EventRecorder) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// WaitForCondition polls condition until it holds or timeout passes
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// WaitForEventCount waits until the recorder holds at least count events
func WaitForEventCount(t *testing.T, h *EventRecorder, count int, timeout time.Duration) bool {
	t.Helper()

	return WaitForCondition(t, func() bool {
		return len(h.Handled()) >= count
	}, timeout, 10*time.Millisecond)
}
