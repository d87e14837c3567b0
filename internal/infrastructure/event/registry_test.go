package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	t.Run("typed handlers come before wildcard handlers", func(t *testing.T) {
		r := NewHandlerRegistry()
		typed := newTestHandler()
		wildcard := newTestHandler()
		r.Register(wildcard)
		r.Register(typed, "ReturnApproved")

		handlers := r.GetHandlers("ReturnApproved")

		assert.Len(t, handlers, 2)
		assert.Same(t, typed, handlers[0])
		assert.Same(t, wildcard, handlers[1])
		assert.Len(t, r.GetHandlers("ReturnRejected"), 1)
	})

	t.Run("duplicate registration is ignored", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		r.Register(h, "ReturnApproved")
		r.Register(h, "ReturnApproved")
		r.Register(h, "ReturnCompleted")

		assert.Len(t, r.GetHandlers("ReturnApproved"), 1)
		assert.Equal(t, 1, r.Count())
	})

	t.Run("unregister removes every registration", func(t *testing.T) {
		r := NewHandlerRegistry()
		h := newTestHandler()
		other := newTestHandler()
		r.Register(h, "ReturnApproved", "ReturnCompleted")
		r.Register(h)
		r.Register(other, "ReturnApproved")

		r.Unregister(h)

		assert.Equal(t, 1, r.Count())
		assert.Empty(t, r.GetHandlers("ReturnCompleted"))
		assert.Len(t, r.GetHandlers("ReturnApproved"), 1)
	})
}

func TestHandlerRegistry_CatchAllLookup(t *testing.T) {
	r := NewHandlerRegistry()
	h := newTestHandler()
	r.Register(h)
	r.Register(newTestHandler(), "ReturnApproved")

	assert.Len(t, r.GetHandlers(""), 1)
	assert.Len(t, r.GetHandlers("ReturnDeleted"), 1)
}
