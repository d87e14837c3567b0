package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEvent(eventType string) shared.DomainEvent {
	e := shared.NewBaseDomainEvent(eventType, "Return", uuid.New(), uuid.New())
	return &e
}

func TestEventRecorder(t *testing.T) {
	rec := NewEventRecorder("ReturnCreated", "ReturnApproved")
	assert.Equal(t, []string{"ReturnCreated", "ReturnApproved"}, rec.EventTypes())

	require.NoError(t, rec.Handle(context.Background(), newEvent("ReturnCreated")))
	require.NoError(t, rec.Handle(context.Background(), newEvent("ReturnApproved")))
	assert.Equal(t, []string{"ReturnCreated", "ReturnApproved"}, rec.Types())

	boom := errors.New("boom")
	rec.SetError(boom)
	assert.ErrorIs(t, rec.Handle(context.Background(), newEvent("ReturnCreated")), boom)
	assert.Len(t, rec.Handled(), 3)
}

func TestWaitForEventCount(t *testing.T) {
	rec := NewEventRecorder()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = rec.Handle(context.Background(), newEvent("ReturnCompleted"))
	}()

	assert.True(t, WaitForEventCount(t, rec, 1, time.Second))
	assert.False(t, WaitForEventCount(t, rec, 2, 30*time.Millisecond))
}
