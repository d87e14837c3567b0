package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseAggregateRoot carries the identity, timestamps and optimistic-lock
// version of an aggregate, plus the events it raised since it was loaded.
type BaseAggregateRoot struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	pending []DomainEvent
}

// NewBaseAggregateRoot starts a fresh aggregate at version 1
func NewBaseAggregateRoot(now time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// IncrementVersion is called by repositories after a successful guarded write
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// Raise queues event for publication once the aggregate is persisted
func (a *BaseAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullEvents returns the queued events and forgets them.
func (a *BaseAggregateRoot) PullEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
