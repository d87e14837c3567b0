package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReturnFilter narrows ListReturns queries
type ReturnFilter struct {
	shared.Filter
	Status  *ReturnStatus
	StoreID *uuid.UUID
	SaleID  *uuid.UUID
	From    *time.Time // inclusive lower bound on return date
	To      *time.Time // exclusive upper bound on return date
}

// DefaultReturnFilter returns a filter on the first page, newest first
func DefaultReturnFilter() ReturnFilter {
	return ReturnFilter{Filter: shared.DefaultFilter()}
}

// StatusSummary counts returns per status and the money refunded so far
type StatusSummary struct {
	Counts         map[ReturnStatus]int64
	Total          int64
	RefundedAmount decimal.Decimal
	PendingAmount  decimal.Decimal
}

// EligibilityGuard re-validates a new return against the prior lines read
// inside the creating transaction. Returning an error aborts the insert.
type EligibilityGuard func(prior []PriorReturnLine) error

// TransitionFunc runs the side effects of a transition while the stored
// return is locked. It may still change r. An error aborts the transition
// and nothing is written.
type TransitionFunc func(ctx context.Context, r *Return) error

// ReturnRepository is the single writer of persisted returns
type ReturnRepository interface {
	// FindByID loads a return with its lines and refunds
	FindByID(ctx context.Context, id uuid.UUID) (*Return, error)

	// FindAll lists returns matching filter, one page at a time
	FindAll(ctx context.Context, filter ReturnFilter) ([]Return, error)

	// Count counts returns matching filter, ignoring paging
	Count(ctx context.Context, filter ReturnFilter) (int64, error)

	// FindPriorLinesBySale lists the lines of every return of a sale
	FindPriorLinesBySale(ctx context.Context, saleID uuid.UUID) ([]PriorReturnLine, error)

	// CreateGuarded inserts a new return. Within one transaction it
	// serializes creates for the same sale, reads the current prior lines,
	// calls guard and assigns the return number before inserting.
	CreateGuarded(ctx context.Context, r *Return, guard EligibilityGuard) error

	// SaveWithLock persists a transition. Within one transaction it locks
	// the stored row, fails with ErrStaleStatus when the stored version no
	// longer matches r, runs apply (may be nil) and writes r back with a
	// bumped version.
	SaveWithLock(ctx context.Context, r *Return, apply TransitionFunc) error

	// DeletePending removes a pending return and its lines if it is still
	// at expectedVersion.
	DeletePending(ctx context.Context, id uuid.UUID, expectedVersion int) error

	// Summary counts returns per status, optionally for one store
	Summary(ctx context.Context, storeID *uuid.UUID) (*StatusSummary, error)
}
