package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError(t *testing.T) {
	t.Run("errors.Is matches on code", func(t *testing.T) {
		err := fmt.Errorf("loading return: %w", NewDomainError("NOT_FOUND", "Return not found"))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrInvalidState))
	})

	t.Run("wrapped cause stays in the chain", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapDomainError("COLLABORATOR_FAILURE", "refund issuance failed", cause)

		assert.Equal(t, "refund issuance failed: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})

	t.Run("WithDetails does not mutate the original", func(t *testing.T) {
		base := NewDomainError("RETURN_VALIDATION_FAILED", "invalid")
		withDetails := base.WithDetails([]string{"line 1"})

		assert.Nil(t, base.Details)
		assert.Equal(t, []string{"line 1"}, withDetails.Details)
	})
}

func TestFilter_Normalize(t *testing.T) {
	f := Filter{Page: 0, PageSize: 500, OrderDir: "sideways"}
	f.Normalize()

	assert.Equal(t, 1, f.Page)
	assert.Equal(t, MaxPageSize, f.PageSize)
	assert.Equal(t, "desc", f.OrderDir)
	assert.Equal(t, 0, f.Offset())

	f = Filter{Page: 3, PageSize: 0, OrderDir: " ASC "}
	f.Normalize()
	assert.Equal(t, DefaultPageSize, f.PageSize)
	assert.Equal(t, "asc", f.OrderDir)
	assert.Equal(t, 40, f.Offset())
}

func TestBaseAggregateRoot_PullEvents(t *testing.T) {
	agg := NewBaseAggregateRoot(time.Now())
	assert.Equal(t, 1, agg.Version)

	e := NewBaseDomainEvent("ReturnCreated", "Return", agg.ID, uuid.New())
	agg.Raise(&e)
	assert.Len(t, agg.PendingEvents(), 1)

	pulled := agg.PullEvents()
	assert.Len(t, pulled, 1)
	assert.Equal(t, "ReturnCreated", pulled[0].EventType())
	assert.Empty(t, agg.PendingEvents())

	agg.IncrementVersion()
	assert.Equal(t, 2, agg.Version)
}
