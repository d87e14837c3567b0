package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRestocker(t *testing.T) (*StreamRestocker, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	dedup := cache.NewRedisIdempotencyStore(client, "test:restock:")
	r := NewStreamRestocker(client, dedup, StreamConfig{Stream: "test:restock"}, zaptest.NewLogger(t))
	r.now = func() time.Time { return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r, mr, client
}

func newRestockRequest() returns.RestockRequest {
	returnID := uuid.New()
	return returns.RestockRequest{
		Reference: returnID.String() + ":restock:" + uuid.NewString(),
		ReturnID:  returnID,
		StoreID:   uuid.New(),
		ProductID: uuid.New(),
		Quantity:  2,
	}
}

func TestStreamRestocker_RestockInventory(t *testing.T) {
	ctx := context.Background()

	t.Run("appends one entry with the request fields", func(t *testing.T) {
		r, _, client := newTestRestocker(t)
		req := newRestockRequest()
		variation := uuid.New()
		req.VariationID = &variation

		require.NoError(t, r.RestockInventory(ctx, req))

		entries, err := client.XRange(ctx, "test:restock", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 1)
		v := entries[0].Values
		assert.Equal(t, req.Reference, v["reference"])
		assert.Equal(t, req.ProductID.String(), v["product_id"])
		assert.Equal(t, variation.String(), v["variation_id"])
		assert.Equal(t, "2", v["quantity"])
		assert.Equal(t, "2026-06-01T12:00:00Z", v["requested_at"])
	})

	t.Run("repeated reference is forwarded once", func(t *testing.T) {
		r, _, client := newTestRestocker(t)
		req := newRestockRequest()

		require.NoError(t, r.RestockInventory(ctx, req))
		require.NoError(t, r.RestockInventory(ctx, req))

		n, err := client.XLen(ctx, "test:restock").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("failed append releases the reference", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		dedup := cache.NewInMemoryIdempotencyStore(0)
		defer dedup.Close()
		r := NewStreamRestocker(client, dedup, StreamConfig{Stream: "test:restock"}, nil)
		req := newRestockRequest()

		// A string key under the stream name makes XADD fail with WRONGTYPE
		require.NoError(t, mr.Set("test:restock", "occupied"))
		err := r.RestockInventory(ctx, req)
		require.Error(t, err)

		processed, err := dedup.IsProcessed(ctx, req.Reference)
		require.NoError(t, err)
		assert.False(t, processed)

		mr.Del("test:restock")
		require.NoError(t, r.RestockInventory(ctx, req))
		n, err := client.XLen(ctx, "test:restock").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("rejects requests without reference or quantity", func(t *testing.T) {
		r, _, _ := newTestRestocker(t)

		req := newRestockRequest()
		req.Reference = ""
		assert.Error(t, r.RestockInventory(ctx, req))

		req = newRestockRequest()
		req.Quantity = 0
		assert.Error(t, r.RestockInventory(ctx, req))
	})
}

// claimLimitStore fails every claim after the first limit ones
type claimLimitStore struct {
	*cache.InMemoryIdempotencyStore
	limit int
	calls int
}

func (s *claimLimitStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.calls++
	if s.calls > s.limit {
		return false, errors.New("idempotency store unavailable")
	}
	return s.InMemoryIdempotencyStore.MarkProcessed(ctx, key, ttl)
}

func TestStreamRestocker_RestockInventory_Batch(t *testing.T) {
	ctx := context.Background()

	t.Run("every request of the batch lands", func(t *testing.T) {
		r, _, client := newTestRestocker(t)
		first, second := newRestockRequest(), newRestockRequest()

		require.NoError(t, r.RestockInventory(ctx, first, second))

		entries, err := client.XRange(ctx, "test:restock", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, first.Reference, entries[0].Values["reference"])
		assert.Equal(t, second.Reference, entries[1].Values["reference"])
	})

	t.Run("forwarded references are skipped", func(t *testing.T) {
		r, _, client := newTestRestocker(t)
		first, second := newRestockRequest(), newRestockRequest()
		require.NoError(t, r.RestockInventory(ctx, first))

		require.NoError(t, r.RestockInventory(ctx, first, second))

		n, err := client.XLen(ctx, "test:restock").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("invalid second line sends nothing", func(t *testing.T) {
		r, _, client := newTestRestocker(t)
		first, second := newRestockRequest(), newRestockRequest()
		second.Quantity = 0

		require.Error(t, r.RestockInventory(ctx, first, second))

		n, err := client.XLen(ctx, "test:restock").Result()
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("failed claim of the second line sends nothing and frees the first", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client.Close()
		dedup := &claimLimitStore{InMemoryIdempotencyStore: cache.NewInMemoryIdempotencyStore(0), limit: 1}
		defer dedup.Close()
		r := NewStreamRestocker(client, dedup, StreamConfig{Stream: "test:restock"}, nil)
		first, second := newRestockRequest(), newRestockRequest()

		require.Error(t, r.RestockInventory(ctx, first, second))

		n, err := client.XLen(ctx, "test:restock").Result()
		require.NoError(t, err)
		assert.Zero(t, n)
		processed, err := dedup.IsProcessed(ctx, first.Reference)
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("unreachable redis releases every claim", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		defer client.Close()
		dedup := cache.NewInMemoryIdempotencyStore(0)
		defer dedup.Close()
		r := NewStreamRestocker(client, dedup, StreamConfig{Stream: "test:restock"}, nil)
		first, second := newRestockRequest(), newRestockRequest()
		mr.Close()

		require.Error(t, r.RestockInventory(ctx, first, second))

		for _, req := range []string{first.Reference, second.Reference} {
			processed, err := dedup.IsProcessed(ctx, req)
			require.NoError(t, err)
			assert.False(t, processed)
		}
	})
}

func TestNewStreamRestocker_Defaults(t *testing.T) {
	r := NewStreamRestocker(nil, nil, StreamConfig{}, nil)

	assert.Equal(t, DefaultStream, r.cfg.Stream)
	assert.Equal(t, int64(DefaultStreamMax), r.cfg.MaxLen)
	assert.Equal(t, DefaultDedupTTL, r.cfg.DedupTTL)
}
