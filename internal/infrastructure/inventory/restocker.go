// Package inventory forwards restock requests to the inventory service
// through a Redis stream.
package inventory

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// Defaults used when the configuration leaves a value empty
const (
	DefaultStream    = "inventory:restock"
	DefaultStreamMax = 100000
	DefaultDedupTTL  = 7 * 24 * time.Hour
)

// StreamConfig configures the restock stream
type StreamConfig struct {
	Stream   string
	MaxLen   int64 // approximate cap, trimmed with MAXLEN ~
	DedupTTL time.Duration
}

// StreamRestocker implements returns.InventoryRestocker by appending one
// entry per request to a Redis stream. A reference is forwarded at most
// once per DedupTTL.
type StreamRestocker struct {
	client redis.UniversalClient
	dedup  shared.IdempotencyStore
	cfg    StreamConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewStreamRestocker creates a restocker
func NewStreamRestocker(client redis.UniversalClient, dedup shared.IdempotencyStore, cfg StreamConfig, logger *zap.Logger) *StreamRestocker {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultStreamMax
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultDedupTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamRestocker{client: client, dedup: dedup, cfg: cfg, logger: logger, now: time.Now}
}

// RestockInventory appends reqs to the stream in one MULTI/EXEC block,
// skipping references that were already forwarded. Every new request lands
// or none does.
func (r *StreamRestocker) RestockInventory(ctx context.Context, reqs ...returns.RestockRequest) error {
	for _, req := range reqs {
		if req.Reference == "" {
			return fmt.Errorf("restock request for product %s has no reference", req.ProductID)
		}
		if req.Quantity <= 0 {
			return fmt.Errorf("restock request %s has non-positive quantity %d", req.Reference, req.Quantity)
		}
	}

	claimed := make([]returns.RestockRequest, 0, len(reqs))
	for _, req := range reqs {
		isNew, err := r.dedup.MarkProcessed(ctx, req.Reference, r.cfg.DedupTTL)
		if err != nil {
			r.release(ctx, claimed)
			return fmt.Errorf("check restock reference %s: %w", req.Reference, err)
		}
		if !isNew {
			r.logger.Debug("restock already forwarded", zap.String("reference", req.Reference))
			continue
		}
		claimed = append(claimed, req)
	}
	if len(claimed) == 0 {
		return nil
	}

	added := make([]*redis.StringCmd, len(claimed))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, req := range claimed {
			added[i] = pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: r.cfg.Stream,
				MaxLen: r.cfg.MaxLen,
				Approx: true,
				Values: r.entry(req),
			})
		}
		return nil
	})
	if err != nil {
		// Forget the references so a retry forwards them again
		r.release(ctx, claimed)
		return fmt.Errorf("append %d restock requests to %s: %w", len(claimed), r.cfg.Stream, err)
	}

	for i, req := range claimed {
		r.logger.Info("restock forwarded",
			zap.String("reference", req.Reference),
			zap.String("stream_id", added[i].Val()),
			zap.String("product_id", req.ProductID.String()),
			zap.Int("quantity", req.Quantity),
		)
	}
	return nil
}

func (r *StreamRestocker) release(ctx context.Context, reqs []returns.RestockRequest) {
	for _, req := range reqs {
		if err := r.dedup.Release(context.WithoutCancel(ctx), req.Reference); err != nil {
			r.logger.Warn("failed to release restock reference",
				zap.String("reference", req.Reference),
				zap.Error(err),
			)
		}
	}
}

func (r *StreamRestocker) entry(req returns.RestockRequest) map[string]any {
	values := map[string]any{
		"reference":    req.Reference,
		"return_id":    req.ReturnID.String(),
		"store_id":     req.StoreID.String(),
		"product_id":   req.ProductID.String(),
		"quantity":     strconv.Itoa(req.Quantity),
		"requested_at": r.now().UTC().Format(time.RFC3339Nano),
	}
	if req.VariationID != nil {
		values["variation_id"] = req.VariationID.String()
	}
	return values
}

var _ returns.InventoryRestocker = (*StreamRestocker)(nil)
