package event

import (
	"context"
	"sync/atomic"

	"github.com/retailpos/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupCounters counts what idempotent handlers did with each delivery.
// One set is usually shared by every handler on a bus.
type DedupCounters struct {
	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// DedupStats is a point-in-time copy of DedupCounters
type DedupStats struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

func (c *DedupCounters) Stats() DedupStats {
	return DedupStats{
		Processed: c.processed.Load(),
		Duplicate: c.duplicate.Load(),
		Failed:    c.failed.Load(),
	}
}

// IdempotentHandler runs the wrapped handler at most once per event ID.
// Keys are "<name>:<event id>" so handlers can share one store.
type IdempotentHandler struct {
	name     string
	handler  shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	counters *DedupCounters
}

type IdempotentHandlerOption func(*IdempotentHandler)

func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.config = config }
}

// WithDedupCounters makes the handler count into c instead of its own set
func WithDedupCounters(c *DedupCounters) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.counters = c }
}

func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		name:     name,
		handler:  handler,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		logger:   logger.With(zap.String("handler", name)),
		counters: &DedupCounters{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle claims the event key before running the handler. A failed run
// releases the claim so redelivery retries. When the store itself fails
// the event is handled anyway: a duplicate receipt upload or metric tick
// is preferable to losing it.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.name + ":" + event.EventID().String()
	log := h.logger.With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	fresh, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	if err != nil {
		log.Warn("Idempotency store unavailable, handling without claim", zap.Error(err))
	} else if !fresh {
		h.counters.duplicate.Add(1)
		log.Debug("Duplicate event skipped")
		return nil
	}
	claimed := err == nil

	if err := h.handler.Handle(ctx, event); err != nil {
		h.counters.failed.Add(1)
		log.Error("Event handler failed", zap.Error(err))
		if claimed {
			if relErr := h.store.Release(context.WithoutCancel(ctx), key); relErr != nil {
				log.Warn("Failed to release idempotency claim", zap.Error(relErr))
			}
		}
		return err
	}

	h.counters.processed.Add(1)
	return nil
}

// Counters returns the set this handler counts into
func (h *IdempotentHandler) Counters() *DedupCounters {
	return h.counters
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
