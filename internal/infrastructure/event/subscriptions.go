package event

import (
	"github.com/retailpos/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// NamedHandler pairs a handler with the name its idempotency keys use
type NamedHandler struct {
	Name    string
	Handler shared.EventHandler
}

// SubscribeAll subscribes each handler for its own event types. With a
// store and cfg.Enabled every handler is deduplicated, all counting into
// the returned counters; otherwise the counters stay at zero.
func SubscribeAll(
	bus shared.EventSubscriber,
	store shared.IdempotencyStore,
	cfg shared.IdempotencyConfig,
	logger *zap.Logger,
	handlers ...NamedHandler,
) *DedupCounters {
	counters := &DedupCounters{}
	dedup := store != nil && cfg.Enabled
	for _, nh := range handlers {
		if !dedup {
			bus.Subscribe(nh.Handler)
			continue
		}
		bus.Subscribe(NewIdempotentHandler(nh.Name, nh.Handler, store, logger,
			WithIdempotencyConfig(cfg),
			WithDedupCounters(counters),
		))
	}
	return counters
}
