package returns

import (
	"context"

	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
)

// MetricsEventHandler turns return events into business metrics
type MetricsEventHandler struct {
	metrics ReturnMetrics
}

// NewMetricsEventHandler creates a new MetricsEventHandler
func NewMetricsEventHandler(metrics ReturnMetrics) *MetricsEventHandler {
	return &MetricsEventHandler{metrics: metrics}
}

// EventTypes returns the event types this handler is interested in
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{
		returns.EventTypeReturnCreated,
		returns.EventTypeReturnCompleted,
	}
}

// Handle records the metrics carried by a return event
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *returns.ReturnCreatedEvent:
		h.metrics.RecordReturnCreated(ctx, e.StoreID(), string(e.RefundType), e.RefundAmount)
	case *returns.ReturnCompletedEvent:
		for _, rf := range e.Refunds {
			h.metrics.RecordRefundIssued(ctx, e.StoreID(), string(rf.Method), rf.Amount)
		}
	}
	return nil
}
