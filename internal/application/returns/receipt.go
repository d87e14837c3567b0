package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceiptStore keeps rendered receipts of completed returns
type ReceiptStore interface {
	PutReceipt(ctx context.Context, key string, body []byte, contentType string) error
	PresignReceipt(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// ReceiptRenderer turns a completed return into a printable document
type ReceiptRenderer interface {
	RenderReceipt(ctx context.Context, r *returns.Return) (body []byte, contentType string, err error)
}

// ReceiptKey is the object key of the receipt of a return
func ReceiptKey(storeID uuid.UUID, returnNumber string) string {
	return fmt.Sprintf("receipts/%s/%s.html", storeID, returnNumber)
}

// ReceiptArchiveHandler renders and stores the receipt of every completed
// return. Registered behind the idempotent handler wrapper, so a redelivered
// event does not upload twice.
type ReceiptArchiveHandler struct {
	repo     returns.ReturnRepository
	renderer ReceiptRenderer
	store    ReceiptStore
	logger   *zap.Logger
}

// NewReceiptArchiveHandler creates a new handler for return completed events
func NewReceiptArchiveHandler(
	repo returns.ReturnRepository,
	renderer ReceiptRenderer,
	store ReceiptStore,
	logger *zap.Logger,
) *ReceiptArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptArchiveHandler{
		repo:     repo,
		renderer: renderer,
		store:    store,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ReceiptArchiveHandler) EventTypes() []string {
	return []string{returns.EventTypeReturnCompleted}
}

// Handle archives the receipt of the completed return
func (h *ReceiptArchiveHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*returns.ReturnCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", returns.EventTypeReturnCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			returns.EventTypeReturnCompleted, event.EventType())
	}

	// The event carries amounts but not every line field, so render from the stored return.
	r, err := h.repo.FindByID(ctx, completed.ReturnID)
	if err != nil {
		return fmt.Errorf("load return %s: %w", completed.ReturnID, err)
	}

	body, contentType, err := h.renderer.RenderReceipt(ctx, r)
	if err != nil {
		return fmt.Errorf("render receipt for %s: %w", r.ReturnNumber, err)
	}

	key := ReceiptKey(r.StoreID, r.ReturnNumber)
	if err := h.store.PutReceipt(ctx, key, body, contentType); err != nil {
		return fmt.Errorf("store receipt %s: %w", key, err)
	}

	h.logger.Info("return receipt archived",
		zap.String("return_id", r.ID.String()),
		zap.String("return_number", r.ReturnNumber),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}
