package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleStatus is the status of the originating sale as reported by the POS
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusVoided    SaleStatus = "voided"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// SaleLineItem is a line of the originating sale. It is read-only here.
type SaleLineItem struct {
	SaleItemID      uuid.UUID
	ProductID       uuid.UUID
	VariationID     *uuid.UUID
	ProductName     string
	OrderedQuantity int
	UnitPrice       decimal.Decimal
	LineTotal       decimal.Decimal
}

// SaleSnapshot is what the sale store reports about a sale at read time
type SaleSnapshot struct {
	SaleID        uuid.UUID
	StoreID       uuid.UUID
	InvoiceNumber string
	Status        SaleStatus
	TaxRate       decimal.Decimal
	SaleDate      time.Time
	Lines         []SaleLineItem
}

// IsReturnable reports whether returns may be raised against the sale
func (s *SaleSnapshot) IsReturnable() bool {
	return s.Status == SaleStatusCompleted
}

// Line finds a sale line by its ID
func (s *SaleSnapshot) Line(saleItemID uuid.UUID) (SaleLineItem, bool) {
	for _, l := range s.Lines {
		if l.SaleItemID == saleItemID {
			return l, true
		}
	}
	return SaleLineItem{}, false
}

// PriorReturnLine is a line of an existing return against the same sale
type PriorReturnLine struct {
	ReturnID     uuid.UUID
	SaleItemID   uuid.UUID
	Quantity     int
	ReturnStatus ReturnStatus
}

// SaleSnapshotProvider reads sales from the point-of-sale store.
// Implementations return an error matching ErrSaleNotFound for unknown sales.
type SaleSnapshotProvider interface {
	GetSaleSnapshot(ctx context.Context, saleID uuid.UUID) (*SaleSnapshot, error)
}

// RestockRequest asks the inventory service to put units back on sale.
// Reference is stable for a given return line so that repeated delivery
// is harmless.
type RestockRequest struct {
	Reference   string
	ReturnID    uuid.UUID
	StoreID     uuid.UUID
	ProductID   uuid.UUID
	VariationID *uuid.UUID
	Quantity    int
}

// InventoryRestocker forwards restock requests to the inventory service.
// The requests of one call are delivered together or not at all.
type InventoryRestocker interface {
	RestockInventory(ctx context.Context, reqs ...RestockRequest) error
}

// RefundInstruction asks the settlement collaborator to pay out a refund.
// Reference identifies the payout; issuing twice with the same reference
// returns the original settlement.
type RefundInstruction struct {
	Reference string
	ReturnID  uuid.UUID
	StoreID   uuid.UUID
	Amount    decimal.Decimal
	Method    RefundType
	ActorID   uuid.UUID
}

// IssuedRefund is the settlement collaborator's receipt for a payout
type IssuedRefund struct {
	Reference     string          `json:"reference"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        RefundType      `json:"method"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

// RefundIssuer pays out refunds
type RefundIssuer interface {
	IssueRefund(ctx context.Context, instr RefundInstruction) (*IssuedRefund, error)
	// ListByReturn lists the payouts already made for a return, including
	// those of completion attempts that failed partway
	ListByReturn(ctx context.Context, returnID uuid.UUID) ([]IssuedRefund, error)
}
