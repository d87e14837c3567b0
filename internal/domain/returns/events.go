package returns

import (
	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeReturn is the aggregate type name used in events
const AggregateTypeReturn = "Return"

// Event type constants for Return
const (
	EventTypeReturnCreated   = "ReturnCreated"
	EventTypeReturnApproved  = "ReturnApproved"
	EventTypeReturnRejected  = "ReturnRejected"
	EventTypeReturnCompleted = "ReturnCompleted"
	EventTypeReturnDeleted   = "ReturnDeleted"
)

// ReturnItemInfo represents item information for events
type ReturnItemInfo struct {
	ItemID      uuid.UUID       `json:"item_id"`
	SaleItemID  uuid.UUID       `json:"sale_item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariationID *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	Condition   ItemCondition   `json:"condition"`
	Restock     bool            `json:"restock"`
}

// RefundInfo represents a refund record for events
type RefundInfo struct {
	Amount        decimal.Decimal `json:"amount"`
	Method        RefundType      `json:"method"`
	TransactionID string          `json:"transaction_id,omitempty"`
}

func itemInfos(r *Return) []ReturnItemInfo {
	items := make([]ReturnItemInfo, len(r.Items))
	for i, item := range r.Items {
		items[i] = ReturnItemInfo{
			ItemID:      item.ID,
			SaleItemID:  item.SaleItemID,
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
			Condition:   item.Condition,
			Restock:     item.Restock,
		}
	}
	return items
}

// ReturnCreatedEvent is raised when a return is stored as pending
type ReturnCreatedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID        `json:"return_id"`
	ReturnNumber string           `json:"return_number"`
	SaleID       uuid.UUID        `json:"sale_id"`
	UserID       uuid.UUID        `json:"user_id"`
	RefundType   RefundType       `json:"refund_type"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
	RefundAmount decimal.Decimal  `json:"refund_amount"`
	Items        []ReturnItemInfo `json:"items"`
}

// NewReturnCreatedEvent creates a new ReturnCreatedEvent
func NewReturnCreatedEvent(r *Return) *ReturnCreatedEvent {
	return &ReturnCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCreated, AggregateTypeReturn, r.ID, r.StoreID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		SaleID:          r.SaleID,
		UserID:          r.UserID,
		RefundType:      r.RefundType,
		TotalAmount:     r.TotalAmount,
		TaxAmount:       r.TaxAmount,
		RefundAmount:    r.RefundAmount,
		Items:           itemInfos(r),
	}
}

// ReturnApprovedEvent is raised when a return is approved
type ReturnApprovedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID        `json:"return_id"`
	ReturnNumber string           `json:"return_number"`
	ApprovedBy   uuid.UUID        `json:"approved_by"`
	Note         string           `json:"note,omitempty"`
	Items        []ReturnItemInfo `json:"items"`
}

// NewReturnApprovedEvent creates a new ReturnApprovedEvent
func NewReturnApprovedEvent(r *Return) *ReturnApprovedEvent {
	var approvedBy uuid.UUID
	if r.ApprovedBy != nil {
		approvedBy = *r.ApprovedBy
	}
	return &ReturnApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnApproved, AggregateTypeReturn, r.ID, r.StoreID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		ApprovedBy:      approvedBy,
		Note:            r.ApprovalNote,
		Items:           itemInfos(r),
	}
}

// ReturnRejectedEvent is raised when a return is rejected
type ReturnRejectedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID `json:"return_id"`
	ReturnNumber string    `json:"return_number"`
	RejectedBy   uuid.UUID `json:"rejected_by"`
	Reason       string    `json:"reason,omitempty"`
}

// NewReturnRejectedEvent creates a new ReturnRejectedEvent
func NewReturnRejectedEvent(r *Return) *ReturnRejectedEvent {
	var rejectedBy uuid.UUID
	if r.RejectedBy != nil {
		rejectedBy = *r.RejectedBy
	}
	return &ReturnRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnRejected, AggregateTypeReturn, r.ID, r.StoreID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		RejectedBy:      rejectedBy,
		Reason:          r.RejectionReason,
	}
}

// ReturnCompletedEvent is raised when the refund of a return has been paid out
type ReturnCompletedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID        `json:"return_id"`
	ReturnNumber string           `json:"return_number"`
	SaleID       uuid.UUID        `json:"sale_id"`
	ProcessedBy  uuid.UUID        `json:"processed_by"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`
	TaxAmount    decimal.Decimal  `json:"tax_amount"`
	RefundAmount decimal.Decimal  `json:"refund_amount"`
	Refunds      []RefundInfo     `json:"refunds"`
	Items        []ReturnItemInfo `json:"items"`
}

// NewReturnCompletedEvent creates a new ReturnCompletedEvent
func NewReturnCompletedEvent(r *Return) *ReturnCompletedEvent {
	var processedBy uuid.UUID
	if r.ProcessedBy != nil {
		processedBy = *r.ProcessedBy
	}
	refunds := make([]RefundInfo, len(r.Refunds))
	for i, rf := range r.Refunds {
		refunds[i] = RefundInfo{
			Amount:        rf.Amount,
			Method:        rf.Method,
			TransactionID: rf.TransactionID,
		}
	}
	return &ReturnCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCompleted, AggregateTypeReturn, r.ID, r.StoreID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		SaleID:          r.SaleID,
		ProcessedBy:     processedBy,
		TotalAmount:     r.TotalAmount,
		TaxAmount:       r.TaxAmount,
		RefundAmount:    r.RefundAmount,
		Refunds:         refunds,
		Items:           itemInfos(r),
	}
}

// ReturnDeletedEvent is raised when a pending return is deleted
type ReturnDeletedEvent struct {
	shared.BaseDomainEvent
	ReturnID     uuid.UUID `json:"return_id"`
	ReturnNumber string    `json:"return_number"`
	DeletedBy    uuid.UUID `json:"deleted_by"`
}

// NewReturnDeletedEvent creates a new ReturnDeletedEvent
func NewReturnDeletedEvent(r *Return, actorID uuid.UUID) *ReturnDeletedEvent {
	return &ReturnDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnDeleted, AggregateTypeReturn, r.ID, r.StoreID),
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		DeletedBy:       actorID,
	}
}
