package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/shopspring/decimal"
)

// ============================================================================
// Requests
// ============================================================================

// CreateReturnRequest represents a request to raise a return against a sale
type CreateReturnRequest struct {
	SaleID     uuid.UUID               `json:"sale_id" binding:"required"`
	StoreID    uuid.UUID               `json:"store_id"` // Scope of the caller, checked against the sale when set
	Items      []CreateReturnItemInput `json:"items" binding:"required,min=1,dive"`
	RefundType string                  `json:"refund_type" binding:"required,refund_type"`
	Notes      string                  `json:"notes"`
}

// CreateReturnItemInput represents one line of a create return request
type CreateReturnItemInput struct {
	SaleItemID   uuid.UUID `json:"sale_item_id" binding:"required"`
	Quantity     int       `json:"quantity"`
	Condition    string    `json:"condition" binding:"required,return_condition"`
	ReturnReason string    `json:"return_reason"`
	Restock      bool      `json:"restock"`
	Notes        string    `json:"notes"`
}

// UpdateStatusRequest represents a request to move a return to another status
type UpdateStatusRequest struct {
	Status  string             `json:"status" binding:"required,return_status"`
	Comment string             `json:"comment"`
	Refunds []RefundSplitInput `json:"refunds" binding:"omitempty,dive"` // Only used when completing
}

// RefundSplitInput is one share of a split refund
type RefundSplitInput struct {
	Method string          `json:"method" binding:"required,refund_type"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// ReturnListFilter represents filter options for the return list
type ReturnListFilter struct {
	Search   string     `form:"search"`
	Status   string     `form:"status"`
	StoreID  *uuid.UUID `form:"store_id"`
	SaleID   *uuid.UUID `form:"sale_id"`
	From     *time.Time `form:"from" time_format:"2006-01-02"`
	To       *time.Time `form:"to" time_format:"2006-01-02"`
	Page     int        `form:"page" binding:"min=0"`
	PageSize int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy  string     `form:"order_by"`
	OrderDir string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ============================================================================
// Responses
// ============================================================================

// ReturnResponse represents a return in API responses
type ReturnResponse struct {
	ID              uuid.UUID              `json:"id"`
	ReturnNumber    string                 `json:"return_number"`
	SaleID          uuid.UUID              `json:"sale_id"`
	StoreID         uuid.UUID              `json:"store_id"`
	UserID          uuid.UUID              `json:"user_id"`
	Status          string                 `json:"status"`
	ReturnDate      time.Time              `json:"return_date"`
	TotalAmount     decimal.Decimal        `json:"total_amount"`
	TaxRate         decimal.Decimal        `json:"tax_rate"`
	TaxAmount       decimal.Decimal        `json:"tax_amount"`
	RefundAmount    decimal.Decimal        `json:"refund_amount"`
	RefundType      string                 `json:"refund_type"`
	RefundStatus    string                 `json:"refund_status"`
	RestockItems    bool                   `json:"restock_items"`
	Items           []ReturnItemResponse   `json:"items"`
	Refunds         []ReturnRefundResponse `json:"refunds"`
	ItemCount       int                    `json:"item_count"`
	TotalQuantity   int                    `json:"total_quantity"`
	ApprovedBy      *uuid.UUID             `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time             `json:"approved_at,omitempty"`
	ApprovalNote    string                 `json:"approval_note,omitempty"`
	RejectedBy      *uuid.UUID             `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time             `json:"rejected_at,omitempty"`
	RejectionReason string                 `json:"rejection_reason,omitempty"`
	ProcessedBy     *uuid.UUID             `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time             `json:"processed_at,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Version         int                    `json:"version"`
}

// ReturnItemResponse represents a return line in API responses
type ReturnItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	SaleItemID   uuid.UUID       `json:"sale_item_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	VariationID  *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Condition    string          `json:"condition"`
	ReturnReason string          `json:"return_reason,omitempty"`
	Restock      bool            `json:"restock"`
	Notes        string          `json:"notes,omitempty"`
}

// ReturnRefundResponse represents a refund record in API responses
type ReturnRefundResponse struct {
	ID            uuid.UUID       `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	TransactionID string          `json:"transaction_id,omitempty"`
	ProcessedBy   uuid.UUID       `json:"processed_by"`
	ProcessedAt   time.Time       `json:"processed_at"`
	Status        string          `json:"status"`
}

// ReturnListItemResponse represents a return in list responses (less detail)
type ReturnListItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ReturnNumber string          `json:"return_number"`
	SaleID       uuid.UUID       `json:"sale_id"`
	StoreID      uuid.UUID       `json:"store_id"`
	Status       string          `json:"status"`
	ReturnDate   time.Time       `json:"return_date"`
	ItemCount    int             `json:"item_count"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	RefundType   string          `json:"refund_type"`
	RefundStatus string          `json:"refund_status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ReturnableLinesResponse lists what is still returnable on a sale
type ReturnableLinesResponse struct {
	SaleID        uuid.UUID                 `json:"sale_id"`
	StoreID       uuid.UUID                 `json:"store_id"`
	InvoiceNumber string                    `json:"invoice_number"`
	SaleStatus    string                    `json:"sale_status"`
	Returnable    bool                      `json:"returnable"`
	TaxRate       decimal.Decimal           `json:"tax_rate"`
	Lines         []returns.EligibleLine    `json:"lines"`
	Warnings      []DataIntegrityWarningDTO `json:"warnings,omitempty"`
}

// DataIntegrityWarningDTO reports inconsistent sale data to operators
type DataIntegrityWarningDTO struct {
	SaleItemID       uuid.UUID `json:"sale_item_id"`
	OrderedQuantity  int       `json:"ordered_quantity"`
	ReturnedQuantity int       `json:"returned_quantity"`
	Message          string    `json:"message"`
}

// StatusSummaryResponse counts returns per status
type StatusSummaryResponse struct {
	Pending        int64           `json:"pending"`
	Approved       int64           `json:"approved"`
	Rejected       int64           `json:"rejected"`
	Completed      int64           `json:"completed"`
	Total          int64           `json:"total"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	PendingAmount  decimal.Decimal `json:"pending_amount"`
}

// ReceiptURLResponse is a short-lived link to an archived receipt
type ReceiptURLResponse struct {
	ReturnID  uuid.UUID `json:"return_id"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ============================================================================
// Converters
// ============================================================================

// ToReturnResponse converts a domain Return to ReturnResponse
func ToReturnResponse(r *returns.Return) ReturnResponse {
	items := make([]ReturnItemResponse, len(r.Items))
	for i := range r.Items {
		items[i] = ToReturnItemResponse(&r.Items[i])
	}
	refunds := make([]ReturnRefundResponse, len(r.Refunds))
	for i, rf := range r.Refunds {
		refunds[i] = ReturnRefundResponse{
			ID:            rf.ID,
			Amount:        rf.Amount,
			Method:        string(rf.Method),
			TransactionID: rf.TransactionID,
			ProcessedBy:   rf.ProcessedBy,
			ProcessedAt:   rf.ProcessedAt,
			Status:        string(rf.Status),
		}
	}

	return ReturnResponse{
		ID:              r.ID,
		ReturnNumber:    r.ReturnNumber,
		SaleID:          r.SaleID,
		StoreID:         r.StoreID,
		UserID:          r.UserID,
		Status:          string(r.Status),
		ReturnDate:      r.ReturnDate,
		TotalAmount:     r.TotalAmount,
		TaxRate:         r.TaxRate,
		TaxAmount:       r.TaxAmount,
		RefundAmount:    r.RefundAmount,
		RefundType:      string(r.RefundType),
		RefundStatus:    string(r.RefundStatus),
		RestockItems:    r.RestockItems,
		Items:           items,
		Refunds:         refunds,
		ItemCount:       r.ItemCount(),
		TotalQuantity:   r.TotalQuantity(),
		ApprovedBy:      r.ApprovedBy,
		ApprovedAt:      r.ApprovedAt,
		ApprovalNote:    r.ApprovalNote,
		RejectedBy:      r.RejectedBy,
		RejectedAt:      r.RejectedAt,
		RejectionReason: r.RejectionReason,
		ProcessedBy:     r.ProcessedBy,
		ProcessedAt:     r.ProcessedAt,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		Version:         r.Version,
	}
}

// ToReturnItemResponse converts a domain ReturnLineItem to ReturnItemResponse
func ToReturnItemResponse(item *returns.ReturnLineItem) ReturnItemResponse {
	return ReturnItemResponse{
		ID:           item.ID,
		SaleItemID:   item.SaleItemID,
		ProductID:    item.ProductID,
		VariationID:  item.VariationID,
		ProductName:  item.ProductName,
		Quantity:     item.Quantity,
		UnitPrice:    item.UnitPrice,
		TotalPrice:   item.TotalPrice,
		Condition:    string(item.Condition),
		ReturnReason: item.ReturnReason,
		Restock:      item.Restock,
		Notes:        item.Notes,
	}
}

// ToReturnListItemResponses converts a slice of domain Returns to list responses
func ToReturnListItemResponses(list []returns.Return) []ReturnListItemResponse {
	responses := make([]ReturnListItemResponse, len(list))
	for i := range list {
		r := &list[i]
		responses[i] = ReturnListItemResponse{
			ID:           r.ID,
			ReturnNumber: r.ReturnNumber,
			SaleID:       r.SaleID,
			StoreID:      r.StoreID,
			Status:       string(r.Status),
			ReturnDate:   r.ReturnDate,
			ItemCount:    r.ItemCount(),
			RefundAmount: r.RefundAmount,
			RefundType:   string(r.RefundType),
			RefundStatus: string(r.RefundStatus),
			CreatedAt:    r.CreatedAt,
		}
	}
	return responses
}

func toWarningDTOs(warnings []returns.DataIntegrityWarning) []DataIntegrityWarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]DataIntegrityWarningDTO, len(warnings))
	for i, w := range warnings {
		out[i] = DataIntegrityWarningDTO{
			SaleItemID:       w.SaleItemID,
			OrderedQuantity:  w.OrderedQuantity,
			ReturnedQuantity: w.ReturnedQuantity,
			Message:          w.Message,
		}
	}
	return out
}

func toStatusSummaryResponse(s *returns.StatusSummary) StatusSummaryResponse {
	return StatusSummaryResponse{
		Pending:        s.Counts[returns.ReturnStatusPending],
		Approved:       s.Counts[returns.ReturnStatusApproved],
		Rejected:       s.Counts[returns.ReturnStatusRejected],
		Completed:      s.Counts[returns.ReturnStatusCompleted],
		Total:          s.Total,
		RefundedAmount: s.RefundedAmount,
		PendingAmount:  s.PendingAmount,
	}
}
