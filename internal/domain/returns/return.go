package returns

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ReturnLineItem is a returned line of a sale
type ReturnLineItem struct {
	ID           uuid.UUID
	ReturnID     uuid.UUID
	SaleItemID   uuid.UUID
	ProductID    uuid.UUID
	VariationID  *uuid.UUID
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal // Quantity * UnitPrice
	Condition    ItemCondition
	ReturnReason string
	Restock      bool
	Notes        string
	CreatedAt    time.Time
}

// ReturnRefund is a payout made when a return is completed
type ReturnRefund struct {
	ID            uuid.UUID
	ReturnID      uuid.UUID
	Amount        decimal.Decimal
	Method        RefundType
	Reference     string
	TransactionID string
	ProcessedBy   uuid.UUID
	ProcessedAt   time.Time
	Status        ReturnRefundStatus
}

// RefundSplit is a requested share of the refund paid through one method
type RefundSplit struct {
	Method RefundType
	Amount decimal.Decimal
}

// Return is the aggregate root of a product return against a sale
type Return struct {
	shared.BaseAggregateRoot
	ReturnNumber    string
	SaleID          uuid.UUID
	StoreID         uuid.UUID
	UserID          uuid.UUID
	Status          ReturnStatus
	ReturnDate      time.Time
	TotalAmount     decimal.Decimal // Pre-tax sum of line totals
	TaxRate         decimal.Decimal
	TaxAmount       decimal.Decimal
	RefundAmount    decimal.Decimal // TotalAmount + TaxAmount
	RefundType      RefundType
	RefundStatus    RefundStatus
	RestockItems    bool // True when at least one line goes back to stock
	ApprovedBy      *uuid.UUID
	ApprovedAt      *time.Time
	ApprovalNote    string
	RejectedBy      *uuid.UUID
	RejectedAt      *time.Time
	RejectionReason string
	ProcessedBy     *uuid.UUID
	ProcessedAt     *time.Time
	Notes           string
	Items           []ReturnLineItem
	Refunds         []ReturnRefund
}

// NewReturn creates a pending return from a validated request and the
// totals computed for it. The return number is assigned by the store.
func NewReturn(v *ValidatedReturn, taxRate decimal.Decimal) (*Return, error) {
	if v == nil {
		return nil, shared.NewDomainError("INVALID_RETURN", "Validated return cannot be nil")
	}
	if len(v.Lines) == 0 {
		return nil, NewValidationFailedError(ValidationErrors{{
			Code:      ViolationEmptyReturn,
			ItemIndex: -1,
			Message:   "a return needs at least one item",
		}})
	}
	if taxRate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate cannot be negative")
	}

	totals := ComputeRefund(v.Lines, taxRate)
	now := time.Now()

	r := &Return{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(now),
		SaleID:            v.SaleID,
		StoreID:           v.StoreID,
		UserID:            v.UserID,
		Status:            ReturnStatusPending,
		ReturnDate:        now,
		TotalAmount:       totals.Subtotal,
		TaxRate:           taxRate,
		TaxAmount:         totals.TaxAmount,
		RefundAmount:      totals.Total,
		RefundType:        v.RefundType,
		RefundStatus:      RefundStatusPending,
		Notes:             v.Notes,
		Items:             make([]ReturnLineItem, 0, len(v.Lines)),
	}

	for _, l := range v.Lines {
		r.Items = append(r.Items, ReturnLineItem{
			ID:           uuid.New(),
			ReturnID:     r.ID,
			SaleItemID:   l.SaleItemID,
			ProductID:    l.ProductID,
			VariationID:  l.VariationID,
			ProductName:  l.ProductName,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
			TotalPrice:   l.TotalPrice(),
			Condition:    l.Condition,
			ReturnReason: l.ReturnReason,
			Restock:      l.Restock,
			Notes:        l.Notes,
			CreatedAt:    now,
		})
		if l.Restock {
			r.RestockItems = true
		}
	}

	return r, nil
}

// AssignReturnNumber sets the human-readable number once
func (r *Return) AssignReturnNumber(number string) error {
	if number == "" {
		return shared.NewDomainError("INVALID_RETURN_NUMBER", "Return number cannot be empty")
	}
	if len(number) > 50 {
		return shared.NewDomainError("INVALID_RETURN_NUMBER", "Return number cannot exceed 50 characters")
	}
	if r.ReturnNumber != "" && r.ReturnNumber != number {
		return shared.NewDomainError("INVALID_RETURN_NUMBER", "Return number is already assigned")
	}
	r.ReturnNumber = number
	return nil
}

// MarkCreated records the creation event once the return has been stored
func (r *Return) MarkCreated() {
	r.Raise(NewReturnCreatedEvent(r))
}

// CheckTransition reports whether the return may move to target without
// changing anything.
func (r *Return) CheckTransition(target ReturnStatus) error {
	if !r.Status.CanTransitionTo(target) {
		return NewInvalidTransitionError(r.Status, target)
	}
	return nil
}

// Approve approves a pending return
func (r *Return) Approve(actorID uuid.UUID, note string) error {
	if err := r.CheckTransition(ReturnStatusApproved); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return shared.NewDomainError(CodeInvalidActor, "Approver ID cannot be empty")
	}

	now := time.Now()
	r.Status = ReturnStatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &actorID
	r.ApprovalNote = note
	r.UpdatedAt = now

	r.Raise(NewReturnApprovedEvent(r))

	return nil
}

// Reject rejects a pending return. The comment is optional.
func (r *Return) Reject(actorID uuid.UUID, comment string) error {
	if err := r.CheckTransition(ReturnStatusRejected); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return shared.NewDomainError(CodeInvalidActor, "Rejecter ID cannot be empty")
	}

	now := time.Now()
	r.Status = ReturnStatusRejected
	r.RejectedAt = &now
	r.RejectedBy = &actorID
	r.RejectionReason = comment
	r.UpdatedAt = now

	r.Raise(NewReturnRejectedEvent(r))

	return nil
}

// PlanRefunds resolves how the refund amount is paid out. Without splits
// the whole amount goes through the return's refund type. With splits every
// share must be positive and use a known method, and the shares must add up
// to the refund amount exactly. A return worth nothing gets a single zero
// share and cannot be split.
func (r *Return) PlanRefunds(splits []RefundSplit) ([]RefundSplit, error) {
	if r.RefundAmount.IsZero() {
		if len(splits) > 0 {
			return nil, shared.NewDomainError(CodeInvalidRefundSplit, "Refund amount is zero and cannot be split")
		}
		return []RefundSplit{{Method: r.RefundType, Amount: decimal.Zero}}, nil
	}
	if len(splits) == 0 {
		return []RefundSplit{{Method: r.RefundType, Amount: r.RefundAmount}}, nil
	}

	sum := decimal.Zero
	for i, s := range splits {
		if !s.Method.IsValid() {
			return nil, shared.NewDomainError(CodeInvalidRefundSplit,
				fmt.Sprintf("Refund split %d has unknown method %q", i, s.Method))
		}
		if !s.Amount.IsPositive() {
			return nil, shared.NewDomainError(CodeInvalidRefundSplit,
				fmt.Sprintf("Refund split %d must have a positive amount", i))
		}
		if !s.Amount.Equal(s.Amount.Round(MoneyScale)) {
			return nil, shared.NewDomainError(CodeInvalidRefundSplit,
				fmt.Sprintf("Refund split %d has more than %d decimals", i, MoneyScale))
		}
		sum = sum.Add(s.Amount)
	}
	if !sum.Equal(r.RefundAmount) {
		return nil, shared.NewDomainError(CodeInvalidRefundSplit,
			fmt.Sprintf("Refund splits add up to %s but the refund amount is %s", sum.StringFixed(MoneyScale), r.RefundAmount.StringFixed(MoneyScale)))
	}

	return splits, nil
}

// RefundReference is the idempotency reference of the i-th payout
func (r *Return) RefundReference(i int) string {
	return fmt.Sprintf("%s:refund:%d", r.ID, i)
}

// CheckSettled verifies that payouts already made for the return fit plan.
// Each settled payout must match the share at its position in both method
// and amount, otherwise completing with plan would pay out twice.
func (r *Return) CheckSettled(plan []RefundSplit, settled []IssuedRefund) error {
	for _, s := range settled {
		i, ok := r.refundIndex(s.Reference)
		if ok && i < len(plan) && plan[i].Method == s.Method && plan[i].Amount.Equal(s.Amount) {
			continue
		}
		return shared.NewDomainError(CodeRefundConflict, fmt.Sprintf(
			"%s %s was already paid out as %s; retry with the same split",
			s.Amount.StringFixed(MoneyScale), s.Method, s.Reference,
		)).WithDetails(settled)
	}
	return nil
}

func (r *Return) refundIndex(reference string) (int, bool) {
	rest, ok := strings.CutPrefix(reference, r.ID.String()+":refund:")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	return i, err == nil && i >= 0
}

// Complete marks an approved return as refunded. refunds are the payouts
// already made by the settlement collaborator and must add up to the
// refund amount.
func (r *Return) Complete(actorID uuid.UUID, refunds []ReturnRefund) error {
	if err := r.CheckTransition(ReturnStatusCompleted); err != nil {
		return err
	}
	if actorID == uuid.Nil {
		return shared.NewDomainError(CodeInvalidActor, "Processor ID cannot be empty")
	}
	if len(refunds) == 0 {
		return shared.NewDomainError(CodeInvalidRefundSplit, "A completed return needs at least one refund record")
	}

	sum := decimal.Zero
	for _, rf := range refunds {
		sum = sum.Add(rf.Amount)
	}
	if !sum.Equal(r.RefundAmount) {
		return shared.NewDomainError(CodeInvalidRefundSplit,
			fmt.Sprintf("Refund records add up to %s but the refund amount is %s", sum.StringFixed(MoneyScale), r.RefundAmount.StringFixed(MoneyScale)))
	}

	now := time.Now()
	for i := range refunds {
		refunds[i].ReturnID = r.ID
		if refunds[i].ID == uuid.Nil {
			refunds[i].ID = uuid.New()
		}
	}

	r.Status = ReturnStatusCompleted
	r.RefundStatus = RefundStatusProcessed
	r.ProcessedBy = &actorID
	r.ProcessedAt = &now
	r.Refunds = append(r.Refunds, refunds...)
	r.UpdatedAt = now

	r.Raise(NewReturnCompletedEvent(r))

	return nil
}

// CheckDeletable reports whether the return may be deleted. Only pending
// returns can be, since nothing was applied for them yet.
func (r *Return) CheckDeletable() error {
	if r.Status != ReturnStatusPending {
		return shared.NewDomainError(
			CodeInvalidTransition,
			fmt.Sprintf("Cannot delete return in %s status, only pending returns can be deleted", r.Status),
		).WithDetails(map[string]string{"from": string(r.Status), "to": "deleted"})
	}
	return nil
}

// MarkDeleted records the deletion event
func (r *Return) MarkDeleted(actorID uuid.UUID) {
	r.Raise(NewReturnDeletedEvent(r, actorID))
}

// RestockRequests lists one request per line flagged for restock
func (r *Return) RestockRequests() []RestockRequest {
	reqs := make([]RestockRequest, 0, len(r.Items))
	for _, item := range r.Items {
		if !item.Restock {
			continue
		}
		reqs = append(reqs, RestockRequest{
			Reference:   fmt.Sprintf("%s:restock:%s", r.ID, item.ID),
			ReturnID:    r.ID,
			StoreID:     r.StoreID,
			ProductID:   item.ProductID,
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
		})
	}
	return reqs
}

// PriorLines converts the return into history lines for eligibility
func (r *Return) PriorLines() []PriorReturnLine {
	lines := make([]PriorReturnLine, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, PriorReturnLine{
			ReturnID:     r.ID,
			SaleItemID:   item.SaleItemID,
			Quantity:     item.Quantity,
			ReturnStatus: r.Status,
		})
	}
	return lines
}

// ItemCount returns the number of lines in the return
func (r *Return) ItemCount() int {
	return len(r.Items)
}

// TotalQuantity returns the sum of returned units
func (r *Return) TotalQuantity() int {
	total := 0
	for _, item := range r.Items {
		total += item.Quantity
	}
	return total
}

// RefundedTotal sums the refund records
func (r *Return) RefundedTotal() decimal.Decimal {
	total := decimal.Zero
	for _, rf := range r.Refunds {
		total = total.Add(rf.Amount)
	}
	return total
}

// IsPending returns true if the return is waiting for approval
func (r *Return) IsPending() bool {
	return r.Status == ReturnStatusPending
}

// IsApproved returns true if the return is approved
func (r *Return) IsApproved() bool {
	return r.Status == ReturnStatusApproved
}

// IsRejected returns true if the return is rejected
func (r *Return) IsRejected() bool {
	return r.Status == ReturnStatusRejected
}

// IsCompleted returns true if the return is completed
func (r *Return) IsCompleted() bool {
	return r.Status == ReturnStatusCompleted
}
