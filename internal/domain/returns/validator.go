package returns

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReturnItemInput is one requested line of a return
type ReturnItemInput struct {
	SaleItemID   uuid.UUID
	Quantity     int
	Condition    ItemCondition
	ReturnReason string
	Restock      bool
	Notes        string
}

// ReturnRequest is a caller-proposed return against a sale
type ReturnRequest struct {
	SaleID     uuid.UUID
	StoreID    uuid.UUID
	UserID     uuid.UUID
	Items      []ReturnItemInput
	RefundType RefundType
	Notes      string
}

// ValidatedReturnLine is a requested line resolved against the sale.
// UnitPrice always comes from the sale, never from the caller.
type ValidatedReturnLine struct {
	SaleItemID   uuid.UUID
	ProductID    uuid.UUID
	VariationID  *uuid.UUID
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	Condition    ItemCondition
	ReturnReason string
	Restock      bool
	Notes        string
}

// TotalPrice returns quantity times unit price
func (l ValidatedReturnLine) TotalPrice() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ValidatedReturn is a request that passed validation
type ValidatedReturn struct {
	SaleID     uuid.UUID
	StoreID    uuid.UUID
	UserID     uuid.UUID
	RefundType RefundType
	Notes      string
	Lines      []ValidatedReturnLine
}

// ValidateRequest checks req against the current eligibility of the sale.
// Every violation is collected; if there is any, the whole request is
// rejected and the error is a ValidationErrors list. Several items may
// target the same sale line (for example with different conditions); their
// quantities are summed before comparing with the returnable quantity.
func ValidateRequest(req ReturnRequest, eligibility []EligibleLine) (*ValidatedReturn, error) {
	var violations ValidationErrors

	if req.SaleID == uuid.Nil {
		violations = append(violations, ValidationError{
			Code:      ViolationMissingSale,
			ItemIndex: -1,
			Message:   "sale id is required",
		})
	}
	if req.UserID == uuid.Nil {
		violations = append(violations, ValidationError{
			Code:      ViolationMissingUser,
			ItemIndex: -1,
			Message:   "requesting user is required",
		})
	}
	if !req.RefundType.IsValid() {
		violations = append(violations, ValidationError{
			Code:      ViolationInvalidRefundType,
			ItemIndex: -1,
			Message:   fmt.Sprintf("refund type %q is not one of cash, card, adjustment, credit", req.RefundType),
		})
	}
	if len(req.Items) == 0 {
		violations = append(violations, ValidationError{
			Code:      ViolationEmptyReturn,
			ItemIndex: -1,
			Message:   "a return needs at least one item",
		})
		return nil, violations
	}

	bySaleItem := make(map[uuid.UUID]EligibleLine, len(eligibility))
	for _, e := range eligibility {
		bySaleItem[e.SaleItemID] = e
	}

	requested := make(map[uuid.UUID]int, len(req.Items))
	lastIndex := make(map[uuid.UUID]int, len(req.Items))
	order := make([]uuid.UUID, 0, len(req.Items))
	lines := make([]ValidatedReturnLine, 0, len(req.Items))

	for i, item := range req.Items {
		eligible, ok := bySaleItem[item.SaleItemID]
		if !ok {
			violations = append(violations, ValidationError{
				Code:       ViolationUnknownSaleItem,
				ItemIndex:  i,
				SaleItemID: item.SaleItemID,
				Message:    fmt.Sprintf("item %d: sale item %s is not part of sale %s", i, item.SaleItemID, req.SaleID),
			})
			continue
		}
		if item.Quantity < 1 {
			violations = append(violations, ValidationError{
				Code:       ViolationInvalidQuantity,
				ItemIndex:  i,
				SaleItemID: item.SaleItemID,
				Requested:  item.Quantity,
				Message:    fmt.Sprintf("item %d: quantity must be at least 1, got %d", i, item.Quantity),
			})
			continue
		}
		if !item.Condition.IsValid() {
			violations = append(violations, ValidationError{
				Code:       ViolationInvalidCondition,
				ItemIndex:  i,
				SaleItemID: item.SaleItemID,
				Message:    fmt.Sprintf("item %d: condition %q is not one of good, damaged, defective", i, item.Condition),
			})
			continue
		}

		if _, seen := requested[item.SaleItemID]; !seen {
			order = append(order, item.SaleItemID)
		}
		requested[item.SaleItemID] += item.Quantity
		lastIndex[item.SaleItemID] = i

		lines = append(lines, ValidatedReturnLine{
			SaleItemID:   eligible.SaleItemID,
			ProductID:    eligible.ProductID,
			VariationID:  eligible.VariationID,
			ProductName:  eligible.ProductName,
			Quantity:     item.Quantity,
			UnitPrice:    eligible.UnitPrice,
			Condition:    item.Condition,
			ReturnReason: item.ReturnReason,
			Restock:      item.Restock,
			Notes:        item.Notes,
		})
	}

	for _, saleItemID := range order {
		eligible := bySaleItem[saleItemID]
		if qty := requested[saleItemID]; qty > eligible.ReturnableQuantity {
			violations = append(violations, ValidationError{
				Code:       ViolationQuantityExceedsEligible,
				ItemIndex:  lastIndex[saleItemID],
				SaleItemID: saleItemID,
				Requested:  qty,
				Returnable: eligible.ReturnableQuantity,
				Message: fmt.Sprintf("sale item %s: %d requested but only %d returnable",
					saleItemID, qty, eligible.ReturnableQuantity),
			})
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}

	return &ValidatedReturn{
		SaleID:     req.SaleID,
		StoreID:    req.StoreID,
		UserID:     req.UserID,
		RefundType: req.RefundType,
		Notes:      req.Notes,
		Lines:      lines,
	}, nil
}
