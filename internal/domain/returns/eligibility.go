package returns

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EligibleLine is the part of a sale line that can still be returned
type EligibleLine struct {
	SaleItemID         uuid.UUID       `json:"sale_item_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	VariationID        *uuid.UUID      `json:"variation_id,omitempty"`
	ProductName        string          `json:"product_name"`
	OrderedQuantity    int             `json:"ordered_quantity"`
	ReturnedQuantity   int             `json:"returned_quantity"`
	ReturnableQuantity int             `json:"returnable_quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	ReturnableAmount   decimal.Decimal `json:"returnable_amount"`
}

// DataIntegrityWarning flags inconsistent upstream data found while
// computing eligibility. It is reported, never fatal.
type DataIntegrityWarning struct {
	SaleItemID       uuid.UUID
	OrderedQuantity  int
	ReturnedQuantity int
	Message          string
}

// EligibilityResult is the outcome of ComputeEligibility
type EligibilityResult struct {
	Lines    []EligibleLine
	Warnings []DataIntegrityWarning
}

// Line finds the eligible line for a sale item
func (r EligibilityResult) Line(saleItemID uuid.UUID) (EligibleLine, bool) {
	for _, l := range r.Lines {
		if l.SaleItemID == saleItemID {
			return l, true
		}
	}
	return EligibleLine{}, false
}

// ComputeEligibility derives, for every line of sale, the quantity and
// amount still returnable given the lines of prior returns. Lines of
// rejected returns do not count. The result follows the order of
// sale.Lines and depends only on its inputs.
func ComputeEligibility(sale *SaleSnapshot, prior []PriorReturnLine) EligibilityResult {
	result := EligibilityResult{
		Lines: make([]EligibleLine, 0, len(sale.Lines)),
	}

	returned := make(map[uuid.UUID]int, len(sale.Lines))
	known := make(map[uuid.UUID]bool, len(sale.Lines))
	for _, l := range sale.Lines {
		known[l.SaleItemID] = true
	}

	for _, p := range prior {
		if !p.ReturnStatus.CountsAgainstEligibility() {
			continue
		}
		if !known[p.SaleItemID] {
			result.Warnings = append(result.Warnings, DataIntegrityWarning{
				SaleItemID:       p.SaleItemID,
				ReturnedQuantity: p.Quantity,
				Message:          fmt.Sprintf("return %s references sale item %s which is not part of sale %s", p.ReturnID, p.SaleItemID, sale.SaleID),
			})
			continue
		}
		returned[p.SaleItemID] += p.Quantity
	}

	for _, l := range sale.Lines {
		qty := returned[l.SaleItemID]
		remaining := l.OrderedQuantity - qty
		if remaining < 0 {
			result.Warnings = append(result.Warnings, DataIntegrityWarning{
				SaleItemID:       l.SaleItemID,
				OrderedQuantity:  l.OrderedQuantity,
				ReturnedQuantity: qty,
				Message:          fmt.Sprintf("sale item %s has %d returned against %d ordered", l.SaleItemID, qty, l.OrderedQuantity),
			})
			remaining = 0
		}

		result.Lines = append(result.Lines, EligibleLine{
			SaleItemID:         l.SaleItemID,
			ProductID:          l.ProductID,
			VariationID:        l.VariationID,
			ProductName:        l.ProductName,
			OrderedQuantity:    l.OrderedQuantity,
			ReturnedQuantity:   qty,
			ReturnableQuantity: remaining,
			UnitPrice:          l.UnitPrice,
			ReturnableAmount:   l.UnitPrice.Mul(decimal.NewFromInt(int64(remaining))),
		})
	}

	return result
}
