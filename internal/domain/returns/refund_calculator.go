package returns

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of minor-unit digits of the store currency
const MoneyScale int32 = 2

// RefundTotals is the breakdown of a refund
type RefundTotals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// RoundHalfUp rounds d to places decimals with halves going away from zero,
// so 0.125 becomes 0.13 as on a register tape. Banker's rounding is never
// used for customer-facing amounts.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Round(places)
}

// ComputeRefund computes subtotal, proportional tax and total for lines.
// The tax is taken on the subtotal, not per line, and rounded half-up to
// the currency's minor unit. No fee is ever deducted.
func ComputeRefund(lines []ValidatedReturnLine, taxRate decimal.Decimal) RefundTotals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.TotalPrice())
	}
	tax := RoundHalfUp(subtotal.Mul(taxRate), MoneyScale)

	return RefundTotals{
		Subtotal:  subtotal,
		TaxAmount: tax,
		Total:     subtotal.Add(tax),
	}
}
