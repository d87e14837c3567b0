package returns

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// newTestSale builds a completed sale with one line per quantity/price pair
func newTestSale(lines ...SaleLineItem) *SaleSnapshot {
	return &SaleSnapshot{
		SaleID:        uuid.New(),
		StoreID:       uuid.New(),
		InvoiceNumber: "INV-0001",
		Status:        SaleStatusCompleted,
		TaxRate:       decimal.RequireFromString("0.10"),
		SaleDate:      time.Now().Add(-24 * time.Hour),
		Lines:         lines,
	}
}

func newTestLine(qty int, price string) SaleLineItem {
	p := decimal.RequireFromString(price)
	return SaleLineItem{
		SaleItemID:      uuid.New(),
		ProductID:       uuid.New(),
		ProductName:     "Test product",
		OrderedQuantity: qty,
		UnitPrice:       p,
		LineTotal:       p.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func newTestRequest(sale *SaleSnapshot, items ...ReturnItemInput) ReturnRequest {
	return ReturnRequest{
		SaleID:     sale.SaleID,
		StoreID:    sale.StoreID,
		UserID:     uuid.New(),
		Items:      items,
		RefundType: RefundTypeCash,
	}
}

// newPendingReturn validates a return of qty units of the first sale line
func newPendingReturn(t *testing.T, sale *SaleSnapshot, qty int, restock bool) *Return {
	t.Helper()
	eligibility := ComputeEligibility(sale, nil)
	req := newTestRequest(sale, ReturnItemInput{
		SaleItemID: sale.Lines[0].SaleItemID,
		Quantity:   qty,
		Condition:  ItemConditionGood,
		Restock:    restock,
	})
	validated, err := ValidateRequest(req, eligibility.Lines)
	require.NoError(t, err)

	r, err := NewReturn(validated, sale.TaxRate)
	require.NoError(t, err)
	require.NoError(t, r.AssignReturnNumber("RT-2026-00001"))
	return r
}
