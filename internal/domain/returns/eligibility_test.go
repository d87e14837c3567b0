package returns

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEligibility(t *testing.T) {
	t.Run("no prior returns leaves every unit returnable", func(t *testing.T) {
		sale := newTestSale(newTestLine(5, "10.00"), newTestLine(2, "3.50"))

		result := ComputeEligibility(sale, nil)

		require.Len(t, result.Lines, 2)
		assert.Empty(t, result.Warnings)
		assert.Equal(t, 5, result.Lines[0].ReturnableQuantity)
		assert.True(t, decimal.RequireFromString("50").Equal(result.Lines[0].ReturnableAmount))
		assert.Equal(t, 2, result.Lines[1].ReturnableQuantity)
		assert.True(t, decimal.RequireFromString("7").Equal(result.Lines[1].ReturnableAmount))
	})

	t.Run("pending approved and completed returns count, rejected do not", func(t *testing.T) {
		sale := newTestSale(newTestLine(10, "1.00"))
		itemID := sale.Lines[0].SaleItemID
		prior := []PriorReturnLine{
			{ReturnID: uuid.New(), SaleItemID: itemID, Quantity: 1, ReturnStatus: ReturnStatusPending},
			{ReturnID: uuid.New(), SaleItemID: itemID, Quantity: 2, ReturnStatus: ReturnStatusApproved},
			{ReturnID: uuid.New(), SaleItemID: itemID, Quantity: 3, ReturnStatus: ReturnStatusCompleted},
			{ReturnID: uuid.New(), SaleItemID: itemID, Quantity: 4, ReturnStatus: ReturnStatusRejected},
		}

		result := ComputeEligibility(sale, prior)

		line, ok := result.Line(itemID)
		require.True(t, ok)
		assert.Equal(t, 6, line.ReturnedQuantity)
		assert.Equal(t, 4, line.ReturnableQuantity)
		assert.True(t, decimal.NewFromInt(4).Equal(line.ReturnableAmount))
	})

	t.Run("over-returned line is clamped to zero with a warning", func(t *testing.T) {
		sale := newTestSale(newTestLine(2, "5.00"))
		itemID := sale.Lines[0].SaleItemID
		prior := []PriorReturnLine{
			{ReturnID: uuid.New(), SaleItemID: itemID, Quantity: 3, ReturnStatus: ReturnStatusCompleted},
		}

		result := ComputeEligibility(sale, prior)

		assert.Equal(t, 0, result.Lines[0].ReturnableQuantity)
		assert.True(t, result.Lines[0].ReturnableAmount.IsZero())
		require.Len(t, result.Warnings, 1)
		assert.Equal(t, itemID, result.Warnings[0].SaleItemID)
		assert.Equal(t, 3, result.Warnings[0].ReturnedQuantity)
	})

	t.Run("prior line for unknown sale item is reported and ignored", func(t *testing.T) {
		sale := newTestSale(newTestLine(2, "5.00"))
		prior := []PriorReturnLine{
			{ReturnID: uuid.New(), SaleItemID: uuid.New(), Quantity: 1, ReturnStatus: ReturnStatusPending},
		}

		result := ComputeEligibility(sale, prior)

		assert.Equal(t, 2, result.Lines[0].ReturnableQuantity)
		assert.Len(t, result.Warnings, 1)
	})

	t.Run("recomputing without mutation gives identical results", func(t *testing.T) {
		sale := newTestSale(newTestLine(5, "10.00"), newTestLine(3, "1.99"))
		prior := []PriorReturnLine{
			{ReturnID: uuid.New(), SaleItemID: sale.Lines[1].SaleItemID, Quantity: 1, ReturnStatus: ReturnStatusPending},
		}

		first := ComputeEligibility(sale, prior)
		second := ComputeEligibility(sale, prior)

		assert.Equal(t, first, second)
	})
}
