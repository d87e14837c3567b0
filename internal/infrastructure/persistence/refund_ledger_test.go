package persistence

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInstruction(returnID uuid.UUID, i int, method returns.RefundType, amount string) returns.RefundInstruction {
	return returns.RefundInstruction{
		Reference: returnID.String() + ":refund:" + strconv.Itoa(i),
		ReturnID:  returnID,
		StoreID:   testStoreID,
		Amount:    decimal.RequireFromString(amount),
		Method:    method,
		ActorID:   testUserID,
	}
}

func TestGormRefundLedger_IssueRefund(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	t.Run("records a settlement with a transaction id", func(t *testing.T) {
		db := newSQLiteDB(t)
		ledger := NewGormRefundLedger(db)
		ledger.now = func() time.Time { return fixed }
		returnID := uuid.New()

		issued, err := ledger.IssueRefund(ctx, newInstruction(returnID, 0, returns.RefundTypeCredit, "12.50"))

		require.NoError(t, err)
		assert.Regexp(t, `^RF-20260314-[0-9A-F]{12}$`, issued.TransactionID)
		assert.True(t, issued.Amount.Equal(decimal.RequireFromString("12.50")))
		assert.Equal(t, returns.RefundTypeCredit, issued.Method)

		var entry models.RefundSettlementModel
		require.NoError(t, db.First(&entry, "transaction_id = ?", issued.TransactionID).Error)
		assert.Equal(t, models.SettlementChannelLedger, entry.Channel)
		assert.Equal(t, returnID, entry.ReturnID)
	})

	t.Run("cash goes to the tender channel", func(t *testing.T) {
		db := newSQLiteDB(t)
		ledger := NewGormRefundLedger(db)

		issued, err := ledger.IssueRefund(ctx, newInstruction(uuid.New(), 0, returns.RefundTypeCash, "3.00"))
		require.NoError(t, err)

		var entry models.RefundSettlementModel
		require.NoError(t, db.First(&entry, "transaction_id = ?", issued.TransactionID).Error)
		assert.Equal(t, models.SettlementChannelTender, entry.Channel)
	})

	t.Run("repeating a reference returns the first settlement", func(t *testing.T) {
		ledger := NewGormRefundLedger(newSQLiteDB(t))
		returnID := uuid.New()
		instr := newInstruction(returnID, 1, returns.RefundTypeCard, "20.00")

		first, err := ledger.IssueRefund(ctx, instr)
		require.NoError(t, err)
		second, err := ledger.IssueRefund(ctx, instr)
		require.NoError(t, err)

		assert.Equal(t, first.TransactionID, second.TransactionID)
		list, err := ledger.ListByReturn(ctx, returnID)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("same reference with another amount conflicts", func(t *testing.T) {
		ledger := NewGormRefundLedger(newSQLiteDB(t))
		returnID := uuid.New()

		_, err := ledger.IssueRefund(ctx, newInstruction(returnID, 0, returns.RefundTypeCash, "20.00"))
		require.NoError(t, err)
		_, err = ledger.IssueRefund(ctx, newInstruction(returnID, 0, returns.RefundTypeCash, "19.99"))

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, returns.CodeRefundConflict, de.Code)
	})

	t.Run("same reference with another method conflicts", func(t *testing.T) {
		ledger := NewGormRefundLedger(newSQLiteDB(t))
		returnID := uuid.New()

		_, err := ledger.IssueRefund(ctx, newInstruction(returnID, 0, returns.RefundTypeCredit, "11.00"))
		require.NoError(t, err)
		_, err = ledger.IssueRefund(ctx, newInstruction(returnID, 0, returns.RefundTypeCash, "11.00"))

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, returns.CodeRefundConflict, de.Code)

		list, err := ledger.ListByReturn(ctx, returnID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, returnID.String()+":refund:0", list[0].Reference)
		assert.Equal(t, returns.RefundTypeCredit, list[0].Method)
	})

	t.Run("rejects malformed instructions", func(t *testing.T) {
		ledger := NewGormRefundLedger(newSQLiteDB(t))
		returnID := uuid.New()

		cases := map[string]returns.RefundInstruction{
			"empty reference": {Method: returns.RefundTypeCash, Amount: decimal.NewFromInt(1)},
			"unknown method":  newInstruction(returnID, 0, returns.RefundType("voucher"), "1.00"),
			"zero amount":     newInstruction(returnID, 0, returns.RefundTypeCash, "0"),
		}
		for name, instr := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := ledger.IssueRefund(ctx, instr)
				var de *shared.DomainError
				require.ErrorAs(t, err, &de)
				assert.Equal(t, returns.CodeInvalidRefund, de.Code)
			})
		}
	})
}
