package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRefundLedger implements returns.RefundIssuer by writing settlement
// entries to the refund_settlements table. Store credit and adjustments are
// settled by the entry itself; cash and card entries are picked up by drawer
// and terminal reconciliation.
type GormRefundLedger struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRefundLedger creates a new GormRefundLedger
func NewGormRefundLedger(db *gorm.DB) *GormRefundLedger {
	return &GormRefundLedger{db: db, now: time.Now}
}

// IssueRefund records a payout. Issuing again with the same reference
// returns the original entry; a different method or amount for a reference
// that was already settled is refused.
func (l *GormRefundLedger) IssueRefund(ctx context.Context, instr returns.RefundInstruction) (*returns.IssuedRefund, error) {
	if strings.TrimSpace(instr.Reference) == "" {
		return nil, shared.NewDomainError(returns.CodeInvalidRefund, "Refund reference cannot be empty")
	}
	if !instr.Method.IsValid() {
		return nil, shared.NewDomainError(returns.CodeInvalidRefund, fmt.Sprintf("Unknown refund method %q", instr.Method))
	}
	if !instr.Amount.IsPositive() {
		return nil, shared.NewDomainError(returns.CodeInvalidRefund, "Refund amount must be positive")
	}

	if existing, err := l.find(ctx, instr.Reference); err != nil {
		return nil, err
	} else if existing != nil {
		return l.replay(existing, instr)
	}

	now := l.now()
	entry := &models.RefundSettlementModel{
		ID:            uuid.New(),
		Reference:     instr.Reference,
		Method:        instr.Method,
		TransactionID: newTransactionID(now),
		ReturnID:      instr.ReturnID,
		StoreID:       instr.StoreID,
		ActorID:       instr.ActorID,
		Amount:        instr.Amount,
		Channel:       settlementChannel(instr.Method),
		SettledAt:     now,
		CreatedAt:     now,
	}
	if err := l.db.WithContext(ctx).Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent retry with the same reference won
			existing, findErr := l.find(ctx, instr.Reference)
			if findErr != nil {
				return nil, findErr
			}
			if existing != nil {
				return l.replay(existing, instr)
			}
		}
		return nil, fmt.Errorf("write refund settlement: %w", err)
	}
	return entry.ToIssuedRefund(), nil
}

// ListByReturn lists the settlements recorded for a return, oldest first
func (l *GormRefundLedger) ListByReturn(ctx context.Context, returnID uuid.UUID) ([]returns.IssuedRefund, error) {
	var rows []models.RefundSettlementModel
	if err := l.db.WithContext(ctx).
		Where("return_id = ?", returnID).
		Order("settled_at ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list refund settlements: %w", err)
	}
	out := make([]returns.IssuedRefund, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToIssuedRefund()
	}
	return out, nil
}

func (l *GormRefundLedger) find(ctx context.Context, reference string) (*models.RefundSettlementModel, error) {
	var m models.RefundSettlementModel
	err := l.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read refund settlement: %w", err)
	}
	return &m, nil
}

func (l *GormRefundLedger) replay(existing *models.RefundSettlementModel, instr returns.RefundInstruction) (*returns.IssuedRefund, error) {
	if existing.Method != instr.Method || !existing.Amount.Equal(instr.Amount) {
		return nil, shared.NewDomainError(returns.CodeRefundConflict, fmt.Sprintf(
			"Reference %s was already settled as %s %s, not %s %s",
			instr.Reference,
			existing.Amount.StringFixed(returns.MoneyScale), existing.Method,
			instr.Amount.StringFixed(returns.MoneyScale), instr.Method))
	}
	return existing.ToIssuedRefund(), nil
}

func settlementChannel(method returns.RefundType) string {
	if method.SettlesOnLedger() {
		return models.SettlementChannelLedger
	}
	return models.SettlementChannelTender
}

// newTransactionID formats RF-YYYYMMDD-XXXXXXXXXXXX
func newTransactionID(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("RF-%s-%s", at.UTC().Format("20060102"), strings.ToUpper(id[:12]))
}

var _ returns.RefundIssuer = (*GormRefundLedger)(nil)
