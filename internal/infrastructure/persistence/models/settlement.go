package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/shopspring/decimal"
)

// Settlement channels recorded in the refund ledger
const (
	SettlementChannelLedger = "ledger" // store credit and balance adjustments
	SettlementChannelTender = "tender" // cash drawer and card terminal payouts
)

// RefundSettlementModel is an entry of the refund ledger. One entry exists
// per reference.
type RefundSettlementModel struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key"`
	Reference     string             `gorm:"type:varchar(120);not null;uniqueIndex:idx_refund_settlements_reference"`
	Method        returns.RefundType `gorm:"type:varchar(20);not null"`
	TransactionID string             `gorm:"type:varchar(100);not null;uniqueIndex"`
	ReturnID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	StoreID       uuid.UUID          `gorm:"type:uuid;not null;index"`
	ActorID       uuid.UUID          `gorm:"type:uuid;not null"`
	Amount        decimal.Decimal    `gorm:"type:decimal(18,2);not null"`
	Channel       string             `gorm:"type:varchar(20);not null"`
	SettledAt     time.Time          `gorm:"not null"`
	CreatedAt     time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RefundSettlementModel) TableName() string {
	return "refund_settlements"
}

// ToIssuedRefund converts the ledger entry to the issuer's receipt
func (m *RefundSettlementModel) ToIssuedRefund() *returns.IssuedRefund {
	return &returns.IssuedRefund{
		Reference:     m.Reference,
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		Method:        m.Method,
		ProcessedAt:   m.SettledAt,
	}
}
