package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/shopspring/decimal"
)

// ReturnModel is the persistence model for the Return aggregate root.
type ReturnModel struct {
	VersionedModel
	ReturnNumber    string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_sales_returns_number"`
	SaleID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	StoreID         uuid.UUID            `gorm:"type:uuid;not null;index"`
	UserID          uuid.UUID            `gorm:"type:uuid;not null"`
	Status          returns.ReturnStatus `gorm:"type:varchar(20);not null;default:'pending';index"`
	ReturnDate      time.Time            `gorm:"not null;index"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxRate         decimal.Decimal      `gorm:"type:decimal(9,6);not null;default:0"`
	TaxAmount       decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	RefundAmount    decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	RefundType      returns.RefundType   `gorm:"type:varchar(20);not null"`
	RefundStatus    returns.RefundStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	RestockItems    bool                 `gorm:"not null;default:false"`
	ApprovedBy      *uuid.UUID           `gorm:"type:uuid"`
	ApprovedAt      *time.Time           `gorm:"index"`
	ApprovalNote    string               `gorm:"type:varchar(500)"`
	RejectedBy      *uuid.UUID           `gorm:"type:uuid"`
	RejectedAt      *time.Time           `gorm:"index"`
	RejectionReason string               `gorm:"type:varchar(500)"`
	ProcessedBy     *uuid.UUID           `gorm:"type:uuid"`
	ProcessedAt     *time.Time           `gorm:"index"`
	Notes           string               `gorm:"type:text"`
	Items           []ReturnItemModel    `gorm:"foreignKey:ReturnID;references:ID"`
	Refunds         []ReturnRefundModel  `gorm:"foreignKey:ReturnID;references:ID"`
}

// TableName returns the table name for GORM
func (ReturnModel) TableName() string {
	return "sales_returns"
}

// ToDomain converts the persistence model to a domain Return
func (m *ReturnModel) ToDomain() *returns.Return {
	r := &returns.Return{
		BaseAggregateRoot: m.toAggregate(),
		ReturnNumber:      m.ReturnNumber,
		SaleID:            m.SaleID,
		StoreID:           m.StoreID,
		UserID:            m.UserID,
		Status:            m.Status,
		ReturnDate:        m.ReturnDate,
		TotalAmount:       m.TotalAmount,
		TaxRate:           m.TaxRate,
		TaxAmount:         m.TaxAmount,
		RefundAmount:      m.RefundAmount,
		RefundType:        m.RefundType,
		RefundStatus:      m.RefundStatus,
		RestockItems:      m.RestockItems,
		ApprovedBy:        m.ApprovedBy,
		ApprovedAt:        m.ApprovedAt,
		ApprovalNote:      m.ApprovalNote,
		RejectedBy:        m.RejectedBy,
		RejectedAt:        m.RejectedAt,
		RejectionReason:   m.RejectionReason,
		ProcessedBy:       m.ProcessedBy,
		ProcessedAt:       m.ProcessedAt,
		Notes:             m.Notes,
		Items:             make([]returns.ReturnLineItem, len(m.Items)),
		Refunds:           make([]returns.ReturnRefund, len(m.Refunds)),
	}
	for i := range m.Items {
		r.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.Refunds {
		r.Refunds[i] = m.Refunds[i].ToDomain()
	}
	return r
}

// FromDomain populates the persistence model from a domain Return
func (m *ReturnModel) FromDomain(r *returns.Return) {
	m.fromAggregate(r.BaseAggregateRoot)
	m.ReturnNumber = r.ReturnNumber
	m.SaleID = r.SaleID
	m.StoreID = r.StoreID
	m.UserID = r.UserID
	m.Status = r.Status
	m.ReturnDate = r.ReturnDate
	m.TotalAmount = r.TotalAmount
	m.TaxRate = r.TaxRate
	m.TaxAmount = r.TaxAmount
	m.RefundAmount = r.RefundAmount
	m.RefundType = r.RefundType
	m.RefundStatus = r.RefundStatus
	m.RestockItems = r.RestockItems
	m.ApprovedBy = r.ApprovedBy
	m.ApprovedAt = r.ApprovedAt
	m.ApprovalNote = r.ApprovalNote
	m.RejectedBy = r.RejectedBy
	m.RejectedAt = r.RejectedAt
	m.RejectionReason = r.RejectionReason
	m.ProcessedBy = r.ProcessedBy
	m.ProcessedAt = r.ProcessedAt
	m.Notes = r.Notes
	m.Items = make([]ReturnItemModel, len(r.Items))
	for i := range r.Items {
		m.Items[i] = ReturnItemModelFromDomain(r.ID, r.Items[i])
	}
	m.Refunds = make([]ReturnRefundModel, len(r.Refunds))
	for i := range r.Refunds {
		m.Refunds[i] = ReturnRefundModelFromDomain(r.ID, r.Refunds[i])
	}
}

// ReturnModelFromDomain creates a persistence model from a domain Return
func ReturnModelFromDomain(r *returns.Return) *ReturnModel {
	m := &ReturnModel{}
	m.FromDomain(r)
	return m
}

// ReturnItemModel is the persistence model for a returned sale line
type ReturnItemModel struct {
	ID           uuid.UUID             `gorm:"type:uuid;primary_key"`
	ReturnID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	SaleItemID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID             `gorm:"type:uuid;not null"`
	VariationID  *uuid.UUID            `gorm:"type:uuid"`
	ProductName  string                `gorm:"type:varchar(200);not null"`
	Quantity     int                   `gorm:"not null"`
	UnitPrice    decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	TotalPrice   decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Condition    returns.ItemCondition `gorm:"column:condition;type:varchar(20);not null"`
	ReturnReason string                `gorm:"type:varchar(500)"`
	Restock      bool                  `gorm:"not null;default:false"`
	Notes        string                `gorm:"type:text"`
	CreatedAt    time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReturnItemModel) TableName() string {
	return "sales_return_items"
}

// ToDomain converts the persistence model to a domain ReturnLineItem
func (m *ReturnItemModel) ToDomain() returns.ReturnLineItem {
	return returns.ReturnLineItem{
		ID:           m.ID,
		ReturnID:     m.ReturnID,
		SaleItemID:   m.SaleItemID,
		ProductID:    m.ProductID,
		VariationID:  m.VariationID,
		ProductName:  m.ProductName,
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		TotalPrice:   m.TotalPrice,
		Condition:    m.Condition,
		ReturnReason: m.ReturnReason,
		Restock:      m.Restock,
		Notes:        m.Notes,
		CreatedAt:    m.CreatedAt,
	}
}

// ReturnItemModelFromDomain creates a persistence model for a line of returnID
func ReturnItemModelFromDomain(returnID uuid.UUID, it returns.ReturnLineItem) ReturnItemModel {
	return ReturnItemModel{
		ID:           it.ID,
		ReturnID:     returnID,
		SaleItemID:   it.SaleItemID,
		ProductID:    it.ProductID,
		VariationID:  it.VariationID,
		ProductName:  it.ProductName,
		Quantity:     it.Quantity,
		UnitPrice:    it.UnitPrice,
		TotalPrice:   it.TotalPrice,
		Condition:    it.Condition,
		ReturnReason: it.ReturnReason,
		Restock:      it.Restock,
		Notes:        it.Notes,
		CreatedAt:    it.CreatedAt,
	}
}

// ReturnRefundModel is the persistence model for a payout of a completed return
type ReturnRefundModel struct {
	ID            uuid.UUID                  `gorm:"type:uuid;primary_key"`
	ReturnID      uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Amount        decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	Method        returns.RefundType         `gorm:"type:varchar(20);not null"`
	Reference     string                     `gorm:"type:varchar(120);not null;uniqueIndex:idx_sales_return_refunds_reference"`
	TransactionID string                     `gorm:"type:varchar(100)"`
	ProcessedBy   uuid.UUID                  `gorm:"type:uuid;not null"`
	ProcessedAt   time.Time                  `gorm:"not null"`
	Status        returns.ReturnRefundStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (ReturnRefundModel) TableName() string {
	return "sales_return_refunds"
}

// ToDomain converts the persistence model to a domain ReturnRefund
func (m *ReturnRefundModel) ToDomain() returns.ReturnRefund {
	return returns.ReturnRefund{
		ID:            m.ID,
		ReturnID:      m.ReturnID,
		Amount:        m.Amount,
		Method:        m.Method,
		Reference:     m.Reference,
		TransactionID: m.TransactionID,
		ProcessedBy:   m.ProcessedBy,
		ProcessedAt:   m.ProcessedAt,
		Status:        m.Status,
	}
}

// ReturnRefundModelFromDomain creates a persistence model for a refund of
// returnID, generating an ID when the refund has none yet.
func ReturnRefundModelFromDomain(returnID uuid.UUID, rf returns.ReturnRefund) ReturnRefundModel {
	id := rf.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return ReturnRefundModel{
		ID:            id,
		ReturnID:      returnID,
		Amount:        rf.Amount,
		Method:        rf.Method,
		Reference:     rf.Reference,
		TransactionID: rf.TransactionID,
		ProcessedBy:   rf.ProcessedBy,
		ProcessedAt:   rf.ProcessedAt,
		Status:        rf.Status,
	}
}

// PriorLineRow is the projection read when checking eligibility
type PriorLineRow struct {
	ReturnID     uuid.UUID
	SaleItemID   uuid.UUID
	Quantity     int
	ReturnStatus returns.ReturnStatus
}

// ToDomain converts the row to a domain PriorReturnLine
func (p PriorLineRow) ToDomain() returns.PriorReturnLine {
	return returns.PriorReturnLine{
		ReturnID:     p.ReturnID,
		SaleItemID:   p.SaleItemID,
		Quantity:     p.Quantity,
		ReturnStatus: p.ReturnStatus,
	}
}
