package printing

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/google/uuid"
	returnsapp "github.com/retailpos/backoffice/internal/application/returns"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

// ContentTypeHTML is the content type of rendered receipts
const ContentTypeHTML = "text/html; charset=utf-8"

const receiptTemplatePath = "templates/return_receipt.html"

var _ returnsapp.ReceiptRenderer = (*ReceiptRenderer)(nil)

// ReceiptRenderer renders the customer receipt of a completed return
type ReceiptRenderer struct {
	engine *TemplateEngine
	tmpl   *template.Template
}

// NewReceiptRenderer parses the embedded receipt template
func NewReceiptRenderer(engine *TemplateEngine) (*ReceiptRenderer, error) {
	content, err := templateFS.ReadFile(receiptTemplatePath)
	if err != nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "receipt template missing", err)
	}
	tmpl, err := engine.Parse("return_receipt", string(content))
	if err != nil {
		return nil, err
	}
	return &ReceiptRenderer{engine: engine, tmpl: tmpl}, nil
}

type receiptLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	Condition   string
	Reason      string
	Restock     bool
}

type receiptRefund struct {
	Method        string
	Amount        decimal.Decimal
	TransactionID string
}

type receiptView struct {
	Lang        string
	Number      string
	SaleID      uuid.UUID
	StoreID     uuid.UUID
	CompletedAt time.Time
	Lines       []receiptLine
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	Refunds     []receiptRefund
	Notes       string
}

// RenderReceipt renders r as HTML. Only completed returns have receipts.
func (rr *ReceiptRenderer) RenderReceipt(_ context.Context, r *returns.Return) ([]byte, string, error) {
	if r == nil {
		return nil, "", NewRenderError(ErrCodeRenderFailed, "return is nil", nil)
	}
	if !r.IsCompleted() {
		return nil, "", NewRenderError(ErrCodeRenderFailed, "return "+r.ReturnNumber+" is not completed", nil)
	}

	view := receiptView{
		Lang:     rr.engine.Locale().String(),
		Number:   r.ReturnNumber,
		SaleID:   r.SaleID,
		StoreID:  r.StoreID,
		Subtotal: r.TotalAmount,
		TaxRate:  r.TaxRate,
		Tax:      r.TaxAmount,
		Total:    r.RefundAmount,
		Notes:    r.Notes,
	}
	if r.ProcessedAt != nil {
		view.CompletedAt = *r.ProcessedAt
	}
	for _, item := range r.Items {
		view.Lines = append(view.Lines, receiptLine{
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.TotalPrice,
			Condition:   string(item.Condition),
			Reason:      item.ReturnReason,
			Restock:     item.Restock,
		})
	}
	for _, refund := range r.Refunds {
		view.Refunds = append(view.Refunds, receiptRefund{
			Method:        string(refund.Method),
			Amount:        refund.Amount,
			TransactionID: refund.TransactionID,
		})
	}

	body, err := rr.engine.Execute(rr.tmpl, view)
	if err != nil {
		return nil, "", err
	}
	return body, ContentTypeHTML, nil
}
