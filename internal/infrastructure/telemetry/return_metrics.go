package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	returnsapp "github.com/retailpos/backoffice/internal/application/returns"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the returns business metrics
const MeterName = "github.com/retailpos/backoffice/returns"

var _ returnsapp.ReturnMetrics = (*ReturnMetrics)(nil)

// ReturnMetrics records business metrics of returns and refunds.
// Amounts are recorded in major currency units.
type ReturnMetrics struct {
	returnsCreated    metric.Int64Counter
	returnedAmount    metric.Float64Counter
	statusChanges     metric.Int64Counter
	refundsIssued     metric.Int64Counter
	refundedAmount    metric.Float64Counter
	integrityWarnings metric.Int64Counter
}

// NewReturnMetrics creates the instruments on meter
func NewReturnMetrics(meter metric.Meter) (*ReturnMetrics, error) {
	m := &ReturnMetrics{}
	var err, e error

	m.returnsCreated, e = meter.Int64Counter("returns_created_total",
		metric.WithDescription("Returns recorded"),
		metric.WithUnit("{return}"))
	err = errors.Join(err, e)

	m.returnedAmount, e = meter.Float64Counter("returns_amount_total",
		metric.WithDescription("Refund amount of recorded returns, tax included"),
		metric.WithUnit("{currency}"))
	err = errors.Join(err, e)

	m.statusChanges, e = meter.Int64Counter("return_status_changes_total",
		metric.WithDescription("Return status transitions"),
		metric.WithUnit("{transition}"))
	err = errors.Join(err, e)

	m.refundsIssued, e = meter.Int64Counter("refunds_issued_total",
		metric.WithDescription("Refund payouts issued"),
		metric.WithUnit("{refund}"))
	err = errors.Join(err, e)

	m.refundedAmount, e = meter.Float64Counter("refunds_amount_total",
		metric.WithDescription("Amount paid out by refunds"),
		metric.WithUnit("{currency}"))
	err = errors.Join(err, e)

	m.integrityWarnings, e = meter.Int64Counter("sale_integrity_warnings_total",
		metric.WithDescription("Sale lines with inconsistent prices seen while computing eligibility"),
		metric.WithUnit("{warning}"))
	err = errors.Join(err, e)

	if err != nil {
		return nil, &MetricsError{Op: "create return metrics", Err: err}
	}
	return m, nil
}

// RecordReturnCreated counts a new return and its refund amount
func (m *ReturnMetrics) RecordReturnCreated(ctx context.Context, storeID uuid.UUID, refundType string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(
		attribute.String("store_id", storeID.String()),
		attribute.String("refund_type", refundType),
	)
	m.returnsCreated.Add(ctx, 1, attrs)
	m.returnedAmount.Add(ctx, amount.InexactFloat64(), attrs)
}

// RecordStatusChange counts a transition into status
func (m *ReturnMetrics) RecordStatusChange(ctx context.Context, storeID uuid.UUID, status string) {
	m.statusChanges.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store_id", storeID.String()),
		attribute.String("status", status),
	))
}

// RecordRefundIssued counts one payout
func (m *ReturnMetrics) RecordRefundIssued(ctx context.Context, storeID uuid.UUID, method string, amount decimal.Decimal) {
	attrs := metric.WithAttributes(
		attribute.String("store_id", storeID.String()),
		attribute.String("method", method),
	)
	m.refundsIssued.Add(ctx, 1, attrs)
	m.refundedAmount.Add(ctx, amount.InexactFloat64(), attrs)
}

// RecordIntegrityWarnings counts price inconsistencies of a sale
func (m *ReturnMetrics) RecordIntegrityWarnings(ctx context.Context, storeID uuid.UUID, count int) {
	if count <= 0 {
		return
	}
	m.integrityWarnings.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("store_id", storeID.String()),
	))
}

// MetricsError wraps a failure to set up instruments
type MetricsError struct {
	Op  string
	Err error
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *MetricsError) Unwrap() error {
	return e.Err
}
