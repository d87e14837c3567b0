// Package salesdb reads sales from the point-of-sale database.
// The returns service never writes to it.
package salesdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"github.com/retailpos/backoffice/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultQueryTimeout bounds a snapshot read when none is configured
const DefaultQueryTimeout = 5 * time.Second

const saleQuery = `
	SELECT id, store_id, invoice_number, status, tax_rate::text, sale_date
	FROM sales
	WHERE id = $1`

const saleItemsQuery = `
	SELECT id, product_id, variation_id, product_name, quantity, unit_price::text, line_total::text
	FROM sale_items
	WHERE sale_id = $1
	ORDER BY id`

// Querier is the subset of pgxpool.Pool used by the provider
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SnapshotProvider implements returns.SaleSnapshotProvider over pgx
type SnapshotProvider struct {
	db      Querier
	timeout time.Duration
}

// NewSnapshotProvider creates a provider. A timeout of zero uses DefaultQueryTimeout.
func NewSnapshotProvider(db Querier, timeout time.Duration) *SnapshotProvider {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &SnapshotProvider{db: db, timeout: timeout}
}

// NewPool opens a connection pool to the sales database
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.SalesURL())
	if err != nil {
		return nil, fmt.Errorf("parse sales database url: %w", err)
	}
	if cfg.SalesDatabase.MaxConns > 0 {
		poolCfg.MaxConns = cfg.SalesDatabase.MaxConns
	}
	// Snapshot reads never need a write transaction
	poolCfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open sales database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping sales database: %w", err)
	}
	return pool, nil
}

// GetSaleSnapshot reads a sale and its lines. Unknown sales yield
// returns.ErrSaleNotFound.
func (p *SnapshotProvider) GetSaleSnapshot(ctx context.Context, saleID uuid.UUID) (sale *returns.SaleSnapshot, err error) {
	ctx, span := telemetry.StartSpan(ctx, "salesdb.GetSaleSnapshot", attribute.String("sale.id", saleID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	sale, err = scanSale(p.db.QueryRow(ctx, saleQuery, saleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, returns.ErrSaleNotFound
		}
		return nil, fmt.Errorf("read sale %s: %w", saleID, describe(err))
	}

	rows, err := p.db.Query(ctx, saleItemsQuery, saleID)
	if err != nil {
		return nil, fmt.Errorf("read sale items %s: %w", saleID, describe(err))
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (returns.SaleLineItem, error) {
		return scanLine(row)
	})
	if err != nil {
		return nil, fmt.Errorf("read sale items %s: %w", saleID, describe(err))
	}
	sale.Lines = lines
	span.SetAttributes(attribute.Int("sale.lines", len(lines)))
	return sale, nil
}

func scanSale(row pgx.Row) (*returns.SaleSnapshot, error) {
	var (
		s       returns.SaleSnapshot
		status  string
		taxRate string
	)
	if err := row.Scan(&s.SaleID, &s.StoreID, &s.InvoiceNumber, &status, &taxRate, &s.SaleDate); err != nil {
		return nil, err
	}
	rate, err := decimal.NewFromString(taxRate)
	if err != nil {
		return nil, fmt.Errorf("tax rate %q: %w", taxRate, err)
	}
	s.Status = returns.SaleStatus(status)
	s.TaxRate = rate
	return &s, nil
}

func scanLine(row pgx.Row) (returns.SaleLineItem, error) {
	var (
		l                    returns.SaleLineItem
		unitPrice, lineTotal string
	)
	if err := row.Scan(&l.SaleItemID, &l.ProductID, &l.VariationID, &l.ProductName, &l.OrderedQuantity, &unitPrice, &lineTotal); err != nil {
		return l, err
	}
	var err error
	if l.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return l, fmt.Errorf("unit price %q: %w", unitPrice, err)
	}
	if l.LineTotal, err = decimal.NewFromString(lineTotal); err != nil {
		return l, fmt.Errorf("line total %q: %w", lineTotal, err)
	}
	return l, nil
}

// describe adds the PostgreSQL error code to server-side errors
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w (sqlstate %s)", err, pgErr.Code)
	}
	return err
}

var _ returns.SaleSnapshotProvider = (*SnapshotProvider)(nil)
