// Package integration runs the returns service against real PostgreSQL
// databases started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/infrastructure/migration"
	"github.com/retailpos/backoffice/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// salesSchema mirrors the tables of the point-of-sale database that the
// snapshot provider reads
const salesSchema = `
CREATE TABLE IF NOT EXISTS sales (
    id             UUID PRIMARY KEY,
    store_id       UUID          NOT NULL,
    invoice_number VARCHAR(50)   NOT NULL,
    status         VARCHAR(20)   NOT NULL,
    tax_rate       DECIMAL(9, 6) NOT NULL,
    sale_date      TIMESTAMPTZ   NOT NULL
);
CREATE TABLE IF NOT EXISTS sale_items (
    id           UUID PRIMARY KEY,
    sale_id      UUID           NOT NULL REFERENCES sales (id),
    product_id   UUID           NOT NULL,
    variation_id UUID,
    product_name VARCHAR(200)   NOT NULL,
    quantity     INTEGER        NOT NULL,
    unit_price   DECIMAL(18, 2) NOT NULL,
    line_total   DECIMAL(18, 2) NOT NULL
);`

// TestDB is a migrated returns database plus a sales database in the same
// container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Sales     *pgxpool.Pool
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a fresh PostgreSQL container, applies the embedded
// migrations and creates the sales tables. Everything is torn down when the
// test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("returns_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	m, err := migration.NewFromURL(dsn, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
	require.NoError(t, m.Close())

	db, sqlDB := connectToDatabase(t, dsn)
	require.NoError(t, db.Exec(salesSchema).Error, "Failed to create sales tables")

	sales, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "Failed to open sales pool")

	tdb := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Sales:     sales,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close releases connections and terminates the container
func (tdb *TestDB) Close() {
	if tdb.Sales != nil {
		tdb.Sales.Close()
	}
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := tdb.Container.Terminate(ctx); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// SaleFixture describes one line of a sale to insert
type SaleFixture struct {
	Quantity  int
	UnitPrice string
}

// InsertSale writes a completed sale with the given lines and returns its
// snapshot as the provider should read it back
func (tdb *TestDB) InsertSale(storeID uuid.UUID, taxRate string, lines ...SaleFixture) *returns.SaleSnapshot {
	tdb.t.Helper()

	sale := &returns.SaleSnapshot{
		SaleID:        uuid.New(),
		StoreID:       storeID,
		InvoiceNumber: fmt.Sprintf("INV-%s", uuid.NewString()[:8]),
		Status:        returns.SaleStatusCompleted,
		TaxRate:       decimal.RequireFromString(taxRate),
		SaleDate:      time.Now().UTC().Truncate(time.Second),
	}
	err := tdb.DB.Exec(`INSERT INTO sales (id, store_id, invoice_number, status, tax_rate, sale_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.SaleID, sale.StoreID, sale.InvoiceNumber, string(sale.Status), taxRate, sale.SaleDate).Error
	require.NoError(tdb.t, err, "Failed to insert sale")

	for i, l := range lines {
		price := decimal.RequireFromString(l.UnitPrice)
		line := returns.SaleLineItem{
			SaleItemID:      uuid.New(),
			ProductID:       uuid.New(),
			ProductName:     fmt.Sprintf("Product %d", i+1),
			OrderedQuantity: l.Quantity,
			UnitPrice:       price,
			LineTotal:       price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		}
		err := tdb.DB.Exec(`INSERT INTO sale_items (id, sale_id, product_id, product_name, quantity, unit_price, line_total)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			line.SaleItemID, sale.SaleID, line.ProductID, line.ProductName, line.OrderedQuantity,
			price.StringFixed(2), line.LineTotal.StringFixed(2)).Error
		require.NoError(tdb.t, err, "Failed to insert sale item")
		sale.Lines = append(sale.Lines, line)
	}
	return sale
}

// SetSaleStatus changes the status of a stored sale
func (tdb *TestDB) SetSaleStatus(saleID uuid.UUID, status returns.SaleStatus) {
	tdb.t.Helper()
	err := tdb.DB.Exec(`UPDATE sales SET status = ? WHERE id = ?`, string(status), saleID).Error
	require.NoError(tdb.t, err)
}

// connectToDatabase opens a GORM connection with a small pool
func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}
