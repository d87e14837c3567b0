package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database is the GORM handle on the returns database
type Database struct {
	DB *gorm.DB
}

// OpenDatabase connects to cfg, sizes the pool and pings once. A nil
// gormLogger silences GORM.
func OpenDatabase(cfg *config.DatabaseConfig, gormLogger logger.Interface) (*Database, error) {
	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		// unique violations become gorm.ErrDuplicatedKey, which the
		// return number retry loop depends on
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open returns database: %w", err)
	}

	d := &Database{DB: db}
	pool, err := d.pool()
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := pool.Ping(); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping returns database: %w", err)
	}
	return d, nil
}

func (d *Database) pool() (*sql.DB, error) {
	pool, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("returns database pool: %w", err)
	}
	return pool, nil
}

// Ping is used by the health check
func (d *Database) Ping(ctx context.Context) error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (d *Database) Close() error {
	pool, err := d.pool()
	if err != nil {
		return err
	}
	return pool.Close()
}

// isPostgres reports whether db talks to PostgreSQL. Row locks and advisory
// locks are only issued there; SQLite serializes writers on its own.
func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}
