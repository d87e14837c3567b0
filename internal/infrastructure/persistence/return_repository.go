package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReturnRepository implements returns.ReturnRepository using GORM
type GormReturnRepository struct {
	db            *gorm.DB
	numberPrefix  string
	createRetries int
}

// ReturnRepositoryOption configures a GormReturnRepository
type ReturnRepositoryOption func(*GormReturnRepository)

// WithNumberPrefix sets the prefix of generated return numbers
func WithNumberPrefix(prefix string) ReturnRepositoryOption {
	return func(r *GormReturnRepository) {
		if prefix != "" {
			r.numberPrefix = prefix
		}
	}
}

// WithCreateRetries sets how often a create is retried after losing a race
// for the next return number.
func WithCreateRetries(n int) ReturnRepositoryOption {
	return func(r *GormReturnRepository) {
		if n >= 0 {
			r.createRetries = n
		}
	}
}

// NewGormReturnRepository creates a new GormReturnRepository
func NewGormReturnRepository(db *gorm.DB, opts ...ReturnRepositoryOption) *GormReturnRepository {
	r := &GormReturnRepository{db: db, numberPrefix: "RT", createRetries: 3}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindByID loads a return with its lines and refunds
func (r *GormReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*returns.Return, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormReturnRepository) findOne(ctx context.Context, query string, arg any) (*returns.Return, error) {
	var m models.ReturnModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB { return db.Order("processed_at ASC, reference ASC") }).
		Where(query, arg).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, returns.ErrReturnNotFound
		}
		return nil, fmt.Errorf("load return: %w", err)
	}
	return m.ToDomain(), nil
}

// FindAll lists returns matching filter, one page at a time. Lines are
// loaded, refunds are not.
func (r *GormReturnRepository) FindAll(ctx context.Context, filter returns.ReturnFilter) ([]returns.Return, error) {
	filter.Normalize()
	orderBy := ValidateSortField(filter.OrderBy, ReturnSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.ReturnModel
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ReturnModel{}), filter).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order(orderBy + " " + orderDir).
		Order("id " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list returns: %w", err)
	}

	out := make([]returns.Return, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Count counts returns matching filter, ignoring paging
func (r *GormReturnRepository) Count(ctx context.Context, filter returns.ReturnFilter) (int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ReturnModel{}), filter).
		Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count returns: %w", err)
	}
	return total, nil
}

func (r *GormReturnRepository) applyFilter(query *gorm.DB, filter returns.ReturnFilter) *gorm.DB {
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(return_number) LIKE ? OR LOWER(notes) LIKE ?)", pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.StoreID != nil {
		query = query.Where("store_id = ?", *filter.StoreID)
	}
	if filter.SaleID != nil {
		query = query.Where("sale_id = ?", *filter.SaleID)
	}
	if filter.From != nil {
		query = query.Where("return_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("return_date < ?", *filter.To)
	}
	return query
}

// FindPriorLinesBySale lists the lines of every return of a sale
func (r *GormReturnRepository) FindPriorLinesBySale(ctx context.Context, saleID uuid.UUID) ([]returns.PriorReturnLine, error) {
	lines, err := priorLines(r.db.WithContext(ctx), saleID)
	if err != nil {
		return nil, fmt.Errorf("load prior returns: %w", err)
	}
	return lines, nil
}

func priorLines(db *gorm.DB, saleID uuid.UUID) ([]returns.PriorReturnLine, error) {
	var rows []models.PriorLineRow
	err := db.Table("sales_return_items AS i").
		Select("i.return_id, i.sale_item_id, i.quantity, r.status AS return_status").
		Joins("JOIN sales_returns AS r ON r.id = i.return_id").
		Where("r.sale_id = ?", saleID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	lines := make([]returns.PriorReturnLine, len(rows))
	for i, row := range rows {
		lines[i] = row.ToDomain()
	}
	return lines, nil
}

// CreateGuarded inserts a new return. Creates for the same sale are
// serialized by a transaction-scoped advisory lock, so guard always sees
// every return committed before it. A lost race for the return number is
// retried with a fresh number.
func (r *GormReturnRepository) CreateGuarded(ctx context.Context, ret *returns.Return, guard returns.EligibilityGuard) error {
	var err error
	for attempt := 0; attempt <= r.createRetries; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if isPostgres(tx) {
				if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", ret.SaleID.String()).Error; err != nil {
					return fmt.Errorf("lock sale: %w", err)
				}
			}

			prior, err := priorLines(tx, ret.SaleID)
			if err != nil {
				return fmt.Errorf("load prior returns: %w", err)
			}
			if guard != nil {
				if err := guard(prior); err != nil {
					return err
				}
			}

			number, err := r.nextReturnNumber(tx, ret.ReturnDate)
			if err != nil {
				return err
			}
			ret.ReturnNumber = ""
			if err := ret.AssignReturnNumber(number); err != nil {
				return err
			}

			m := models.ReturnModelFromDomain(ret)
			if err := tx.Omit(clause.Associations).Create(m).Error; err != nil {
				return err
			}
			if len(m.Items) > 0 {
				if err := tx.Create(&m.Items).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		ret.ReturnNumber = ""
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("allocate return number: %w", err)
		}
		return err
	}
	return nil
}

// nextReturnNumber generates the next number of the year of date.
// Format: RT-YYYY-NNNNN (e.g., RT-2026-00001)
func (r *GormReturnRepository) nextReturnNumber(tx *gorm.DB, date time.Time) (string, error) {
	if date.IsZero() {
		date = time.Now()
	}
	prefix := fmt.Sprintf("%s-%d-", r.numberPrefix, date.Year())

	var last []string
	err := tx.Model(&models.ReturnModel{}).
		Where("return_number LIKE ?", prefix+"%").
		Order("LENGTH(return_number) DESC, return_number DESC").
		Limit(1).
		Pluck("return_number", &last).Error
	if err != nil {
		return "", fmt.Errorf("read last return number: %w", err)
	}

	next := 1
	if len(last) == 1 {
		if n, err := strconv.Atoi(strings.TrimPrefix(last[0], prefix)); err == nil {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%05d", prefix, next), nil
}

// SaveWithLock persists a transition. The stored row is locked (FOR UPDATE
// on PostgreSQL) and its version compared with ret before apply runs, so
// side effects only happen for the actor that wins the race. New refund
// records are inserted; existing ones are left untouched.
func (r *GormReturnRepository) SaveWithLock(ctx context.Context, ret *returns.Return, apply returns.TransitionFunc) error {
	expected := ret.Version
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReturnModel
		q := tx.Select("id", "version")
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ?", ret.ID).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return returns.ErrReturnNotFound
			}
			return fmt.Errorf("lock return: %w", err)
		}
		if current.Version != expected {
			return returns.ErrStaleStatus
		}

		if apply != nil {
			if err := apply(ctx, ret); err != nil {
				return err
			}
		}

		m := models.ReturnModelFromDomain(ret)
		res := tx.Model(&models.ReturnModel{}).
			Where("id = ? AND version = ?", ret.ID, expected).
			Updates(map[string]any{
				"status":           m.Status,
				"refund_status":    m.RefundStatus,
				"approved_by":      m.ApprovedBy,
				"approved_at":      m.ApprovedAt,
				"approval_note":    m.ApprovalNote,
				"rejected_by":      m.RejectedBy,
				"rejected_at":      m.RejectedAt,
				"rejection_reason": m.RejectionReason,
				"processed_by":     m.ProcessedBy,
				"processed_at":     m.ProcessedAt,
				"notes":            m.Notes,
				"version":          expected + 1,
				"updated_at":       time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("update return: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return returns.ErrStaleStatus
		}

		if len(m.Refunds) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m.Refunds).Error; err != nil {
				return fmt.Errorf("insert refunds: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	ret.Version = expected + 1
	return nil
}

// DeletePending removes a pending return and its lines if it is still at
// expectedVersion.
func (r *GormReturnRepository) DeletePending(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReturnModel
		q := tx.Select("id", "version", "status")
		if isPostgres(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := q.Where("id = ?", id).First(&current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return returns.ErrReturnNotFound
			}
			return fmt.Errorf("lock return: %w", err)
		}
		if current.Version != expectedVersion || current.Status != returns.ReturnStatusPending {
			return returns.ErrStaleStatus
		}

		if err := tx.Where("return_id = ?", id).Delete(&models.ReturnItemModel{}).Error; err != nil {
			return fmt.Errorf("delete return items: %w", err)
		}
		if err := tx.Where("id = ?", id).Delete(&models.ReturnModel{}).Error; err != nil {
			return fmt.Errorf("delete return: %w", err)
		}
		return nil
	})
}

type statusSummaryRow struct {
	Status returns.ReturnStatus
	Count  int64
	Amount decimal.Decimal
}

// Summary counts returns per status, optionally for one store
func (r *GormReturnRepository) Summary(ctx context.Context, storeID *uuid.UUID) (*returns.StatusSummary, error) {
	query := r.db.WithContext(ctx).Model(&models.ReturnModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(refund_amount), 0) AS amount").
		Group("status")
	if storeID != nil {
		query = query.Where("store_id = ?", *storeID)
	}

	var rows []statusSummaryRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("summarize returns: %w", err)
	}

	s := &returns.StatusSummary{
		Counts:         make(map[returns.ReturnStatus]int64, len(returns.AllReturnStatuses)),
		RefundedAmount: decimal.Zero,
		PendingAmount:  decimal.Zero,
	}
	for _, row := range rows {
		s.Counts[row.Status] = row.Count
		s.Total += row.Count
		switch row.Status {
		case returns.ReturnStatusCompleted:
			s.RefundedAmount = s.RefundedAmount.Add(row.Amount)
		case returns.ReturnStatusPending, returns.ReturnStatusApproved:
			s.PendingAmount = s.PendingAmount.Add(row.Amount)
		}
	}
	return s, nil
}

var _ returns.ReturnRepository = (*GormReturnRepository)(nil)
