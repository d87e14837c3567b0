package returns

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailpos/backoffice/internal/domain/returns"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockReturnRepository is a mock implementation of ReturnRepository
type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) FindByID(ctx context.Context, id uuid.UUID) (*returns.Return, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.Return), args.Error(1)
}

func (m *MockReturnRepository) FindAll(ctx context.Context, filter returns.ReturnFilter) ([]returns.Return, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.Return), args.Error(1)
}

func (m *MockReturnRepository) Count(ctx context.Context, filter returns.ReturnFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReturnRepository) FindPriorLinesBySale(ctx context.Context, saleID uuid.UUID) ([]returns.PriorReturnLine, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.PriorReturnLine), args.Error(1)
}

// CreateGuarded runs guard against the prior lines given as the second
// return value, the way the store does inside its transaction.
func (m *MockReturnRepository) CreateGuarded(ctx context.Context, r *returns.Return, guard returns.EligibilityGuard) error {
	args := m.Called(ctx, r, guard)
	if fresh, ok := args.Get(1).([]returns.PriorReturnLine); ok {
		if err := guard(fresh); err != nil {
			return err
		}
	}
	if err := args.Error(0); err != nil {
		return err
	}
	return r.AssignReturnNumber("RT-2026-00001")
}

// SaveWithLock fails before apply when an error is configured, the way a
// stale version is detected before any side effect runs.
func (m *MockReturnRepository) SaveWithLock(ctx context.Context, r *returns.Return, apply returns.TransitionFunc) error {
	args := m.Called(ctx, r, apply)
	if err := args.Error(0); err != nil {
		return err
	}
	if apply != nil {
		if err := apply(ctx, r); err != nil {
			return err
		}
	}
	r.IncrementVersion()
	return nil
}

func (m *MockReturnRepository) DeletePending(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	args := m.Called(ctx, id, expectedVersion)
	return args.Error(0)
}

func (m *MockReturnRepository) Summary(ctx context.Context, storeID *uuid.UUID) (*returns.StatusSummary, error) {
	args := m.Called(ctx, storeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.StatusSummary), args.Error(1)
}

// MockSaleSnapshotProvider is a mock implementation of SaleSnapshotProvider
type MockSaleSnapshotProvider struct {
	mock.Mock
}

func (m *MockSaleSnapshotProvider) GetSaleSnapshot(ctx context.Context, saleID uuid.UUID) (*returns.SaleSnapshot, error) {
	args := m.Called(ctx, saleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.SaleSnapshot), args.Error(1)
}

// MockInventoryRestocker is a mock implementation of InventoryRestocker
type MockInventoryRestocker struct {
	mock.Mock
}

func (m *MockInventoryRestocker) RestockInventory(ctx context.Context, reqs ...returns.RestockRequest) error {
	args := m.Called(ctx, reqs)
	return args.Error(0)
}

// MockRefundIssuer is a mock implementation of RefundIssuer
type MockRefundIssuer struct {
	mock.Mock
}

func (m *MockRefundIssuer) IssueRefund(ctx context.Context, instr returns.RefundInstruction) (*returns.IssuedRefund, error) {
	args := m.Called(ctx, instr)
	if fn, ok := args.Get(0).(func(context.Context, returns.RefundInstruction) *returns.IssuedRefund); ok {
		return fn(ctx, instr), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.IssuedRefund), args.Error(1)
}

func (m *MockRefundIssuer) ListByReturn(ctx context.Context, returnID uuid.UUID) ([]returns.IssuedRefund, error) {
	args := m.Called(ctx, returnID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.IssuedRefund), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockReturnMetrics is a mock implementation of ReturnMetrics
type MockReturnMetrics struct {
	mock.Mock
}

func (m *MockReturnMetrics) RecordReturnCreated(ctx context.Context, storeID uuid.UUID, refundType string, amount decimal.Decimal) {
	m.Called(ctx, storeID, refundType, amount)
}

func (m *MockReturnMetrics) RecordStatusChange(ctx context.Context, storeID uuid.UUID, status string) {
	m.Called(ctx, storeID, status)
}

func (m *MockReturnMetrics) RecordRefundIssued(ctx context.Context, storeID uuid.UUID, method string, amount decimal.Decimal) {
	m.Called(ctx, storeID, method, amount)
}

func (m *MockReturnMetrics) RecordIntegrityWarnings(ctx context.Context, storeID uuid.UUID, count int) {
	m.Called(ctx, storeID, count)
}
