package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/retailpos/backoffice/internal/domain/shared"
	"github.com/retailpos/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Idempotency backends accepted in configuration
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	cfg                   config.EventConfig
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether a missing Redis client falls back
// to the in-memory store. Default is false: production runs several
// instances that must share restock references.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory. client may be nil when
// Redis is not configured.
func NewIdempotencyStoreFactory(cfg config.EventConfig, client redis.UniversalClient, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		cfg:    cfg,
		client: client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore creates the store selected by the configured backend
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	switch f.cfg.IdempotencyBackend {
	case BackendMemory:
		f.logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	case BackendRedis, "":
		if f.client != nil {
			f.logger.Info("using Redis idempotency store")
			return NewRedisIdempotencyStore(f.client, ""), nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis idempotency backend selected but no Redis client is available")
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. " +
			"Restock references are not shared between instances.")
		return NewInMemoryIdempotencyStore(0), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", f.cfg.IdempotencyBackend)
	}
}
