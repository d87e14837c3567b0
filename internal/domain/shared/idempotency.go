package shared

import (
	"context"
	"time"
)

// IdempotencyStore records keys (event IDs, restock references) whose side
// effect already ran. MarkProcessed is the claim: it reports true only for
// the first caller.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release drops a claim so a failed side effect can run again
	Release(ctx context.Context, key string) error
	Close() error
}

// DefaultIdempotencyTTL bounds how long a claim is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyConfig switches event handler deduplication on and sets how
// long claims live.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultIdempotencyConfig enables deduplication with DefaultIdempotencyTTL
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: DefaultIdempotencyTTL}
}
