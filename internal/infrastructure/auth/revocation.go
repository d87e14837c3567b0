package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList answers whether a token was revoked before it expired.
// Revocations are written by the POS login service on logout and on forced
// sign-out of a user.
type RevocationList interface {
	IsRevoked(ctx context.Context, claims *Claims) (bool, error)
}

// DefaultRevocationPrefix is the key prefix shared with the login service
const DefaultRevocationPrefix = "token:blacklist:"

// RedisRevocationList reads revocations from Redis. A token is revoked when
// its JTI key exists, or when its user has an invalidation timestamp at or
// after the token's issue time.
type RedisRevocationList struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRevocationList creates a revocation list on a shared client
func NewRedisRevocationList(client redis.UniversalClient, keyPrefix string) *RedisRevocationList {
	if keyPrefix == "" {
		keyPrefix = DefaultRevocationPrefix
	}
	return &RedisRevocationList{client: client, keyPrefix: keyPrefix}
}

func (l *RedisRevocationList) jtiKey(jti string) string {
	return l.keyPrefix + "jti:" + jti
}

func (l *RedisRevocationList) userKey(userID string) string {
	return l.keyPrefix + "user:" + userID
}

// IsRevoked checks both the token and its user
func (l *RedisRevocationList) IsRevoked(ctx context.Context, claims *Claims) (bool, error) {
	if claims.ID != "" {
		n, err := l.client.Exists(ctx, l.jtiKey(claims.ID)).Result()
		if err != nil {
			return false, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}

	raw, err := l.client.Get(ctx, l.userKey(claims.UserID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp %q: %w", raw, err)
	}
	return claims.IssuedAtTime().Unix() <= invalidatedAt, nil
}

// Revoke revokes a single token until ttl elapses
func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// RevokeUser revokes every token of userID issued up to now
func (l *RedisRevocationList) RevokeUser(ctx context.Context, userID string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.userKey(userID), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

var _ RevocationList = (*RedisRevocationList)(nil)
