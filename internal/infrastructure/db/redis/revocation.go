package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationCache remembers revoked access-token jtis until the tokens
// would have expired anyway.
// Key format: revoked:jti:<jti>
type RevocationCache struct {
	client *redis.Client
}

// NewRevocationCache creates a RevocationCache wrapping the given Redis client.
func NewRevocationCache(client *redis.Client) *RevocationCache {
	return &RevocationCache{client: client}
}

// MarkRevoked records jti as revoked for ttl.
func (c *RevocationCache) MarkRevoked(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("mark revoked: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti was marked revoked and has not aged out.
func (c *RevocationCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (c *RevocationCache) key(jti string) string {
	return "revoked:jti:" + jti
}
