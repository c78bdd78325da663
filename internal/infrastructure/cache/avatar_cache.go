// Package cache provides a Redis read-through cache for rendered avatars.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskhive/taskhive/internal/domain/uuid"
)

// ErrCacheMiss indicates the avatar is not cached.
var ErrCacheMiss = errors.New("avatar not cached")

const defaultKeyPrefix = "avatar:png:"

// AvatarCache caches normalized avatar PNGs so repeated fetches skip the
// user document load. The users collection remains the source of truth;
// entries expire on TTL and are invalidated on every upload or delete.
type AvatarCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// AvatarCacheConfig contains configuration for AvatarCache.
type AvatarCacheConfig struct {
	Client    *redis.Client
	KeyPrefix string
	TTL       time.Duration
}

// NewAvatarCache creates a Redis-based avatar cache.
func NewAvatarCache(cfg AvatarCacheConfig) *AvatarCache {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}

	return &AvatarCache{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
		ttl:       cfg.TTL,
	}
}

func (c *AvatarCache) avatarKey(userID uuid.UUID) string {
	return c.keyPrefix + userID.String()
}

// Get returns the cached avatar bytes. Returns ErrCacheMiss when absent.
func (c *AvatarCache) Get(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	if userID.IsZero() {
		return nil, errors.New("userID is required")
	}

	data, err := c.client.Get(ctx, c.avatarKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cached avatar: %w", err)
	}

	return data, nil
}

// Set stores the avatar bytes with the configured TTL.
func (c *AvatarCache) Set(ctx context.Context, userID uuid.UUID, data []byte) error {
	if userID.IsZero() {
		return errors.New("userID is required")
	}
	if len(data) == 0 {
		return errors.New("avatar data is required")
	}

	if err := c.client.Set(ctx, c.avatarKey(userID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache avatar: %w", err)
	}

	return nil
}

// Invalidate drops the cached avatar after an upload or delete.
func (c *AvatarCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if userID.IsZero() {
		return errors.New("userID is required")
	}

	if err := c.client.Del(ctx, c.avatarKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached avatar: %w", err)
	}

	return nil
}
