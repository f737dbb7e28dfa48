package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apportal/apportal/internal/model"
)

const (
	// bearerCachePrefix is the Redis key prefix for validated bearer
	// credentials.
	bearerCachePrefix = "auth:bearer:"
	// bearerCacheTTL caps how long a validated credential may be served
	// from cache without re-reading the store.
	bearerCacheTTL = 5 * time.Minute
)

// cachedBearer is the auth context as stored in Redis.
type cachedBearer struct {
	CredentialID string `json:"credential_id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsActivated  bool   `json:"is_activated"`
}

// GetBearer retrieves a cached auth context by cache key.
// Returns nil on a miss; a corrupted entry also counts as a miss.
func (c *Cache) GetBearer(ctx context.Context, cacheKey string) (*model.AuthContext, error) {
	data, err := c.client.Get(ctx, bearerCachePrefix+cacheKey).Bytes()
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var cached cachedBearer
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		CredentialID: cached.CredentialID,
		UserID:       cached.UserID,
		Email:        cached.Email,
		Name:         cached.Name,
		Role:         cached.Role,
		IsActivated:  cached.IsActivated,
	}, nil
}

// SetBearer caches a validated auth context. The entry never outlives the
// credential: the TTL is clamped to the time remaining until expireAt.
func (c *Cache) SetBearer(ctx context.Context, cacheKey string, authCtx *model.AuthContext, expireAt time.Time) error {
	ttl := bearerTTL(expireAt, time.Now())
	if ttl <= 0 {
		return nil
	}

	cached := cachedBearer{
		CredentialID: authCtx.CredentialID,
		UserID:       authCtx.UserID,
		Email:        authCtx.Email,
		Name:         authCtx.Name,
		Role:         authCtx.Role,
		IsActivated:  authCtx.IsActivated,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal auth context: %w", err)
	}

	return c.client.Set(ctx, bearerCachePrefix+cacheKey, data, ttl).Err()
}

// DeleteBearer removes a cached auth context.
func (c *Cache) DeleteBearer(ctx context.Context, cacheKey string) error {
	return c.client.Del(ctx, bearerCachePrefix+cacheKey).Err()
}

// bearerTTL computes the cache TTL for a credential expiring at expireAt.
func bearerTTL(expireAt, now time.Time) time.Duration {
	remaining := expireAt.Sub(now)
	if remaining < bearerCacheTTL {
		return remaining
	}
	return bearerCacheTTL
}
