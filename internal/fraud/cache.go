package fraud

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/gigmarket/pkg/logger"
	redisutil "github.com/richxcame/gigmarket/pkg/redis"
	"go.uber.org/zap"
)

const statusKeyPrefix = "fraud:status:"

// RedisStatusCache stores status answers as JSON with a TTL
type RedisStatusCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStatusCache creates a status cache
func NewRedisStatusCache(client redis.Cmdable, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{client: client, ttl: ttl}
}

func statusKey(userID uuid.UUID) string {
	return statusKeyPrefix + userID.String()
}

// Get returns the cached status. Any redis failure is a miss.
func (c *RedisStatusCache) Get(ctx context.Context, userID uuid.UUID) (*StatusResult, bool) {
	raw, err := c.client.Get(ctx, statusKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("fraud status cache read failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
		return nil, false
	}

	var res StatusResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// Set stores a status answer
func (c *RedisStatusCache) Set(ctx context.Context, result *StatusResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, statusKey(result.UserID), raw, c.ttl).Err(); err != nil {
		logger.WithContext(ctx).Warn("fraud status cache write failed", zap.String("user_id", result.UserID.String()), zap.Error(err))
	}
}

// Invalidate drops the cached status of a user. Connection failures are
// retried since a stale entry would keep reporting the old status.
func (c *RedisStatusCache) Invalidate(ctx context.Context, userID uuid.UUID) {
	err := redisutil.WithRetry(ctx, func(ctx context.Context) error {
		return c.client.Del(ctx, statusKey(userID)).Err()
	})
	if err != nil {
		logger.WithContext(ctx).Warn("fraud status cache invalidation failed", zap.String("user_id", userID.String()), zap.Error(err))
	}
}

type noopStatusCache struct{}

func (noopStatusCache) Get(context.Context, uuid.UUID) (*StatusResult, bool) { return nil, false }
func (noopStatusCache) Set(context.Context, *StatusResult)                  {}
func (noopStatusCache) Invalidate(context.Context, uuid.UUID)               {}
