package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gradeflow-api/internal/dto"
)

// QueueCache caches the manual grading queue per assignment. A cache failure
// is never fatal: callers fall through to the database.
type QueueCache interface {
	Get(ctx context.Context, assignmentID uint) ([]dto.GradingQueueItem, bool)
	Set(ctx context.Context, assignmentID uint, items []dto.GradingQueueItem)
	Invalidate(ctx context.Context, assignmentID uint)
}

type redisQueueCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisQueueCache constructs a Redis-backed grading queue cache.
func NewRedisQueueCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) QueueCache {
	return &redisQueueCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "grading_queue_cache").Logger(),
	}
}

func queueCacheKey(assignmentID uint) string {
	return fmt.Sprintf("gradeflow:grading_queue:%d", assignmentID)
}

func (c *redisQueueCache) Get(ctx context.Context, assignmentID uint) ([]dto.GradingQueueItem, bool) {
	raw, err := c.client.Get(ctx, queueCacheKey(assignmentID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("queue cache read failed")
		}
		return nil, false
	}

	var items []dto.GradingQueueItem
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("queue cache entry corrupted")
		return nil, false
	}

	return items, true
}

func (c *redisQueueCache) Set(ctx context.Context, assignmentID uint, items []dto.GradingQueueItem) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, queueCacheKey(assignmentID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("queue cache write failed")
	}
}

func (c *redisQueueCache) Invalidate(ctx context.Context, assignmentID uint) {
	if err := c.client.Del(ctx, queueCacheKey(assignmentID)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("queue cache invalidation failed")
	}
}

type noopQueueCache struct{}

func (noopQueueCache) Get(context.Context, uint) ([]dto.GradingQueueItem, bool) { return nil, false }
func (noopQueueCache) Set(context.Context, uint, []dto.GradingQueueItem)        {}
func (noopQueueCache) Invalidate(context.Context, uint)                         {}

// NewNoopQueueCache returns a cache that never hits. Used when Redis is not
// configured and in tests.
func NewNoopQueueCache() QueueCache { return noopQueueCache{} }
