package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"rirblocks/internal/model"
)

// RedisStore is a distributed Store variant for multi-instance
// deployments. Keys carry no server-side expiry: stale entries must stay
// readable so the service can fall back to them when a refresh fails.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// redisEntry wraps the index with its write time, since redis has no
// mtime to act as the freshness clock.
type redisEntry struct {
	WrittenAt time.Time             `json:"written_at"`
	Index     model.AllocationIndex `json:"index"`
}

func NewRedisStore(client *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		logger: logger,
	}
}

func redisKey(registry string) string {
	return "rirblocks:delegated:" + registry
}

func (s *RedisStore) Load(ctx context.Context, registry string) (model.AllocationIndex, time.Duration, error) {
	data, err := s.client.Get(ctx, redisKey(registry)).Bytes()
	if err == redis.Nil {
		return nil, 0, fmt.Errorf("%w: %s", model.ErrCacheMiss, registry)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("reading cache entry: %w", err)
	}

	var entry redisEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Error("failed to decode cache entry",
			zap.String("registry", registry),
			zap.Error(err))
		return nil, 0, fmt.Errorf("%w: %s: %v", model.ErrCacheCorrupt, registry, err)
	}

	return entry.Index.EnsureFamilies(), time.Since(entry.WrittenAt), nil
}

func (s *RedisStore) Save(ctx context.Context, registry string, index model.AllocationIndex) error {
	data, err := json.Marshal(redisEntry{
		WrittenAt: time.Now(),
		Index:     index,
	})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := s.client.Set(ctx, redisKey(registry), data, 0).Err(); err != nil {
		s.logger.Error("failed to save cache entry",
			zap.String("registry", registry),
			zap.Error(err))
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}
