// Package redis 提供场景运行读模型的 Redis 缓存实现
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"github.com/wyfcoding/scenariosim/pkg/cache"
)

// DefaultTTL 默认缓存有效期
const DefaultTTL = 10 * time.Minute

// ScenarioRunRedisRepository 场景运行读缓存
type ScenarioRunRedisRepository struct {
	cache  *cache.RedisCache
	prefix string
	ttl    time.Duration
}

// NewScenarioRunRedisRepository ttl <= 0 时使用 DefaultTTL
func NewScenarioRunRedisRepository(rc *cache.RedisCache, ttl time.Duration) *ScenarioRunRedisRepository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ScenarioRunRedisRepository{
		cache:  rc,
		prefix: "scenario:run:",
		ttl:    ttl,
	}
}

func (r *ScenarioRunRedisRepository) Save(ctx context.Context, run *domain.ScenarioRun) error {
	if run == nil {
		return nil
	}
	if err := r.cache.SetJSON(ctx, r.key(run.RunID), run, r.ttl); err != nil {
		return fmt.Errorf("failed to cache scenario run: %w", err)
	}
	return nil
}

func (r *ScenarioRunRedisRepository) Get(ctx context.Context, runID string) (*domain.ScenarioRun, error) {
	if runID == "" {
		return nil, nil
	}
	var run domain.ScenarioRun
	found, err := r.cache.GetJSON(ctx, r.key(runID), &run)
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario run from redis: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &run, nil
}

func (r *ScenarioRunRedisRepository) key(runID string) string {
	return r.prefix + runID
}
