package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/scenariosim/internal/scenario/domain"
	"github.com/wyfcoding/scenariosim/pkg/cache"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*ScenarioRunRedisRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewScenarioRunRedisRepository(cache.NewWithClient(client), ttl), mr
}

func TestScenarioRunRedisRepository_SaveAndGet(t *testing.T) {
	repo, mr := newTestRepo(t, 0)
	ctx := context.Background()

	run := &domain.ScenarioRun{
		RunID:   "run-1",
		TopicID: "fusion",
		Status:  domain.ScenarioRunStatusCompleted,
		Mu:      0.05,
		Result: domain.SimulationResult{
			ImpactBands: [3]float64{-0.01, 0.0161, 0.05},
			MeanImpact:  0.0284,
			Seed:        42,
		},
		Assumptions: []string{"a", "b"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, repo.Save(ctx, run))
	assert.True(t, mr.Exists("scenario:run:run-1"))
	assert.Equal(t, DefaultTTL, mr.TTL("scenario:run:run-1"))

	got, err := repo.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)
}

func TestScenarioRunRedisRepository_Expiry(t *testing.T) {
	repo, mr := newTestRepo(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &domain.ScenarioRun{RunID: "run-1"}))
	mr.FastForward(2 * time.Minute)

	got, err := repo.Get(ctx, "run-1")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestScenarioRunRedisRepository_MissingAndCorrupt(t *testing.T) {
	repo, mr := newTestRepo(t, 0)
	ctx := context.Background()

	got, err := repo.Get(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.Get(ctx, "absent")
	assert.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, mr.Set("scenario:run:bad", "not-json"))
	_, err = repo.Get(ctx, "bad")
	assert.Error(t, err)

	assert.NoError(t, repo.Save(ctx, nil))
}
