package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type cacheRepoStub struct {
	items map[string]string
	ttls  map[string]time.Duration
	err   error
	calls int
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{items: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	value, ok := s.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = value
	return nil
}

func (s *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	s.items[key] = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *cacheRepoStub) Delete(ctx context.Context, keys ...string) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

func TestMasterConfigCacheDisabled(t *testing.T) {
	ctx := context.Background()
	for name, cache := range map[string]*MasterConfigCache{
		"switched off": NewMasterConfigCache(newCacheRepoStub(), nil, time.Minute, nil, false),
		"zero ttl":     NewMasterConfigCache(newCacheRepoStub(), nil, 0, nil, true),
		"no backend":   NewMasterConfigCache(nil, nil, time.Minute, nil, true),
		"nil":          nil,
	} {
		assert.False(t, cache.Enabled(), name)
		cache.SetString(ctx, models.ConfigKeySLAClosureDays, "7")
		_, hit := cache.GetString(ctx, models.ConfigKeySLAClosureDays)
		assert.False(t, hit, name)
		assert.NoError(t, cache.Invalidate(ctx, models.ConfigKeySLAClosureDays), name)
	}

	repo := newCacheRepoStub()
	NewMasterConfigCache(repo, nil, time.Minute, nil, false).SetString(ctx, models.ConfigKeySLAClosureDays, "7")
	assert.Zero(t, repo.calls)
}

func TestMasterConfigCacheMissThenHit(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	cache := NewMasterConfigCache(repo, metrics, 30*time.Second, nil, true)
	ctx := context.Background()

	_, hit := cache.GetString(ctx, models.ConfigKeySLAClosureDays)
	assert.False(t, hit)

	cache.SetString(ctx, models.ConfigKeySLAClosureDays, "10")
	assert.Equal(t, "10", repo.items["master_config:SLA_CLOSURE_DAYS"])
	assert.Equal(t, 30*time.Second, repo.ttls["master_config:SLA_CLOSURE_DAYS"])

	value, hit := cache.GetString(ctx, models.ConfigKeySLAClosureDays)
	require.True(t, hit)
	assert.Equal(t, "10", value)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheHits.WithLabelValues(models.ConfigKeySLAClosureDays)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses.WithLabelValues(models.ConfigKeySLAClosureDays)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.cacheHits.WithLabelValues(models.ConfigKeyDefaultPriority)))

	require.NoError(t, cache.Invalidate(ctx, models.ConfigKeySLAClosureDays))
	_, hit = cache.GetString(ctx, models.ConfigKeySLAClosureDays)
	assert.False(t, hit)
}

func TestMasterConfigCacheBackendFailureIsMiss(t *testing.T) {
	repo := newCacheRepoStub()
	repo.err = errors.New("redis unavailable")
	metrics := NewMetricsService()
	cache := NewMasterConfigCache(repo, metrics, time.Minute, nil, true)
	ctx := context.Background()

	_, hit := cache.GetString(ctx, models.ConfigKeyMaxEscalationLevel)
	assert.False(t, hit)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheMisses.WithLabelValues(models.ConfigKeyMaxEscalationLevel)))

	cache.SetString(ctx, models.ConfigKeyMaxEscalationLevel, "3")
	assert.Error(t, cache.Invalidate(ctx, models.ConfigKeyMaxEscalationLevel))
}

func TestMasterConfigProviderThroughCache(t *testing.T) {
	repo := &masterConfigRepoStub{values: map[string]string{models.ConfigKeyDefaultPriority: "urgent"}}
	cache := NewMasterConfigCache(newCacheRepoStub(), nil, time.Minute, nil, true)
	provider := NewMasterConfigProvider(repo, cache, nil)
	ctx := context.Background()

	assert.Equal(t, models.PriorityUrgent, provider.DefaultPriority(ctx))
	assert.Equal(t, models.PriorityUrgent, provider.DefaultPriority(ctx))
	assert.Equal(t, 1, repo.reads)

	repo.values[models.ConfigKeyDefaultPriority] = "low"
	provider.Invalidate(ctx, models.ConfigKeyDefaultPriority)
	assert.Equal(t, models.PriorityLow, provider.DefaultPriority(ctx))
	assert.Equal(t, 2, repo.reads)
}
