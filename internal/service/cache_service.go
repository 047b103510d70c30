package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

const masterConfigCachePrefix = "master_config:"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MasterConfigCache keeps master_configs values in the shared cache under the
// master_config: prefix. Lookups are counted per configuration key.
type MasterConfigCache struct {
	repo    CacheRepository
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// NewMasterConfigCache constructs the cache. A zero ttl disables it so every
// read goes to the database.
func NewMasterConfigCache(repo CacheRepository, metrics *MetricsService, ttl time.Duration, logger *zap.Logger, enabled bool) *MasterConfigCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterConfigCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (c *MasterConfigCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil && c.ttl > 0
}

// GetString returns the cached value for a configuration key. Backend errors
// are logged and reported as a miss.
func (c *MasterConfigCache) GetString(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	start := time.Now()
	var value string
	err := c.repo.Get(ctx, masterConfigCachePrefix+key, &value)
	c.metrics.RecordCacheOperation(key, err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("master config cache get failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return value, true
}

// SetString stores value for a configuration key with the configured ttl.
func (c *MasterConfigCache) SetString(ctx context.Context, key, value string) {
	if !c.Enabled() {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, masterConfigCachePrefix+key, value, c.ttl)
	c.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		c.logger.Warn("master config cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached value for a configuration key.
func (c *MasterConfigCache) Invalidate(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.repo.Delete(ctx, masterConfigCachePrefix+key); err != nil {
		return err
	}
	return nil
}
