package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
)

// ConfigProvider exposes workflow tunables. Values are resolved on every call
// so administrative changes apply to the next operation.
type ConfigProvider interface {
	MaxEscalationLevel(ctx context.Context) int
	SLAClosureDays(ctx context.Context) int
	DefaultPriority(ctx context.Context) models.Priority
}

type masterConfigReader interface {
	Get(ctx context.Context, key string) (*models.Configuration, error)
}

type masterConfigCache interface {
	GetString(ctx context.Context, key string) (string, bool)
	SetString(ctx context.Context, key, value string)
	Invalidate(ctx context.Context, key string) error
}

// MasterConfigProvider reads master_configs through a short-lived cache.
type MasterConfigProvider struct {
	repo   masterConfigReader
	cache  masterConfigCache
	logger *zap.Logger
}

// NewMasterConfigProvider constructs the provider. A nil cache reads straight
// from the repository.
func NewMasterConfigProvider(repo masterConfigReader, cache masterConfigCache, logger *zap.Logger) *MasterConfigProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterConfigProvider{repo: repo, cache: cache, logger: logger}
}

// MaxEscalationLevel returns MAX_ESCALATION_LEVEL, defaulting to 3.
func (p *MasterConfigProvider) MaxEscalationLevel(ctx context.Context) int {
	return p.positiveInt(ctx, models.ConfigKeyMaxEscalationLevel, models.DefaultMaxEscalationLevel)
}

// SLAClosureDays returns SLA_CLOSURE_DAYS, defaulting to 7.
func (p *MasterConfigProvider) SLAClosureDays(ctx context.Context) int {
	return p.positiveInt(ctx, models.ConfigKeySLAClosureDays, models.DefaultSLAClosureDays)
}

// DefaultPriority returns DEFAULT_PRIORITY, defaulting to medium.
func (p *MasterConfigProvider) DefaultPriority(ctx context.Context) models.Priority {
	raw, ok := p.lookup(ctx, models.ConfigKeyDefaultPriority)
	if !ok {
		return models.DefaultGrievancePriority
	}
	priority, valid := models.ParsePriority(raw)
	if !valid {
		p.logger.Warn("malformed master config value, using default",
			zap.String("key", models.ConfigKeyDefaultPriority), zap.String("value", raw))
		return models.DefaultGrievancePriority
	}
	return priority
}

// Invalidate drops the cached value for key.
func (p *MasterConfigProvider) Invalidate(ctx context.Context, key string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Invalidate(ctx, key); err != nil {
		p.logger.Warn("master config cache invalidate failed", zap.String("key", key), zap.Error(err))
	}
}

func (p *MasterConfigProvider) positiveInt(ctx context.Context, key string, fallback int) int {
	raw, ok := p.lookup(ctx, key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 1 {
		p.logger.Warn("malformed master config value, using default", zap.String("key", key), zap.String("value", raw))
		return fallback
	}
	return value
}

func (p *MasterConfigProvider) lookup(ctx context.Context, key string) (string, bool) {
	if p.cache != nil {
		if cached, hit := p.cache.GetString(ctx, key); hit {
			return cached, true
		}
	}

	if p.repo == nil {
		return "", false
	}
	cfg, err := p.repo.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			p.logger.Warn("master config read failed, using default", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}

	if p.cache != nil {
		p.cache.SetString(ctx, key, cfg.Value)
	}
	return cfg.Value, true
}
