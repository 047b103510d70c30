package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/dto"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	appErrors "github.com/ravirajbabasomane202/PCMCApp/pkg/errors"
)

type slaCandidateLister interface {
	ListSLABreached(ctx context.Context, cutoff time.Time, limit, offset int) ([]string, error)
}

type autoCloser interface {
	CheckAutoClose(ctx context.Context, grievanceID string) (*models.Grievance, error)
}

// SLAConfig tunes the auto-close sweeper.
type SLAConfig struct {
	Interval  time.Duration
	BatchSize int
}

// SLAService closes resolved grievances once their confirmation window lapses.
type SLAService struct {
	candidates slaCandidateLister
	closer     autoCloser
	config     ConfigProvider
	metrics    *MetricsService
	logger     *zap.Logger
	cfg        SLAConfig
	now        func() time.Time
}

// NewSLAService constructs the sweeper.
func NewSLAService(candidates slaCandidateLister, closer autoCloser, config ConfigProvider, metrics *MetricsService, logger *zap.Logger, cfg SLAConfig) *SLAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &SLAService{
		candidates: candidates,
		closer:     closer,
		config:     config,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Sweep closes every grievance past the SLA window, each in its own
// transaction. Failures are counted and skipped.
func (s *SLAService) Sweep(ctx context.Context) (dto.SweepResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(start)) }()

	var (
		result dto.SweepResult
		offset int
	)
	days := s.config.SLAClosureDays(ctx)
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		// Closed rows drop out of the candidate set; rows left open shift the window.
		ids, err := s.candidates.ListSLABreached(ctx, cutoff, s.cfg.BatchSize, offset)
		if err != nil {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sla candidates")
		}
		if len(ids) == 0 {
			break
		}
		for _, id := range ids {
			result.Scanned++
			g, err := s.closer.CheckAutoClose(ctx, id)
			if err != nil {
				result.Failed++
				offset++
				s.logger.Warn("sla auto-close failed", zap.String("grievance_id", id), zap.Error(err))
				continue
			}
			if g != nil && g.Status == models.GrievanceStatusClosed {
				result.Closed++
				continue
			}
			offset++
		}
		if len(ids) < s.cfg.BatchSize {
			break
		}
	}

	s.logger.Info("sla sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("closed", result.Closed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// Start runs Sweep on the configured interval until ctx is cancelled.
func (s *SLAService) Start(ctx context.Context) {
	if s.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("sla sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
