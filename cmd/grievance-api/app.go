package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ravirajbabasomane202/PCMCApp/internal/repository"
	"github.com/ravirajbabasomane202/PCMCApp/internal/service"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/cache"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/config"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/database"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/logger"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/messaging"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/telemetry"
)

// app holds every long-lived component shared by the commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
	redis  *redis.Client
	cache  *repository.CacheRepository
	broker *messaging.Publisher

	metrics       *service.MetricsService
	auth          *service.AuthService
	configs       *service.ConfigurationService
	grievances    *service.GrievanceService
	notifications *service.NotificationService
	sla           *service.SLAService
	reports       *service.ReportService
	exports       *service.ExportService
	audit         *service.AuditService

	shutdownTracing func(context.Context) error
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	a := &app{cfg: cfg, logger: logr, db: db}

	a.redis, err = cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, master config reads go straight to postgres", zap.Error(err))
		a.redis = nil
	}

	a.shutdownTracing = telemetry.Setup(ctx, cfg.Telemetry, cfg.ServiceName, logr)
	a.metrics = service.NewMetricsService()
	validate := validator.New()

	grievanceRepo := repository.NewGrievanceRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	reportRepo := repository.NewReportRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	a.cache = repository.NewCacheRepository(a.redis, logr)
	configCache := service.NewMasterConfigCache(a.cache, a.metrics, cfg.MasterConfig.CacheTTL, logr, a.redis != nil)
	provider := service.NewMasterConfigProvider(configRepo, configCache, logr)

	var notifier service.Notifier = service.NewLogNotifier(logr)
	if cfg.Notifications.NATSURL != "" {
		publisher, err := messaging.NewPublisher(messaging.Config{URL: cfg.Notifications.NATSURL, Name: cfg.ServiceName})
		if err != nil {
			logr.Warn("nats unavailable, notifications will be logged only", zap.Error(err))
		} else {
			a.broker = publisher
			notifier = service.NewBrokerNotifier(publisher, cfg.Notifications.NATSSubj)
		}
	}
	a.notifications = service.NewNotificationService(userRepo, notifier, a.metrics, logr, service.NotificationConfig{
		Workers:    cfg.Notifications.Workers,
		Retries:    cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
	})

	a.auth = service.NewAuthService(logr, service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	a.grievances = service.NewGrievanceService(service.GrievanceServiceDeps{
		Tx:         db,
		Grievances: grievanceRepo,
		Users:      userRepo,
		Audit:      auditRepo,
		Comments:   commentRepo,
		Config:     provider,
		Notifier:   a.notifications,
		Metrics:    a.metrics,
		Validator:  validate,
		Logger:     logr,
	})
	a.sla = service.NewSLAService(grievanceRepo, a.grievances, provider, a.metrics, logr, service.SLAConfig{
		Interval:  cfg.SLA.SweepInterval,
		BatchSize: cfg.SLA.SweepBatch,
	})
	a.reports = service.NewReportService(reportRepo, userRepo, provider, a.metrics, logr)
	a.exports = service.NewExportService(grievanceRepo, userRepo, logr)
	a.audit = service.NewAuditService(auditRepo, userRepo)
	a.configs = service.NewConfigurationService(configRepo, db, auditRepo, userRepo, provider, validate, logr)

	return a, nil
}

// close flushes notifications and tracing, then releases connections.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.notifications.Drain(ctx); err != nil {
		a.logger.Warn("notification queue did not drain", zap.Error(err))
	}
	if a.broker != nil {
		a.broker.Close()
	}
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Warn("tracer shutdown failed", zap.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("redis close failed", zap.Error(err))
	}
	_ = a.db.Close()
	_ = a.logger.Sync()
}
