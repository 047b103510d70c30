package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	_ "github.com/ravirajbabasomane202/PCMCApp/api/swagger"
	"github.com/ravirajbabasomane202/PCMCApp/internal/handler"
	"github.com/ravirajbabasomane202/PCMCApp/internal/middleware"
	"github.com/ravirajbabasomane202/PCMCApp/internal/models"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/config"
	"github.com/ravirajbabasomane202/PCMCApp/pkg/logger"
	corsmiddleware "github.com/ravirajbabasomane202/PCMCApp/pkg/middleware/cors"
	reqidmiddleware "github.com/ravirajbabasomane202/PCMCApp/pkg/middleware/requestid"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the SLA auto-close sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	a.notifications.Start(ctx)
	if a.cfg.SLA.SweepEnabled {
		a.sla.Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Port),
		Handler:           otelhttp.NewHandler(a.router(), a.cfg.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Sugar().Infow("server starting", "addr", srv.Addr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *app) router() *gin.Engine {
	if a.cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(a.cfg.CORS))
	r.Use(middleware.Metrics(a.metrics))

	probes := map[string]handler.Pinger{"postgres": a.db}
	if a.redis != nil {
		probes["redis"] = handler.PingFunc(func(ctx context.Context) error { return a.redis.Ping(ctx).Err() })
	}
	metricsHandler := handler.NewMetricsHandler(a.metrics.Handler(), probes, a.logger)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if a.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	grievances := handler.NewGrievanceHandler(a.grievances)
	admin := handler.NewAdminHandler(a.reports, a.exports, a.audit, a.configs)

	api := r.Group(a.cfg.APIPrefix)
	api.Use(middleware.JWT(a.auth))

	g := api.Group("/grievances")
	g.POST("", middleware.RequireRoles(models.RoleCitizen), grievances.Submit)
	g.GET("", middleware.RequireRoles(models.RoleAdmin), grievances.ListAll)
	g.GET("/mine", middleware.RequireRoles(models.RoleCitizen), grievances.ListMine)
	g.GET("/new", middleware.RequireRoles(models.RoleMemberHead, models.RoleAdmin), grievances.ListNew)
	g.GET("/assigned", middleware.RequireRoles(models.RoleFieldStaff), grievances.ListAssigned)
	g.GET("/code/:code", grievances.GetByCode)
	g.GET("/:id", grievances.Get)
	g.POST("/:id/accept", middleware.RequireRoles(models.RoleMemberHead, models.RoleAdmin), grievances.Accept)
	g.POST("/:id/reject", middleware.RequireRoles(models.RoleMemberHead, models.RoleAdmin), grievances.Reject)
	g.PUT("/:id/status", middleware.RequireRoles(models.RoleFieldStaff, models.RoleAdmin), grievances.UpdateStatus)
	g.POST("/:id/close", middleware.RequireRoles(models.RoleCitizen), grievances.Close)
	g.POST("/:id/feedback", middleware.RequireRoles(models.RoleCitizen), grievances.Feedback)
	g.GET("/:id/rejection", middleware.RequireRoles(models.RoleCitizen), grievances.RejectionReason)
	g.POST("/:id/comments", grievances.AddComment)
	g.GET("/:id/comments", grievances.ListComments)
	g.POST("/:id/escalate", middleware.RequireRoles(models.RoleAdmin), grievances.Escalate)
	g.PUT("/:id/reassign", middleware.RequireRoles(models.RoleAdmin), grievances.Reassign)

	adm := api.Group("/admin", middleware.RequireRoles(models.RoleAdmin))
	adm.GET("/kpis", admin.KPIs)
	adm.GET("/reports/staff-performance", admin.StaffPerformance)
	adm.GET("/reports/location", admin.Locations)
	adm.GET("/reports/export", admin.Export)
	adm.GET("/users/:id/history", admin.CitizenHistory)
	adm.GET("/audit-logs", admin.AuditLogs)
	adm.GET("/configs", admin.ListConfigs)
	adm.GET("/configs/:key", admin.GetConfig)
	adm.PUT("/configs/:key", admin.UpdateConfig)

	return r
}
