package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-scheduler-api/api/swagger"
	"github.com/noah-isme/course-scheduler-api/internal/backend"
	"github.com/noah-isme/course-scheduler-api/internal/handler"
	"github.com/noah-isme/course-scheduler-api/internal/middleware"
	"github.com/noah-isme/course-scheduler-api/internal/models"
	"github.com/noah-isme/course-scheduler-api/internal/repository"
	"github.com/noah-isme/course-scheduler-api/internal/service"
	"github.com/noah-isme/course-scheduler-api/pkg/cache"
	"github.com/noah-isme/course-scheduler-api/pkg/config"
	"github.com/noah-isme/course-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-scheduler-api/pkg/middleware/requestid"
)

const shutdownTimeout = 10 * time.Second

// @title Course Scheduler API
// @version 1.0.0
// @description Course grouping selection, conflict detection and schedule export for the student dashboard.
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	var (
		cacheRepo service.CacheRepository
		readiness *repository.CacheRepository
	)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			readiness = repository.NewCacheRepository(client, cfg.Cache.KeyPrefix, logr)
			cacheRepo = readiness
			defer readiness.Close() //nolint:errcheck
		}
	}
	groupingCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.GroupingTTL, logr, cacheRepo != nil)
	authCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.AuthTTL, logr, cacheRepo != nil)

	backendClient := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logr, metricsSvc)

	resolver := service.NewGroupingResolver(backendClient, groupingCache, cfg.Cache.GroupingTTL, logr)
	fetcher := service.NewScheduleFetcher(backendClient, logr)
	schedulerSvc := service.NewSchedulerService(backendClient, resolver, fetcher, metricsSvc, validate, service.SchedulerConfig{
		SessionTTL:        cfg.Scheduler.SessionTTL,
		SweepInterval:     cfg.Scheduler.SweepInterval,
		ReplayConcurrency: cfg.Scheduler.ReplayConcurrency,
		Palette:           models.DefaultPalette(),
	}, logr)
	go schedulerSvc.Run(ctx)

	authSvc := service.NewAuthService(backendClient, authCache, logr, service.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		CacheTTL:  cfg.Cache.AuthTTL,
	})

	exportSvc, err := service.NewExportService(schedulerSvc, service.ExportConfig{
		Enabled:   cfg.Export.Enabled,
		TermWeeks: cfg.Export.TermWeeks,
		Timezone:  cfg.Export.Timezone,
	}, validate, logr)
	if err != nil {
		logr.Fatal("failed to init export service", zap.Error(err))
	}

	var metricsHandler *handler.MetricsHandler
	if readiness != nil {
		metricsHandler = handler.NewMetricsHandler(metricsSvc, readiness)
	} else {
		metricsHandler = handler.NewMetricsHandler(metricsSvc, nil)
	}
	schedulerHandler := handler.NewSchedulerHandler(schedulerSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	session := middleware.Session(authSvc, cfg.Auth.CookieName)
	admin := middleware.RequireRoles(models.RoleAdmin)

	r.GET("/metrics", session, admin, metricsHandler.Prometheus)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/metrics/summary", session, admin, metricsHandler.Snapshot)

	scheduler := api.Group("/scheduler")
	scheduler.Use(session, middleware.RequireRoles(models.RoleVerified, models.RoleAdmin))
	scheduler.POST("/students/:studentId/sessions", schedulerHandler.Mount)

	sessions := scheduler.Group("/sessions/:sessionId")
	sessions.GET("", schedulerHandler.Snapshot)
	sessions.DELETE("", schedulerHandler.Unmount)
	sessions.POST("/courses/:courseCode/toggle", schedulerHandler.Toggle)
	sessions.PUT("/courses/:courseCode/grouping", schedulerHandler.SelectGrouping)
	sessions.DELETE("/courses/:courseCode", schedulerHandler.DeselectCourse)
	sessions.GET("/conflicts", schedulerHandler.Conflicts)
	sessions.GET("/calendar", schedulerHandler.Calendar)
	sessions.POST("/save", schedulerHandler.Save)
	sessions.POST("/mark-done", schedulerHandler.MarkDone)
	sessions.GET("/export", exportHandler.Export)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("scheduler sessions released", zap.Int("closed", schedulerSvc.Shutdown()))
}
