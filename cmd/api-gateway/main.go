package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lab-scheduler-api/api/swagger"
	"github.com/noah-isme/lab-scheduler-api/internal/handler"
	"github.com/noah-isme/lab-scheduler-api/internal/middleware"
	"github.com/noah-isme/lab-scheduler-api/internal/repository"
	"github.com/noah-isme/lab-scheduler-api/internal/router"
	"github.com/noah-isme/lab-scheduler-api/internal/service"
	"github.com/noah-isme/lab-scheduler-api/pkg/cache"
	"github.com/noah-isme/lab-scheduler-api/pkg/config"
	"github.com/noah-isme/lab-scheduler-api/pkg/database"
	"github.com/noah-isme/lab-scheduler-api/pkg/logger"
)

// @title Lab Scheduler API
// @version 1.0.0
// @description Lab booking with conflict detection for the lab inventory system.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx := context.Background()
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
		if err := metrics.RegisterDBStats(db.DB, cfg.Database.Name); err != nil {
			logr.Warn("failed to register database metrics", zap.Error(err))
		}
	}

	var redisClient *redis.Client
	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cacheRepo != nil)

	validate := service.NewValidator()
	labRepo := repository.NewLabRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	labSvc := service.NewLabService(labRepo, scheduleRepo, cacheSvc, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, labSvc, scheduleRepo, cacheSvc, metrics, validate, logr)
	exportSvc := service.NewExportService(scheduleSvc, nil, nil, logr)
	tokenSvc := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	var redisCheck handler.Pinger
	if redisClient != nil {
		redisCheck = cache.HealthCheck{Client: redisClient}
	}
	var metricsHandler http.Handler
	var metricsMiddleware gin.HandlerFunc
	if metrics != nil {
		metricsHandler = metrics.Handler()
		metricsMiddleware = middleware.Metrics(metrics)
	}

	engine := router.New(router.Dependencies{
		Config: cfg,
		Logger: logr,
		Auth:   middleware.JWT(tokenSvc),
		Audit: func(action, resource string) gin.HandlerFunc {
			return middleware.Audit(auditRepo, logr, action, resource)
		},
		Metrics:   metricsMiddleware,
		Schedules: handler.NewScheduleHandler(scheduleSvc, exportSvc),
		Labs:      handler.NewLabHandler(labSvc),
		Ops:       handler.NewMetricsHandler(metricsHandler, db, redisCheck),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
