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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/simulacro-api/api/swagger"
	"github.com/noah-isme/simulacro-api/internal/handler"
	"github.com/noah-isme/simulacro-api/internal/middleware"
	"github.com/noah-isme/simulacro-api/internal/repository"
	"github.com/noah-isme/simulacro-api/internal/service"
	"github.com/noah-isme/simulacro-api/pkg/cache"
	"github.com/noah-isme/simulacro-api/pkg/config"
	"github.com/noah-isme/simulacro-api/pkg/database"
	"github.com/noah-isme/simulacro-api/pkg/export"
	"github.com/noah-isme/simulacro-api/pkg/jobs"
	"github.com/noah-isme/simulacro-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/simulacro-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/simulacro-api/pkg/middleware/requestid"
)

// @title Simulacro Performance API
// @version 1.0.0
// @description Scores, rankings and averages over simulacro practice exams
// @BasePath /api/v1
// @schemes http
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

	db, err := database.Open(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient := connectCache(cfg, logr)
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := buildApp(cfg, logr, db, redisClient)
	app.queue.Start(ctx)
	defer app.queue.Stop()

	if app.scheduler != nil {
		app.scheduler.Start()
		defer app.scheduler.Stop()
		logr.Info("ranking refresh scheduled", zap.String("spec", cfg.Ranking.RefreshCron))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

// connectCache returns nil when the ranking cache is disabled or Redis is
// unreachable; rankings are then computed on every request.
func connectCache(cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Ranking.CacheEnabled {
		return nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, ranking cache disabled", zap.Error(err))
		return nil
	}
	return client
}

type app struct {
	router    *gin.Engine
	queue     *jobs.Queue
	scheduler *cron.Cron
}

func buildApp(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client) *app {
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Ranking.CacheTTL, logr, redisClient != nil)

	collector := service.NewResultCollector(repository.NewExamResultRepository(db), metricsSvc, logr, service.ResultCollectorConfig{
		Concurrency: cfg.Ranking.FetchConcurrency,
		Timeout:     cfg.Ranking.FetchTimeout,
	})
	performanceSvc := service.NewPerformanceService(service.PerformanceServiceParams{
		Collector:    collector,
		Students:     repository.NewStudentRepository(db),
		Institutions: repository.NewInstitutionRepository(db),
		Metrics:      metricsSvc,
		Logger:       logr,
	})
	rankings := service.NewCachedPerformanceService(performanceSvc, cacheSvc, cfg.Ranking.CacheTTL, logr)

	exportSvc := service.NewExportService(rankings, service.ExportConfig{MaxRows: cfg.Export.MaxRows}, logr,
		export.NewCSVExporter(export.WithBOM()), export.NewPDFExporter(), export.NewXLSXExporter())
	tokenSvc := service.NewTokenService(validate, service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	worker := service.NewRefreshWorker(rankings, logr)
	queue := jobs.NewQueue("ranking-refresh", worker.Handle, jobs.QueueConfig{Workers: cfg.Ranking.RefreshWorkers, Logger: logr})
	refreshSvc := service.NewRefreshService(queue, logr)

	var scheduler *cron.Cron
	if cfg.Ranking.RefreshCron != "" {
		var err error
		scheduler, err = refreshSvc.Schedule(cfg.Ranking.RefreshCron)
		if err != nil {
			logr.Fatal("invalid ranking refresh schedule", zap.Error(err))
		}
	}

	checks := map[string]handler.ReadinessCheck{"database": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, routeDeps{
		performance: handler.NewPerformanceHandler(rankings, exportSvc, refreshSvc, validate),
		metrics:     handler.NewMetricsHandler(metricsSvc, checks),
		tokens:      tokenSvc,
	})

	return &app{router: r, queue: queue, scheduler: scheduler}
}
