package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/profithive/profithive-go/internal/api"
	"github.com/profithive/profithive-go/internal/api/handlers"
	"github.com/profithive/profithive-go/internal/cache"
	"github.com/profithive/profithive-go/internal/config"
	"github.com/profithive/profithive-go/internal/database"
	"github.com/profithive/profithive-go/internal/forecast"
	"github.com/profithive/profithive-go/internal/logging"
	"github.com/profithive/profithive-go/internal/notification"
	"github.com/profithive/profithive-go/internal/observability"
	"github.com/profithive/profithive-go/internal/prophet"
	"github.com/profithive/profithive-go/internal/signals"
	"github.com/profithive/profithive-go/internal/storage"
)

func main() {
	// Load .env if present; real deployments set environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	// Postgres is optional: without it the service still forecasts, it just
	// does not persist results or serve stored history.
	var (
		db            *database.PostgresDB
		forecastStore handlers.ForecastStore
		historyStore  handlers.HistoryStore
	)
	if db, err = database.NewPostgresConnection(cfg.Database); err != nil {
		logger.WithError(err).Warn("Postgres unavailable, running without persistence")
		db = nil
	} else {
		defer db.Close()
		forecastStore = storage.NewForecastRepository(db.Pool)
		historyStore = storage.NewHistoryRepository(db.Pool)
	}

	var redis *database.RedisClient
	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		redis, err = database.NewRedisConnection(cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Redis cache backend configured but unreachable")
		}
		defer redis.Close()
		store = cache.NewRedisStore(redis)
	} else {
		store, err = cache.NewFileStore(cfg.Cache.Dir, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize file cache")
		}
	}

	fetcher := signals.NewFetcher(cfg.Signals, logger)
	invoker := prophet.NewSubprocessInvoker(cfg.Prophet, logger)
	orchestrator := forecast.NewOrchestrator(cfg.Prophet, invoker, store, logger)
	ensemble := forecast.NewEnsemble(cfg.Ensemble, logger)
	engine := forecast.NewEngine(orchestrator, ensemble, fetcher, logger)

	notifier, err := notification.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.WithError(err).Warn("Telegram alerting disabled")
	} else if notifier != nil {
		engine.SetNotifier(notifier)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.Enabled {
		monitor := observability.NewRuntimeMonitor(cfg.Monitoring, logger)
		go monitor.Run(rootCtx)
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	forecastHandler := handlers.NewForecastHandler(engine, forecastStore, historyStore, logger)
	cacheHandler := handlers.NewCacheHandler(store, logger)
	api.SetupRoutes(router, db, redis, forecastHandler, cacheHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Environment,
			"cache":       cfg.Cache.Backend,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-rootCtx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
