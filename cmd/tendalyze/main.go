package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tendalyze/tendalyze/internal/api/rest"
	"github.com/tendalyze/tendalyze/internal/api/websocket"
	"github.com/tendalyze/tendalyze/internal/cache"
	"github.com/tendalyze/tendalyze/internal/config"
	"github.com/tendalyze/tendalyze/internal/etl"
	"github.com/tendalyze/tendalyze/internal/logging"
	"github.com/tendalyze/tendalyze/internal/metrics"
	"github.com/tendalyze/tendalyze/internal/publisher"
	"github.com/tendalyze/tendalyze/internal/scheduler"
	"github.com/tendalyze/tendalyze/internal/service"
	"github.com/tendalyze/tendalyze/internal/store"
)

const (
	serviceName    = "tendalyze"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting service", zap.String("service", serviceName), zap.String("version", serviceVersion))

	// Initialize database connection
	db, err := store.NewDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	logger.Info("✓ Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run migrations
	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("✓ Database migrations applied")

	var (
		queryCache cache.Cache         = cache.Nop{}
		pub        publisher.Publisher = publisher.Nop{}
		source     websocket.EventSource
		redisCheck rest.HealthChecker
	)

	if cfg.EnableRedis {
		redisCache, err := connectRedis(cfg.RedisURL, logger)
		if err != nil {
			return err
		}
		defer redisCache.Close()

		redisPublisher := publisher.NewRedisPublisher(redisCache.Client())
		queryCache, pub, source = redisCache, redisPublisher, redisPublisher
		redisCheck = redisCache

		logger.Info("✓ Connected to Redis")
	} else {
		logger.Info("Redis disabled; caching and event stream are off")
	}

	m := metrics.New()
	loader := etl.NewLoader(db, pub, queryCache, m, logger)

	// Background formation sweep
	schedulerConfig := scheduler.DefaultConfig()
	schedulerConfig.NormalizeInterval = cfg.NormalizeInterval
	sched := scheduler.NewOrchestrator(loader, schedulerConfig, logger)
	go sched.Start(ctx)

	handler := rest.NewHandler(
		db,
		service.NewTeamService(db),
		service.NewGameService(db),
		service.NewTendencyService(db, queryCache, cfg.CacheTTL, logger),
		loader,
		serviceVersion,
	)
	if redisCheck != nil {
		handler.WithRedis(redisCheck)
	}

	// Initialize REST API server
	restServer := rest.NewServer(cfg.RESTPort, handler, m, logger)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("REST server error", zap.Error(err))
		}
	}()

	logger.Info("✓ REST API server listening", zap.String("port", cfg.RESTPort))

	// Initialize WebSocket server
	wsServer := websocket.NewServer(source, logger)
	go func() {
		if err := wsServer.Start(ctx, cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(err))
		}
	}()

	logger.Info("✓ Service started",
		zap.String("rest", "http://0.0.0.0:"+cfg.RESTPort),
		zap.String("websocket", "ws://0.0.0.0:"+cfg.WSPort+"/ws/ingest"),
	)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully...")

	// Graceful shutdown
	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("REST API server shutdown error", zap.Error(err))
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown error", zap.Error(err))
	}

	logger.Info("Service stopped")
	return nil
}

// connectRedis retries until Redis answers or the attempts run out
func connectRedis(url string, logger *zap.Logger) (*cache.RedisCache, error) {
	const maxRetries = 30
	retryDelay := 2 * time.Second

	logger.Info("Connecting to Redis...")
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		redisCache, err := cache.NewRedisCache(url)
		if err == nil {
			return redisCache, nil
		}
		lastErr = err

		if i < maxRetries-1 {
			logger.Warn("Redis connection attempt failed",
				zap.Int("attempt", i+1),
				zap.Int("max_attempts", maxRetries),
				zap.Duration("retry_in", retryDelay),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("connecting to Redis after %d attempts: %w", maxRetries, lastErr)
}
