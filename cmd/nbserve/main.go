package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nbserve/internal/artifact"
	"github.com/kailas-cloud/nbserve/internal/config"
	"github.com/kailas-cloud/nbserve/internal/db"
	"github.com/kailas-cloud/nbserve/internal/db/memory"
	dbRedis "github.com/kailas-cloud/nbserve/internal/db/redis"
	"github.com/kailas-cloud/nbserve/internal/domain/text"
	logpkg "github.com/kailas-cloud/nbserve/internal/logger"
	"github.com/kailas-cloud/nbserve/internal/metrics"
	"github.com/kailas-cloud/nbserve/internal/repository/predcache"
	chiTransport "github.com/kailas-cloud/nbserve/internal/transport/chi"
	healthuc "github.com/kailas-cloud/nbserve/internal/usecase/health"
	predictionuc "github.com/kailas-cloud/nbserve/internal/usecase/prediction"
	"github.com/kailas-cloud/nbserve/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "nbserve:", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting nbserve",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("model_path", cfg.Artifacts.ModelPath),
		zap.String("vocabulary_path", cfg.Artifacts.VocabularyPath),
	)

	// Artifacts are loaded once; any failure stops the process before it listens.
	bundle, err := artifact.Load(artifact.Config{
		ModelPath:      cfg.Artifacts.ModelPath,
		VocabularyPath: cfg.Artifacts.VocabularyPath,
	})
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	info := bundle.Info()
	logger.Info("Artifacts loaded",
		zap.String("kind", string(info.Kind)),
		zap.Int("classes", len(info.Classes)),
		zap.Int("vocabulary_size", info.VocabularySize),
		zap.String("fingerprint", info.Fingerprint),
	)

	home, err := chiTransport.LoadHomeTemplate(cfg.Web.TemplatePath)
	if err != nil {
		return fmt.Errorf("load home page: %w", err)
	}

	// Register prediction metrics explicitly (no init())
	metrics.RegisterPredictionMetrics()
	metrics.ModelInfo.WithLabelValues(
		string(info.Kind), info.Fingerprint, strconv.Itoa(info.VocabularySize),
	).Set(1)

	// Pass nil interfaces (not typed nil pointers) when the cache is off.
	var (
		cache       predictionuc.Cache
		cachePinger healthuc.CachePinger
	)
	if cfg.Cache.Enabled {
		store, err := openCacheStore(cfg.Cache, logger)
		if err != nil {
			logger.Warn("Prediction cache unavailable, continuing without cache", zap.Error(err))
		} else {
			defer store.Close()
			cache = predcache.New(store, predcache.Options{
				Prefix:      cfg.Cache.KeyPrefix,
				Fingerprint: info.Fingerprint,
				TTL:         time.Duration(cfg.Cache.TTLSec) * time.Second,
			}, metrics.PredictionCacheTotal, logger)
			cachePinger = store
		}
	}

	predictionSvc := predictionuc.New(text.English, bundle.Vectorizer, bundle.Model, cache)
	healthSvc := healthuc.New(bundle, cachePinger)

	server := chiTransport.NewServer(predictionSvc, healthSvc, info, home, cfg.HTTP.MaxBodyBytes)
	router := chiTransport.NewRouter(server, logger, cfg.HTTP.Debug)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// openCacheStore opens the configured store. Redis and Valkey both speak RESP
// and share the rueidis store; memory keeps entries in process.
func openCacheStore(cfg config.CacheConfig, logger *zap.Logger) (db.Store, error) {
	if cfg.Driver == "memory" {
		logger.Info("Using in-process prediction cache", zap.Int("size_mb", cfg.SizeMB))
		return memory.NewStore(cfg.SizeMB), nil
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Addrs,
		Password:   cfg.Password,
		Standalone: cfg.Standalone,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s store: %w", cfg.Driver, err)
	}

	timeout := time.Duration(cfg.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(context.Background(), timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Driver, err)
	}

	logger.Info("Connected to prediction cache",
		zap.String("driver", cfg.Driver),
		zap.Strings("addrs", cfg.Addrs),
	)
	return store, nil
}
