package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/opentransittools/pelias-refine/internal/config"
	"github.com/opentransittools/pelias-refine/internal/db"
	dbRedis "github.com/opentransittools/pelias-refine/internal/db/redis"
	"github.com/opentransittools/pelias-refine/internal/domain/agency"
	logpkg "github.com/opentransittools/pelias-refine/internal/logger"
	"github.com/opentransittools/pelias-refine/internal/metrics"
	"github.com/opentransittools/pelias-refine/internal/repository/respcache"
	chiTransport "github.com/opentransittools/pelias-refine/internal/transport/chi"
	"github.com/opentransittools/pelias-refine/internal/transport/pelias"
	"github.com/opentransittools/pelias-refine/internal/usecase/cascade"
	"github.com/opentransittools/pelias-refine/internal/usecase/clean"
	healthuc "github.com/opentransittools/pelias-refine/internal/usecase/health"
	refineuc "github.com/opentransittools/pelias-refine/internal/usecase/refine"
	"github.com/opentransittools/pelias-refine/internal/version"
)

const appName = "pelias-refine"

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	if cfg.Logging.File != "" {
		var closer io.Closer
		logger, closer = logpkg.WithFile(logger, logpkg.FileOptions{
			Path:       cfg.Logging.File,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
		defer func() { _ = closer.Close() }()
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting pelias refine server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("pelias_url", cfg.Pelias.BaseURL),
		zap.String("cache_driver", cfg.Cache.Driver),
	)

	metrics.RegisterRefineMetrics()

	// Shared cache store, optional
	var store db.Store
	if cfg.Cache.Shared() {
		// Valkey speaks the same protocol; both go through rueidis.
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	upstreamTimeout := time.Duration(cfg.Pelias.TimeoutSec) * time.Second
	client := pelias.NewClient(&pelias.Config{
		BaseURL:    cfg.Pelias.BaseURL,
		PathPrefix: cfg.Pelias.PathPrefix,
		Timeout:    upstreamTimeout,
		UserAgent:  cfg.Pelias.UserAgent,
		Logger:     logger,
	})

	// Fetcher chain: HTTP -> cached (memory, optionally shared)
	var fetcher cascade.Fetcher = client
	if cfg.Cache.Driver != config.CacheNone {
		cacheCfg := respcache.Config{
			Size:         cfg.Cache.MemorySize,
			TTL:          time.Duration(cfg.Cache.TTLSec) * time.Second,
			SharedTTL:    time.Duration(cfg.Cache.SharedTTLSec) * time.Second,
			FetchTimeout: upstreamTimeout,
			CellLevel:    cfg.Cache.CellLevel,
		}
		// store is a nil interface when there is no shared tier.
		fetcher = respcache.New(client, store, cacheCfg, metrics.ResponseCacheTotal, logger)
	}

	agencies := agency.Agencies{
		Primary:     cfg.Agencies.Primary,
		PrimaryName: cfg.Agencies.PrimaryName,
		List:        cfg.Agencies.List,
	}

	cascadeSvc := cascade.New(fetcher, agency.NewState(agencies), clean.New(agencies))
	refineSvc := refineuc.New(cascadeSvc, client.Routes(), agencies, cfg.Refine.MinBatchSize)

	healthSvc := healthuc.New(client, store)

	hostname := cfg.HTTP.Hostname
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	server := chiTransport.NewServer(refineSvc, healthSvc, appName, hostname, logger)
	handler := chiTransport.NewRouter(server, logger, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
