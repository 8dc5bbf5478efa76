// cmd/resolverd/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nlq-resolver/internal/catalog"
	"nlq-resolver/internal/clarify"
	"nlq-resolver/internal/common/config"
	"nlq-resolver/internal/common/logger"
	"nlq-resolver/internal/common/observability"
	"nlq-resolver/internal/extract"
	"nlq-resolver/internal/resolve"
	"nlq-resolver/internal/resolver"
	"nlq-resolver/internal/server"
	"nlq-resolver/internal/sqlgen"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting query resolver...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Catalog ---
	cat := catalog.New(catalog.Params{Threshold: cfg.Resolver.FuzzyThreshold}, log)
	if cfg.Catalog.Watch {
		err = catalog.Watch(cat, cfg.Catalog.Path, log)
	} else {
		err = catalog.LoadFile(cat, cfg.Catalog.Path)
	}
	if err != nil {
		zapLog.Fatal("catalog load failed", zap.Error(err), zap.String("path", cfg.Catalog.Path))
	}

	// --- Session store ---
	var store clarify.Store
	switch cfg.Session.Store {
	case "redis":
		redisStore := clarify.NewRedisStore(cfg.Session.Redis, log)
		err = retryWithBackoff(func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return redisStore.Ping(pingCtx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis unavailable", zap.Error(err))
		}
		store = redisStore
	default:
		store = clarify.NewMemoryStore(log)
	}
	defer store.Close()

	// --- Resolution pipeline ---
	defaultDays := cfg.Resolver.DefaultRange.Days
	if !cfg.Resolver.DefaultRange.Enabled {
		defaultDays = 0
	}
	extractor := extract.New(cat, log)
	res := resolve.New(cat, resolve.Params{
		AmbiguityMargin:  cfg.Resolver.AmbiguityMargin,
		DefaultRangeDays: defaultDays,
	}, log)
	manager := clarify.NewManager(store, cat, extractor, res, cfg.Session.TTL(), log)
	svc := resolver.New(extractor, res, manager, obs, log)
	renderer := sqlgen.New(cfg.SQL.Table, cfg.SQL.DateColumn)

	srv := server.New(cfg.Server.Address, svc, renderer, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		zapLog.Error("http server stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
	zapLog.Info("query resolver stopped")
}
