package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/podium/internal/adapters/http/api"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/config"
	"github.com/okian/podium/internal/domain/replay"
	"github.com/okian/podium/internal/domain/validation"
	"github.com/okian/podium/internal/secret"
	"github.com/okian/podium/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Local .env files are a development convenience; absence is fine.
	_ = godotenv.Load()

	// Disable default Go metrics collection to keep the registry to our own
	// metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closer, err := buildStore(ctx, cfg)
	if err != nil {
		log.Error(ctx, "failed to build store", logger.String("backend", cfg.StoreBackend), logger.Error(err))
		return
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	secrets := secret.NewCached(secret.NewEnvProvider(),
		secret.WithTTL(time.Duration(cfg.SecretTTLSecs)*time.Second))

	opts := []app.Option{
		app.WithLogger(log.Named("app")),
		app.WithStore(store),
		app.WithSecrets(secrets, cfg.SecretName),
		app.WithBackendName(cfg.StoreBackend),
		app.WithStoreTimeout(time.Duration(cfg.StoreTimeoutMS) * time.Millisecond),
		app.WithValidator(validation.New(
			validation.WithMaxScore(cfg.MaxScore),
			validation.WithTimestampSkew(time.Duration(cfg.TimestampSkewSecs)*time.Second),
		)),
	}
	if cfg.NonceReplayGuard {
		opts = append(opts, app.WithReplayGuard(replay.NewInMemoryGuard(replay.WithMaxSize(cfg.NonceCacheSize))))
	}

	svc, err := app.New(opts...)
	if err != nil {
		log.Error(ctx, "failed to build service", logger.Error(err))
		return
	}

	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
}

// buildStore constructs the configured backend. The returned closer is nil
// for backends with nothing to release.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, io.Closer, error) {
	switch cfg.StoreBackend {
	case "sqlite":
		st, err := repository.NewSQLStore(ctx, cfg.SQLitePath,
			repository.WithEntryTTL(time.Duration(cfg.EntryTTLSecs)*time.Second))
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case "redis":
		st, err := repository.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	default:
		return repository.NewMemStore(), nil, nil
	}
}
