// Command server starts the AI Voice Studio HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ai-voice-studio/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/observability"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/storage/local"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/storage/supabase"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/tts/openai"
	"github.com/fairyhunter13/ai-voice-studio/internal/adapter/tts/tokencount"
	"github.com/fairyhunter13/ai-voice-studio/internal/app"
	"github.com/fairyhunter13/ai-voice-studio/internal/config"
	"github.com/fairyhunter13/ai-voice-studio/internal/domain"
	"github.com/fairyhunter13/ai-voice-studio/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-voice-studio/internal/usecase"
)

// redisAdapter adapts *redis.Client to app.RedisClient for readiness.
type redisAdapter struct{ *redis.Client }

func (r redisAdapter) Ping(ctx context.Context) app.RedisPingResult { return r.Client.Ping(ctx) }

type objectStore interface {
	domain.ObjectStore
	app.StorageProber
}

func buildStore(cfg config.Config) (objectStore, http.Handler) {
	if cfg.StorageBackend == "supabase" {
		return supabase.New(cfg.SupabaseURL, cfg.SupabaseServiceRoleKey, cfg.StorageBucket), nil
	}
	st := local.NewStore(cfg.LocalStorageDir, cfg.LocalStorageBaseURL)
	return st, st.Handler()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Infra: DB pool
	pool, err := postgres.NewPool(ctx, cfg.DBURL)
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migration failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Infra: Redis for per-user synthesis quotas
	var rdb *redis.Client
	if opts, err := redis.ParseURL(cfg.RedisURL); err != nil {
		slog.Warn("invalid REDIS_URL, synthesis quota disabled", slog.Any("error", err))
	} else {
		rdb = redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
	}
	var limiter domain.RateLimiter
	var readinessRedis app.RedisClient
	if rdb != nil {
		lim := ratelimiter.NewRedisLuaLimiter(rdb, pool, map[string]ratelimiter.BucketConfig{
			ratelimiter.BucketSynthesis: ratelimiter.NewBucketConfigFromPerMinute(cfg.SynthesisPerMin),
		})
		if err := lim.WarmFromPostgres(ctx); err != nil {
			slog.Warn("rate limiter warm-up failed", slog.Any("error", err))
		}
		limiter = lim
		readinessRedis = redisAdapter{rdb}
	}

	store, files := buildStore(cfg)
	slog.Info("object storage configured", slog.String("backend", cfg.StorageBackend))

	// Repositories
	clipRepo := postgres.NewClipRepo(pool)
	catRepo := postgres.NewCategoryRepo(pool)

	// Start cleanup service for data retention
	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, store, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	presets, err := config.LoadPresets(cfg.PresetsFile)
	if err != nil {
		slog.Error("failed to load presets", slog.Any("error", err))
		os.Exit(1)
	}

	// Usecases
	genSvc := usecase.NewGenerateService(openai.New(cfg), tokencount.NewCounter(), limiter, usecase.GenerateConfig{
		Model:           cfg.TTSModel,
		MaxInputLength:  cfg.MaxInputLength,
		MaxPromptLength: cfg.MaxPromptLength,
		MaxInputTokens:  cfg.MaxInputTokens,
	})
	libSvc := usecase.NewLibraryService(clipRepo, catRepo, store)
	catSvc := usecase.NewCategoryService(catRepo)

	dbCheck, redisCheck, storageCheck := app.BuildReadinessChecks(pool, readinessRedis, store)
	if readinessRedis == nil {
		redisCheck = nil
	}

	if !cfg.AuthEnabled() {
		if cfg.IsDev() {
			slog.Warn("no accounts configured, all requests run as the dev user", slog.String("user_id", app.DevUserID))
		} else {
			slog.Warn("no accounts configured, library routes will reject every request")
		}
	}

	// HTTP server
	srv := httpserver.NewServer(cfg, genSvc, libSvc, catSvc, httpserver.NewSessionManager(cfg), presets, dbCheck, redisCheck, storageCheck)
	handler := app.BuildRouter(cfg, srv, files)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}
