package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crossfield/investigation-engine/internal/api/rest"
	"github.com/crossfield/investigation-engine/internal/infrastructure/cache"
	"github.com/crossfield/investigation-engine/internal/infrastructure/config"
	"github.com/crossfield/investigation-engine/internal/infrastructure/repository"
	"github.com/crossfield/investigation-engine/internal/infrastructure/telemetry"
	"github.com/crossfield/investigation-engine/internal/metrics"
	"github.com/crossfield/investigation-engine/internal/service/agents"
	"github.com/crossfield/investigation-engine/internal/service/consolidation"
	"github.com/crossfield/investigation-engine/internal/service/coordinator"
	"github.com/crossfield/investigation-engine/internal/service/engine"
	"github.com/crossfield/investigation-engine/internal/service/executionpool"
	"github.com/crossfield/investigation-engine/internal/service/orchestration"
	"github.com/crossfield/investigation-engine/internal/service/queryvalidator"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting investigation engine",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port)

	provider, err := telemetry.InitializeOpenTelemetry(ctx, &telemetry.Config{
		ServiceName:    "investigation-engine",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   "localhost:4317",
		Enabled:        !cfg.IsDevelopment(),
		SamplingRate:   1.0,
		ExportTimeout:  30 * time.Second,
		BatchTimeout:   5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	zapLogger, err := telemetry.NewZapLogger(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	registry, err := metrics.NewRegistry("investigation-engine")
	if err != nil {
		return err
	}

	// Persistence falls back to the in-memory repository when no
	// database is configured.
	var repo engine.Repository
	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = repository.NewInvestigationRepository(pool)
	} else {
		logger.Warn("no database configured, using in-memory repository")
		repo = repository.NewMemoryRepository()
	}

	// Redis backs the validation cache, the shared API rate limit,
	// and complexity-weighted submission billing. Without it the API
	// falls back to per-instance token buckets and uncached validation.
	var validationCache engine.ValidationCache
	var apiLimiter cache.RateLimiter
	var quota engine.SubmissionQuota
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		validationCache = cache.NewValidationStore(cache.NewRedisCacheFromClient(client, zapLogger), cfg.Investigation.ValidationCacheTTL)
		apiLimiter = cache.NewRedisRateLimiter(client, zapLogger)
		quota = cache.NewSubmissionQuota(apiLimiter, time.Second)
	}

	agentRegistry, err := agents.DefaultRegistry(zapLogger)
	if err != nil {
		return err
	}

	coord := coordinator.NewService(coordinator.Config{
		CallTimeout:      cfg.Investigation.AgentTimeout,
		MaxAttempts:      cfg.Investigation.MaxAttempts,
		InitialBackoff:   100 * time.Millisecond,
		MaxBackoff:       2 * time.Second,
		FailureThreshold: cfg.Investigation.FailureThreshold,
		BreakerCooldown:  cfg.Investigation.BreakerCooldown,
	}, registry, zapLogger)

	limits := queryvalidator.DefaultLimits()
	limits.MaxEntities = cfg.Investigation.MaxEntities
	limits.MaxNestingDepth = cfg.Investigation.MaxNestingDepth
	limits.MaxExpressionLength = cfg.Investigation.MaxExpressionLength
	limits.CacheEntityThreshold = cfg.Investigation.CacheThreshold

	consolidationCfg := consolidation.DefaultConfig()
	consolidationCfg.PropagationThreshold = cfg.Investigation.PropagationThreshold
	consolidationCfg.MaxFindings = cfg.Investigation.MaxFindings

	svc := engine.NewService(
		engine.Config{
			InvestigationTimeout: cfg.Investigation.InvestigationTimeout,
			ValidationCacheTTL:   cfg.Investigation.ValidationCacheTTL,
		},
		repo,
		queryvalidator.NewService(limits),
		orchestration.NewEngine(agents.NewStaticHealth(), zapLogger),
		executionpool.NewPool(executionpool.Config{Workers: cfg.Investigation.PoolSize}, agentRegistry, coord, zapLogger),
		coord,
		consolidation.NewService(consolidationCfg, zapLogger),
		validationCache,
		quota,
		registry,
		zapLogger,
	)

	server := rest.NewServer(cfg, svc, registry, apiLimiter, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// Let in-flight investigations reach a terminal phase
	svc.Wait()
	return nil
}
