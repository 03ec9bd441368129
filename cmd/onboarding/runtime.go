package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/boddenberg/sms-onboarding-bfa/internal/config"
	"github.com/boddenberg/sms-onboarding-bfa/internal/domain"
	"github.com/boddenberg/sms-onboarding-bfa/internal/handler"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/cache"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/client"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/observability"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/resilience"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/sqlite"
	"github.com/boddenberg/sms-onboarding-bfa/internal/infra/supabase"
	"github.com/boddenberg/sms-onboarding-bfa/internal/port"
	"github.com/boddenberg/sms-onboarding-bfa/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime holds the wired dependencies shared by every command.
type runtime struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *observability.Metrics
	store   port.Store
	cache   *cache.InMemory[*domain.OnboardingStatus]

	reconciler *service.Reconciler
	onboarding *service.OnboardingService
	registry   *service.RegistryService
	admin      *service.AdminService

	closers []func(context.Context) error
}

// loadConfig reads the dotenv file named by --env-file, then the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		// A missing file is normal outside local development.
		_ = config.LoadDotEnv(envFile)
	}
	return config.Load()
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("skip_registry_verification", cfg.SkipRegistryVerification),
		zap.Duration("repair_grace_period", cfg.RepairGracePeriod),
	)

	rt := &runtime{cfg: cfg, logger: logger}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "sms-onboarding-bfa")
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	rt.closers = append(rt.closers, shutdown)

	// --- Metrics ---
	rt.metrics = observability.NewMetrics()

	// --- Cache ---
	rt.cache = cache.New[*domain.OnboardingStatus](cfg.CacheTTL)
	rt.closers = append(rt.closers, func(context.Context) error {
		rt.cache.Close()
		return nil
	})

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store ---
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Info("using SQLite as data backend", zap.String("path", cfg.SQLitePath))
		rt.store = store
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
	default:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		rt.store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			resilienceCfg,
			logger,
		)
	}

	// --- Registry client ---
	registryClient := client.NewRegistryClient(
		httpClient,
		cfg.RegistryURL,
		cfg.RegistryAPIKey,
		cfg.RegistryAPISecret,
		resilience.NewCircuitBreaker("registry", logger),
		rt.metrics,
		logger,
	)
	if cfg.SkipRegistryVerification {
		logger.Warn("registry verification disabled, onboarding completes without registry approval")
	}

	// --- Services ---
	rt.reconciler = service.NewReconciler(rt.store, rt.metrics, logger, cfg.RepairGracePeriod)
	rt.onboarding = service.NewOnboardingService(rt.store, registryClient, rt.cache, rt.metrics, logger, cfg.SkipRegistryVerification)
	rt.registry = service.NewRegistryService(rt.store, registryClient, rt.cache, rt.metrics, logger)
	rt.admin = service.NewAdminService(rt.store, registryClient, rt.cache, rt.metrics, logger, cfg.MaxConcurrency)

	return rt, nil
}

// router builds the HTTP API over the wired services.
func (rt *runtime) router() http.Handler {
	return handler.NewRouter(handler.Services{
		Store:         rt.store,
		Reconciler:    rt.reconciler,
		Onboarding:    rt.onboarding,
		Registry:      rt.registry,
		Admin:         rt.admin,
		Verifier:      handler.NewTokenVerifier(rt.cfg.AuthJWTSecret),
		WebhookSecret: rt.cfg.StripeWebhookSecret,
	}, rt.metrics, rt.logger)
}

// close releases resources in reverse order of acquisition.
func (rt *runtime) close(ctx context.Context) {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			rt.logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
