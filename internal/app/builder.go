package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gdgc-dbit/leaderboard-sync/internal/api"
	"github.com/gdgc-dbit/leaderboard-sync/internal/app/storage"
	"github.com/gdgc-dbit/leaderboard-sync/internal/config"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service"
	"github.com/gdgc-dbit/leaderboard-sync/internal/service/inmemory"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sources"
	pkgsync "github.com/gdgc-dbit/leaderboard-sync/internal/sync"
	"github.com/gdgc-dbit/leaderboard-sync/internal/sync/coordinator"
	"github.com/gdgc-dbit/leaderboard-sync/internal/telemetry"
)

const (
	defaultHTTPAddress     = ":8080"
	defaultRequestTimeout  = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	syncTracerName = "github.com/gdgc-dbit/leaderboard-sync/sync"
)

// LeaderboardAppOptions is a function that configures the leaderboard app builder
type LeaderboardAppOptions func(*leaderboardAppConfig) error

// leaderboardAppConfig collects everything needed to build a LeaderboardApp.
// It supports dependency injection for testing while providing sensible defaults for production
type leaderboardAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	sourceHandlerFactory sources.SourceHandlerFactory
	syncManager          pkgsync.Manager
	storageFactory       storage.Factory

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	idleTimeout    time.Duration

	// Admin trigger
	adminToken    string
	adminTokenSet bool

	// Telemetry components
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	metricsHandler http.Handler
}

func baseConfig(opts ...LeaderboardAppOptions) (*leaderboardAppConfig, error) {
	cfg := &leaderboardAppConfig{
		address:        defaultHTTPAddress,
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		writeTimeout:   defaultWriteTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// NewLeaderboardApp builds the application from the given options
func NewLeaderboardApp(
	ctx context.Context,
	opts ...LeaderboardAppOptions,
) (*LeaderboardApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}
	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// The storage factory is the single decision point for file, SQLite or database
	if cfg.storageFactory == nil {
		cfg.storageFactory, err = storage.NewStorageFactory(ctx, cfg.config)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage factory: %w", err)
		}
	}

	// Ensure cleanup happens on error
	var cleanupNeeded = true
	defer func() {
		if cleanupNeeded && cfg.storageFactory != nil {
			cfg.storageFactory.Cleanup()
		}
	}()

	syncCoordinator, err := buildSyncComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	leaderboardService, err := buildServiceComponents(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build service components: %w", err)
	}

	if !cfg.adminTokenSet {
		cfg.adminToken, err = cfg.config.GetAdminToken()
		if err != nil {
			return nil, fmt.Errorf("failed to read admin token: %w", err)
		}
	}
	if cfg.adminToken == "" {
		slog.Warn("No admin token configured, the HTTP reconcile trigger is disabled")
	}

	httpServer, err := buildHTTPServer(ctx, cfg, leaderboardService, syncCoordinator)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	appCtx, cancel := context.WithCancel(ctx)

	// Cleanup is now handled by the app, not in defer
	cleanupNeeded = false

	storageFactory := cfg.storageFactory
	cancelFunc := func() {
		storageFactory.Cleanup()
		cancel()
	}

	return &LeaderboardApp{
		config: cfg.config,
		components: &AppComponents{
			SyncCoordinator:    syncCoordinator,
			LeaderboardService: leaderboardService,
			StorageFactory:     storageFactory,
		},
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancelFunc,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address
func WithAddress(addr string) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout applied by the default middlewares
func WithRequestTimeout(timeout time.Duration) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("request timeout must be positive")
		}
		cfg.requestTimeout = timeout
		return nil
	}
}

// WithAdminToken overrides the admin token from the configuration
func WithAdminToken(token string) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.adminToken = token
		cfg.adminTokenSet = true
		return nil
	}
}

// WithSourceHandlerFactory allows injecting a custom source handler factory (for testing)
func WithSourceHandlerFactory(f sources.SourceHandlerFactory) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.sourceHandlerFactory = f
		return nil
	}
}

// WithStorageFactory allows injecting a custom storage factory (for testing)
func WithStorageFactory(f storage.Factory) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.storageFactory = f
		return nil
	}
}

// WithSyncManager allows injecting a custom sync manager (for testing)
func WithSyncManager(sm pkgsync.Manager) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.syncManager = sm
		return nil
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider for run and HTTP metrics
func WithMeterProvider(mp metric.MeterProvider) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.meterProvider = mp
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for runs, reads and requests
func WithTracerProvider(tp trace.TracerProvider) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.tracerProvider = tp
		return nil
	}
}

// WithMetricsHandler mounts a scrape handler on /metrics
func WithMetricsHandler(h http.Handler) LeaderboardAppOptions {
	return func(cfg *leaderboardAppConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// buildSyncComponents builds the sync manager and the coordinator
func buildSyncComponents(
	ctx context.Context,
	b *leaderboardAppConfig,
) (coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	if b.sourceHandlerFactory == nil {
		b.sourceHandlerFactory = sources.NewSourceHandlerFactory()
	}

	statusPersistence, err := b.storageFactory.CreateStatusPersistence(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create status persistence: %w", err)
	}

	if b.syncManager == nil {
		store, err := b.storageFactory.CreateStore(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create store: %w", err)
		}

		var managerOpts []pkgsync.ManagerOption
		if b.tracerProvider != nil {
			managerOpts = append(managerOpts, pkgsync.WithTracer(b.tracerProvider.Tracer(syncTracerName)))
		}
		b.syncManager = pkgsync.NewDefaultSyncManager(b.config, b.sourceHandlerFactory, store, managerOpts...)
	}

	var coordOpts []coordinator.Option
	if b.meterProvider != nil {
		syncMetrics, err := telemetry.NewSyncMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create sync metrics: %w", err)
		}
		if syncMetrics != nil {
			coordOpts = append(coordOpts, coordinator.WithSyncMetrics(syncMetrics))
			slog.Info("Sync metrics enabled")
		}

		leaderboardMetrics, err := telemetry.NewLeaderboardMetrics(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create leaderboard metrics: %w", err)
		}
		if leaderboardMetrics != nil {
			coordOpts = append(coordOpts, coordinator.WithLeaderboardMetrics(leaderboardMetrics))
			slog.Info("Leaderboard metrics enabled")
		}
	}

	syncCoordinator := coordinator.New(b.syncManager, statusPersistence, b.config, coordOpts...)
	slog.Info("Sync components initialized successfully")

	return syncCoordinator, nil
}

// buildServiceComponents builds the read service over the shared store
func buildServiceComponents(
	ctx context.Context,
	b *leaderboardAppConfig,
) (service.LeaderboardService, error) {
	slog.Info("Initializing service components")

	var svcOpts []inmemory.Option
	if b.tracerProvider != nil {
		svcOpts = append(svcOpts, inmemory.WithTracer(b.tracerProvider.Tracer(inmemory.ServiceTracerName)))
	}

	svc, err := b.storageFactory.CreateLeaderboardService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create leaderboard service: %w", err)
	}

	slog.Info("Service components initialized successfully")
	return svc, nil
}

// buildHTTPServer builds the HTTP server with router and middleware
//
//nolint:unparam // we prefer having a similar interface
func buildHTTPServer(
	_ context.Context,
	b *leaderboardAppConfig,
	svc service.LeaderboardService,
	reconciler api.Reconciler,
) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	middlewares := b.middlewares
	if middlewares == nil {
		middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(b.requestTimeout),
			api.LoggingMiddleware,
		}
	}

	// Tracing sits right after metrics
	if b.tracerProvider != nil {
		middlewares = append([]func(http.Handler) http.Handler{telemetry.TracingMiddleware(b.tracerProvider)}, middlewares...)
		slog.Info("HTTP tracing middleware enabled")
	}

	// Metrics go first to capture all requests, including rejected ones
	if b.meterProvider != nil {
		metricsMiddleware, err := telemetry.MetricsMiddleware(b.meterProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
		}
		if metricsMiddleware != nil {
			middlewares = append([]func(http.Handler) http.Handler{metricsMiddleware}, middlewares...)
			slog.Info("HTTP metrics middleware enabled")
		}
	}

	serverOpts := []api.ServerOption{
		api.WithMiddlewares(middlewares...),
		api.WithAdminToken(b.adminToken),
	}
	if reconciler != nil {
		serverOpts = append(serverOpts, api.WithReconciler(reconciler))
	}
	if b.metricsHandler != nil {
		serverOpts = append(serverOpts, api.WithMetricsHandler(b.metricsHandler))
	}
	router := api.NewServer(svc, serverOpts...)

	server := &http.Server{
		Addr:         b.address,
		Handler:      router,
		ReadTimeout:  b.readTimeout,
		WriteTimeout: b.writeTimeout,
		IdleTimeout:  b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
