// Package commerce assembles the store backend into an embeddable App:
// config, connection pools, cache, token engine, domain services, and the
// HTTP router, with functional options so tests and embedders can swap
// parts. cmd/server is a thin wrapper around this package.
package commerce

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lggm33/DUAD/internal/addresses"
	"github.com/lggm33/DUAD/internal/archive"
	"github.com/lggm33/DUAD/internal/auth"
	"github.com/lggm33/DUAD/internal/cache"
	"github.com/lggm33/DUAD/internal/carts"
	"github.com/lggm33/DUAD/internal/checkout"
	"github.com/lggm33/DUAD/internal/circuitbreaker"
	"github.com/lggm33/DUAD/internal/config"
	"github.com/lggm33/DUAD/internal/dbpool"
	"github.com/lggm33/DUAD/internal/httpserver"
	"github.com/lggm33/DUAD/internal/idempotency"
	"github.com/lggm33/DUAD/internal/invoices"
	"github.com/lggm33/DUAD/internal/lifecycle"
	"github.com/lggm33/DUAD/internal/logger"
	"github.com/lggm33/DUAD/internal/metrics"
	"github.com/lggm33/DUAD/internal/monitoring"
	"github.com/lggm33/DUAD/internal/observability"
	"github.com/lggm33/DUAD/internal/products"
	"github.com/lggm33/DUAD/internal/revocation"
	"github.com/lggm33/DUAD/internal/sales"
	"github.com/lggm33/DUAD/internal/storage"
	"github.com/lggm33/DUAD/internal/token"
	"github.com/lggm33/DUAD/internal/users"
)

// App wires the commerce components for standalone serving or embedding.
type App struct {
	Config    *config.Config
	Users     *users.Service
	Addresses *addresses.Service
	Products  *products.Service
	Carts     *carts.Service
	Sales     *sales.Service
	Invoices  *invoices.Service
	Checkout  *checkout.Service

	// Archiver and Monitor are nil unless enabled in config.
	Archiver *archive.Archiver
	Monitor  *monitoring.StockMonitor

	IdempotencyStore *idempotency.MemoryStore

	router           chi.Router
	server           *httpserver.Server
	resourceManager  *lifecycle.Manager
	metricsCollector *metrics.Metrics
	logger           zerolog.Logger
}

// Option configures App construction.
type Option func(*options)

type options struct {
	router     chi.Router
	registerer prometheus.Registerer
	cacheStore cache.Store
	engine     token.Engine
	logger     *zerolog.Logger
}

// WithRouter registers routes onto an existing chi.Router instead of a
// fresh one. An App built this way has no inner HTTP server; the caller
// serves the router.
func WithRouter(router chi.Router) Option {
	return func(o *options) {
		o.router = router
	}
}

// WithRegisterer sets the Prometheus registry used for metrics. Tests pass
// prometheus.NewRegistry() to avoid duplicate registration panics.
func WithRegisterer(registerer prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = registerer
	}
}

// WithCacheStore injects a custom cache backend, bypassing the Redis setup.
func WithCacheStore(store cache.Store) Option {
	return func(o *options) {
		o.cacheStore = store
	}
}

// WithTokenEngine injects a custom token engine, bypassing the JWT config.
func WithTokenEngine(engine token.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithLogger uses the given logger instead of building one from config.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// NewApp assembles the commerce services. The returned App owns every
// resource it opened; Close releases them in reverse order.
func NewApp(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("commerce: config required")
	}

	optState := options{}
	for _, opt := range opts {
		opt(&optState)
	}

	appLogger := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Service:     "commerce-api",
		Environment: cfg.Logging.Environment,
	})
	if optState.logger != nil {
		appLogger = *optState.logger
	}

	app := &App{
		Config:          cfg,
		resourceManager: lifecycle.NewManager(),
		logger:          appLogger,
	}

	// Anything registered before a failure gets released on the way out.
	assembled := false
	defer func() {
		if !assembled {
			_ = app.resourceManager.Close()
		}
	}()

	registerer := optState.registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	metricsCollector := metrics.New(registerer)
	app.metricsCollector = metricsCollector

	breaker := circuitbreaker.NewManagerFromConfig(cfg.CircuitBreaker, appLogger)

	pool, err := dbpool.NewSharedPool(cfg.Database.URL, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}
	app.resourceManager.Register("postgres-pool", pool)

	pg, err := storage.New(pool.DB(), cfg.Database.QueryTimeout.Duration)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.resourceManager.RegisterFunc("redis-client", redisClient.Close)
	}

	var cacheStore cache.Store
	switch {
	case optState.cacheStore != nil:
		cacheStore = optState.cacheStore
	case redisClient != nil:
		cacheStore = cache.NewBreakered(cache.NewRedis(redisClient, metricsCollector), breaker)
	default:
		cacheStore = cache.NewMemory()
		appLogger.Warn().
			Msg("commerce: cache disabled, using in-process memory store")
	}

	hooks := observability.NewRegistry(appLogger)
	promHook := observability.NewPrometheusHook(metricsCollector)
	logHook := observability.NewLoggingHook(appLogger)
	hooks.RegisterAuthHook(promHook)
	hooks.RegisterAuthHook(logHook)
	hooks.RegisterCheckoutHook(promHook)
	hooks.RegisterCheckoutHook(logHook)
	hooks.RegisterCacheHook(promHook)
	hooks.RegisterCacheHook(logHook)
	hooks.RegisterStockHook(promHook)
	hooks.RegisterStockHook(logHook)

	engine := optState.engine
	if engine == nil {
		switch cfg.JWT.Algorithm {
		case "HS256":
			engine, err = token.NewHS256(cfg.JWT.Secret, cfg.JWT.AccessTTL.Duration, cfg.JWT.RefreshTTL.Duration)
		default:
			engine, err = token.NewRS256([]byte(cfg.JWT.PrivateKey), []byte(cfg.JWT.PublicKey), cfg.JWT.AccessTTL.Duration, cfg.JWT.RefreshTTL.Duration)
		}
		if err != nil {
			return nil, err
		}
	}

	var revocations revocation.Store
	if redisClient != nil {
		revocations = revocation.NewRedisStore(redisClient)
	} else {
		memRevocations := revocation.NewMemoryStore()
		app.resourceManager.RegisterFunc("revocation-store", func() error {
			memRevocations.Stop()
			return nil
		})
		revocations = memRevocations
	}

	userRepo := users.NewPostgresRepository(pg, metricsCollector)
	addressRepo := addresses.NewPostgresRepository(pg, metricsCollector)
	productRepo := products.NewPostgresRepository(pg, metricsCollector)
	cartRepo := carts.NewPostgresRepository(pg, metricsCollector)
	saleRepo := sales.NewPostgresRepository(pg, metricsCollector)
	invoiceRepo := invoices.NewPostgresRepository(pg, metricsCollector)

	catalog := products.NewCachedRepository(productRepo, cacheStore, hooks,
		cfg.Cache.ProductListTTL.Duration, cfg.Cache.ProductTTL.Duration)

	app.Users = users.NewService(userRepo, engine, revocations, hooks)
	app.Addresses = addresses.NewService(addressRepo, userRepo, cacheStore, hooks, cfg.Cache.AddressesTTL.Duration)
	app.Products = products.NewService(catalog)
	app.Carts = carts.NewService(cartRepo, catalog, cacheStore, hooks, cfg.Cache.CartTotalTTL.Duration)
	app.Sales = sales.NewService(saleRepo, catalog, cacheStore, hooks, cfg.Cache.AdminReportTTL.Duration)
	app.Invoices = invoices.NewService(invoiceRepo, saleRepo, addressRepo, userRepo, catalog, cacheStore, hooks, cfg.Cache.AdminReportTTL.Duration)

	checkoutStore := checkout.NewPostgresStore(pg, cartRepo, productRepo, saleRepo)
	app.Checkout = checkout.NewService(checkoutStore, app.Carts, app.Addresses, app.Sales, app.Invoices, catalog, cacheStore, hooks)

	if cfg.Archive.Enabled {
		sink, err := archive.NewMongoSink(cfg.Archive)
		if err != nil {
			return nil, err
		}
		app.Archiver = archive.New(sink, app.Sales, breaker, appLogger, 0)
		hooks.RegisterCheckoutHook(app.Archiver)
		app.resourceManager.RegisterFunc("sale-archive", app.Archiver.Close)
	}

	if cfg.Monitor.Enabled {
		// The monitor reads stock through the uncached repository so alert
		// decisions never lag behind a checkout.
		app.Monitor = monitoring.NewStockMonitor(cfg.Monitor, productRepo, app.Carts, hooks, metricsCollector, breaker)
		app.Monitor.Start(context.Background())
		app.resourceManager.RegisterFunc("stock-monitor", func() error {
			app.Monitor.Stop()
			return nil
		})
	}

	app.IdempotencyStore = idempotency.NewMemoryStore()
	app.resourceManager.RegisterFunc("idempotency-store", func() error {
		app.IdempotencyStore.Stop()
		return nil
	})

	authn := auth.NewAuthenticator(engine, revocations, metricsCollector)

	probes := httpserver.HealthProbes{
		Database: func(ctx context.Context) error {
			return pool.DB().PingContext(ctx)
		},
	}
	if redisClient != nil {
		probes.Cache = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	svcs := httpserver.Services{
		Users:     app.Users,
		Addresses: app.Addresses,
		Products:  app.Products,
		Carts:     app.Carts,
		Checkout:  app.Checkout,
		Sales:     app.Sales,
		Invoices:  app.Invoices,
	}

	if optState.router != nil {
		app.router = optState.router
		httpserver.ConfigureRouter(app.router, cfg, svcs, authn, app.IdempotencyStore, metricsCollector, probes, appLogger)
	} else {
		app.server = httpserver.New(cfg, svcs, authn, app.IdempotencyStore, metricsCollector, probes, appLogger)
		app.router = app.server.Router()
	}

	assembled = true
	return app, nil
}

// Router returns the chi router with commerce routes registered.
func (a *App) Router() chi.Router {
	return a.router
}

// Handler exposes the router as an http.Handler.
func (a *App) Handler() http.Handler {
	return a.router
}

// ListenAndServe starts the inner HTTP server. Apps built with WithRouter
// have none; their caller owns the listener.
func (a *App) ListenAndServe() error {
	if a.server == nil {
		return errors.New("commerce: app was built with WithRouter, serve the router yourself")
	}
	return a.server.ListenAndServe()
}

// Shutdown stops accepting requests and drains in-flight ones.
func (a *App) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Close releases resources owned by the app (pools, workers, archive).
func (a *App) Close() error {
	return a.resourceManager.Close()
}

// NewHandler is a convenience that constructs an App and returns its handler.
func NewHandler(cfg *config.Config, opts ...Option) (http.Handler, func(context.Context) error, error) {
	app, err := NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	shutdown := func(context.Context) error {
		return app.Close()
	}
	return app.Handler(), shutdown, nil
}

// Config is an exported alias of the internal configuration struct for
// embedding use.
type Config = config.Config

// LoadConfig wraps the internal loader for consumers embedding the backend.
func LoadConfig(path string) (*config.Config, error) {
	return config.Load(path)
}
