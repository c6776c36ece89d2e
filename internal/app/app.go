// Package app wires the storefront API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/cache"
	"github.com/xenking/storefront/internal/domain/catalog"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promotion"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storage/postgres"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.Register(health.Readiness, "postgres", health.PingCheck(pool), health.Options{Timeout: 5 * time.Second})
	healthSvc.Register(health.Liveness, "goroutines", health.GoroutineCountCheck(cfg.Health.MaxGoroutines), health.Options{})

	var (
		products   product.Repository   = postgres.NewProductRepository(pool)
		promotions promotion.Repository = postgres.NewPromotionRepository(pool)
		orders                          = postgres.NewOrderRepository(pool)
		limiter    httpmiddleware.Limiter
	)

	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "connect redis")
		}
		defer func() { _ = client.Close() }()

		snapshots := cache.NewRedisCache(client, cfg.Cache.TTL)
		healthSvc.Register(health.Readiness, "redis", health.PingCheck(snapshots), health.Options{Timeout: 2 * time.Second})

		products = cache.NewProductRepository(products, snapshots, cfg.Cache.TTL)
		promotions = cache.NewPromotionRepository(promotions, snapshots, cfg.Cache.TTL)
		limiter = cache.NewLimiter(client, "order", cfg.RateLimit.Orders, cfg.RateLimit.Window)
		lg.Info("Catalog cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	} else {
		limiter = httpmiddleware.NewWindowLimiter(cfg.RateLimit.Orders, cfg.RateLimit.Window)
		lg.Info("Redis not configured, serving catalog from PostgreSQL")
	}

	healthSvc.Start(ctx, cfg.Health.Interval)
	healthSvc.SetReady(true)

	resolver := promotion.NewResolver()
	catalogSvc := catalog.NewService(products, promotions,
		catalog.WithResolver(resolver),
		catalog.WithTracerProvider(m.TracerProvider()),
	)
	orderSvc := order.NewService(products, promotions, orders, resolver)

	h, err := handler.New(catalogSvc, orderSvc, m.MeterProvider().Meter("storefront"))
	if err != nil {
		return errors.Wrap(err, "create handler")
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: otelhttp.NewHandler(
			newRouter(zctx.From(ctx), h, healthSvc, limiter, cfg),
			"storefront-api",
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	}

	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newRouter mounts probes and the API behind the middleware chain. Order
// placement is additionally rate limited per client.
func newRouter(
	lg *zap.Logger,
	h *handler.Handler,
	hs *health.Health,
	limiter httpmiddleware.Limiter,
	cfg *Config,
) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /livez", hs.Handler(health.Liveness))
	mux.Handle("GET /readyz", hs.Handler(health.Readiness))
	h.Register(mux, httpmiddleware.Throttle(limiter, httpmiddleware.ClientIP))

	return httpmiddleware.Wrap(mux,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.LogRequests(),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins: cfg.CORS.Origins,
			MaxAge:       cfg.CORS.MaxAge,
		}),
	)
}
