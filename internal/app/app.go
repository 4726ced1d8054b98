package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-backoffice/internal/domain/cart"
	"github.com/xenking/kart-backoffice/internal/domain/order"
	"github.com/xenking/kart-backoffice/internal/domain/payment"
	"github.com/xenking/kart-backoffice/internal/gateway"
	"github.com/xenking/kart-backoffice/internal/handler"
	"github.com/xenking/kart-backoffice/internal/repository"
	"github.com/xenking/kart-backoffice/pkg/health"
	"github.com/xenking/kart-backoffice/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Payment.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newAPIHandler(ctx, lg, cfg, pool, healthSvc, m.TracerProvider(), m.MeterProvider()),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
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

// newAPIHandler assembles repositories, domain services and routes into the
// server handler.
func newAPIHandler(
	ctx context.Context,
	lg *zap.Logger,
	cfg *Config,
	pool *pgxpool.Pool,
	healthSvc *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	// Repositories.
	tx := repository.NewTxManager(pool)
	productRepo := repository.NewProductRepository(pool)
	cartRepo := repository.NewCartRepository(pool)

	// Domain services.
	cartService := cart.NewService(cartRepo, productRepo, tx)
	orderService := order.NewService(order.Deps{
		Carts:     cartRepo,
		Products:  productRepo,
		Shipping:  repository.NewShippingRepository(pool),
		Addresses: repository.NewAddressRepository(pool),
		Payments:  newGateway(lg, cfg.Payment),
		Orders:    repository.NewOrderRepository(pool),
		Statuses:  repository.NewStatusRepository(pool),
		Tx:        tx,
	},
		order.WithCurrency(cfg.Payment.Currency),
		order.WithTracerProvider(tp),
		order.WithMeterProvider(mp),
	)

	// HTTP handlers.
	h := handler.NewHandler(cartService, orderService)
	securityHandler := handler.NewSecurityHandler(
		repository.NewAPIKeyRepository(pool),
		[]byte(cfg.APIKeyPepper),
	)

	// Mux: health endpoints + API routes on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, securityHandler)

	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
			Max:     cfg.RateLimit.Max,
			Window:  cfg.RateLimit.Window,
			KeyFunc: httpmiddleware.ClientKey(handler.APIKeyHeader),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("kart-api", tp, mp),
		httpmiddleware.LogRequests(),
	)
}

// newGateway returns the HTTP payment gateway when a URL is configured and
// the sandbox otherwise.
func newGateway(lg *zap.Logger, cfg PaymentConfig) payment.Gateway {
	if cfg.URL == "" {
		lg.Warn("No payment gateway URL configured, using sandbox",
			zap.Int64("limit_minor", cfg.SandboxLimit),
		)
		return &gateway.Sandbox{Limit: cfg.SandboxLimit}
	}
	lg.Info("Using payment gateway", zap.String("url", cfg.URL))
	return gateway.NewClient(cfg.URL, cfg.Timeout)
}
