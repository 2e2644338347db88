package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/branchpay/checkout-backend/api/routes"
	"github.com/branchpay/checkout-backend/internal/branches"
	"github.com/branchpay/checkout-backend/internal/capability"
	"github.com/branchpay/checkout-backend/internal/catalog"
	"github.com/branchpay/checkout-backend/internal/checkout"
	"github.com/branchpay/checkout-backend/internal/connect"
	"github.com/branchpay/checkout-backend/internal/orders"
	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/db"
	"github.com/branchpay/checkout-backend/pkg/env"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/metrics"
	"github.com/branchpay/checkout-backend/pkg/migrate"
	"github.com/branchpay/checkout-backend/pkg/redis"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, checkoutMetrics, logg)
	if err != nil {
		return err
	}

	branchRepo := branches.NewRepository(dbClient.DB())
	gate, err := capability.NewGate(branchRepo, redisClient, cfg.Checkout.CapabilityCacheTTL, logg)
	if err != nil {
		return err
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(dbClient.DB()), gate)
	if err != nil {
		return err
	}

	ledger, err := orders.NewService(orders.NewRepository(dbClient.DB()), cfg.Checkout.OrderNumberAttempts, logg)
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(
		catalogSvc,
		ledger,
		stripe.NewPayments(stripeClient),
		checkoutMetrics,
		cfg.Checkout.Currency,
		logg,
	)
	if err != nil {
		return err
	}

	connectSvc, err := connect.NewService(stripe.NewAccounts(stripeClient), branchRepo, gate, logg)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := env.Get("DYNO", "local")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   id,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Catalog:  catalogSvc,
			Checkout: checkoutSvc,
			Connect:  connectSvc,
			Branches: branchRepo,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
