package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/branchpay/checkout-backend/internal/branches"
	"github.com/branchpay/checkout-backend/internal/capability"
	"github.com/branchpay/checkout-backend/internal/connect"
	"github.com/branchpay/checkout-backend/internal/cron"
	"github.com/branchpay/checkout-backend/internal/orders"
	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/db"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/metrics"
	"github.com/branchpay/checkout-backend/pkg/migrate"
	"github.com/branchpay/checkout-backend/pkg/redis"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

const lockKeyFormat = "bp:maintenance:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(context.Background(), "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "maintenance worker shutting down gracefully")
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
	jobMetrics := metrics.NewJobMetrics(registry)
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, metrics.NewCheckoutMetrics(registry), logg)
	if err != nil {
		return err
	}

	branchRepo := branches.NewRepository(dbClient.DB())
	gate, err := capability.NewGate(branchRepo, redisClient, cfg.Checkout.CapabilityCacheTTL, logg)
	if err != nil {
		return err
	}
	connectSvc, err := connect.NewService(stripe.NewAccounts(stripeClient), branchRepo, gate, logg)
	if err != nil {
		return err
	}

	orderRepo := orders.NewRepository(dbClient.DB())
	ledger, err := orders.NewService(orderRepo, cfg.Checkout.OrderNumberAttempts, logg)
	if err != nil {
		return err
	}

	staleOrders, err := cron.NewStaleOrdersJob(cron.StaleOrdersJobParams{
		Logger: logg,
		Orders: orderRepo,
		Ledger: ledger,
		MaxAge: cfg.Maintenance.StaleOrderAge,
		Limit:  cfg.Maintenance.StaleOrderBatch,
	})
	if err != nil {
		return err
	}
	accountSync, err := cron.NewAccountSyncJob(cron.AccountSyncJobParams{
		Logger:    logg,
		Branches:  branchRepo,
		Accounts:  connectSvc,
		Staleness: cfg.Maintenance.AccountSyncAge,
		Limit:     cfg.Maintenance.AccountSyncBatch,
	})
	if err != nil {
		return err
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Maintenance.LockTTL)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(staleOrders, accountSync),
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Maintenance.Interval,
	})
	if err != nil {
		return err
	}

	metricsServer := serveMetrics(ctx, cfg, logg, registry)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = multierr.Append(err, metricsServer.Shutdown(shutdownCtx))
	}()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"interval":   cfg.Maintenance.Interval.String(),
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting maintenance worker")
	return service.Run(ctx)
}

// serveMetrics exposes the job registry for scraping on the app port.
func serveMetrics(ctx context.Context, cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry) *http.Server {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	return server
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
