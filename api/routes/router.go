package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/branchpay/checkout-backend/api/controllers"
	branchcontrollers "github.com/branchpay/checkout-backend/api/controllers/branches"
	"github.com/branchpay/checkout-backend/api/middleware"
	"github.com/branchpay/checkout-backend/internal/catalog"
	checkoutsvc "github.com/branchpay/checkout-backend/internal/checkout"
	"github.com/branchpay/checkout-backend/internal/connect"
	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/redis"
)

// Services groups the domain services mounted on the router.
type Services struct {
	Catalog  catalog.Service
	Checkout checkoutsvc.Service
	Connect  connect.Service
	Branches middleware.BranchLoader
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Checkout.CORSAllowedOrigins),
	)

	intentPolicy := middleware.NewRateLimitPolicy(
		"payment_intent",
		cfg.Checkout.RateLimitWindow,
		cfg.Checkout.RateLimitPerIP,
		cfg.Checkout.RateLimitPerEmail,
	)

	var cache controllers.Pinger
	var intentGuards []func(http.Handler) http.Handler
	if redisClient != nil {
		cache = redisClient
		intentGuards = append(intentGuards,
			middleware.RateLimit(intentPolicy, redisClient, logg),
			middleware.Idempotency(redisClient, cfg.Checkout.IdempotencyTTL, logg),
		)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, cache))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public/gateways/{slug}", func(r chi.Router) {
		r.Get("/", controllers.GatewayStorefront(svcs.Catalog, logg))
		r.With(intentGuards...).Post("/payment-intent", controllers.GatewayPaymentIntent(svcs.Checkout, logg))
		r.Post("/confirm", controllers.GatewayConfirm(svcs.Checkout, logg))
	})

	r.Route("/api/v1/branches/{id}", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.BranchAccess(svcs.Branches, logg))

		r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleManager)).
			Post("/gateway", branchcontrollers.GatewayCreate(svcs.Catalog, logg))

		r.Route("/stripe", func(r chi.Router) {
			r.Post("/onboarding", branchcontrollers.StripeOnboarding(svcs.Connect, logg))
			r.Get("/status", branchcontrollers.StripeStatus(svcs.Connect, logg))
			r.Get("/dashboard", branchcontrollers.StripeDashboard(svcs.Connect, logg))
			r.Post("/sync", branchcontrollers.StripeSync(svcs.Connect, logg))
			r.With(middleware.RequireRole(logg, enums.UserRoleAdmin)).
				Post("/reset", branchcontrollers.StripeReset(svcs.Connect, logg))
		})
	})

	return r
}
