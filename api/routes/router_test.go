package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/internal/catalog"
	checkoutsvc "github.com/branchpay/checkout-backend/internal/checkout"
	"github.com/branchpay/checkout-backend/internal/connect"
	pkgAuth "github.com/branchpay/checkout-backend/pkg/auth"
	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/metrics"
	"github.com/branchpay/checkout-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCatalog struct{}

func (stubCatalog) Storefront(ctx context.Context, slug string) (*catalog.GatewayView, error) {
	return &catalog.GatewayView{Gateway: catalog.GatewayBranding{Slug: slug, BusinessName: "Acme"}}, nil
}

func (stubCatalog) ResolveGateway(ctx context.Context, slug string) (*models.PaymentGateway, error) {
	return &models.PaymentGateway{Slug: slug}, nil
}

func (stubCatalog) ValidateLineItems(ctx context.Context, gateway *models.PaymentGateway, items []catalog.RequestedItem) (*catalog.ValidatedItems, error) {
	return &catalog.ValidatedItems{}, nil
}

func (stubCatalog) CreateGateway(ctx context.Context, branch *models.Branch, input catalog.CreateGatewayInput) (*models.PaymentGateway, error) {
	return &models.PaymentGateway{ID: 1, BranchID: branch.ID, Slug: "acme", Branch: branch}, nil
}

type stubCheckout struct{}

func (stubCheckout) CreatePaymentIntent(ctx context.Context, slug string, input checkoutsvc.PaymentIntentInput) (*checkoutsvc.PaymentIntentResult, error) {
	return &checkoutsvc.PaymentIntentResult{ClientSecret: "pi_1_secret", OrderID: 1, OrderNumber: "ORD-00000001"}, nil
}

func (stubCheckout) ConfirmOrder(ctx context.Context, slug string, input checkoutsvc.ConfirmInput) (*checkoutsvc.Confirmation, error) {
	return &checkoutsvc.Confirmation{Message: "Order confirmed successfully"}, nil
}

type stubConnect struct{}

func (stubConnect) GenerateOnboardingURL(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*connect.OnboardingLink, error) {
	return &connect.OnboardingLink{URL: "https://connect.example/onboard", Status: enums.OnboardingStatusPending}, nil
}

func (stubConnect) Status(ctx context.Context, branch *models.Branch) (*connect.AccountStatus, error) {
	return &connect.AccountStatus{}, nil
}

func (stubConnect) DashboardURL(ctx context.Context, branch *models.Branch) (*connect.DashboardLink, error) {
	return &connect.DashboardLink{URL: "https://connect.example/dashboard"}, nil
}

func (stubConnect) ResetAccount(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*connect.OnboardingLink, error) {
	return &connect.OnboardingLink{URL: "https://connect.example/onboard", Status: enums.OnboardingStatusReset}, nil
}

func (stubConnect) SyncAccount(ctx context.Context, branch *models.Branch) (*connect.AccountStatus, error) {
	return &connect.AccountStatus{}, nil
}

type stubBranches map[int64]*models.Branch

func (s stubBranches) FindByID(ctx context.Context, id int64) (*models.Branch, error) {
	if b, ok := s[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "branchpay", ExpirationMinutes: 5},
		Checkout: config.CheckoutConfig{
			RateLimitWindow:    time.Minute,
			RateLimitPerIP:     10,
			RateLimitPerEmail:  5,
			CORSAllowedOrigins: []string{"https://shop.example.com"},
		},
	}
}

func newTestRouter(cfg *config.Config, gatherer prometheus.Gatherer) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		gatherer,
		Services{
			Catalog:  stubCatalog{},
			Checkout: stubCheckout{},
			Connect:  stubConnect{},
			Branches: stubBranches{
				5: {ID: 5, CompanyID: 2, Name: "Downtown"},
				6: {ID: 6, CompanyID: 3, Name: "Uptown"},
			},
		},
	)
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole, companyID int64) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:    1,
		CompanyID: companyID,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg).IncIntent(metrics.OutcomeSuccess)

	router := newTestRouter(testConfig(), reg)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `checkout_intents_total{outcome="success"} 1`) {
		t.Fatalf("expected intent counter in %s", resp.Body.String())
	}
}

func TestPublicGatewayRoutesAreUnauthenticated(t *testing.T) {
	router := newTestRouter(testConfig(), nil)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/public/gateways/acme", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("storefront: expected 200 got %d", resp.Code)
	}

	body := `{"items":[{"type":"product","id":1,"quantity":1}],"customer_email":"a@example.com","customer_name":"A"}`
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/public/gateways/acme/payment-intent", strings.NewReader(body)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("payment-intent: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/public/gateways/acme/confirm", strings.NewReader(`{"order_id":1,"payment_intent_id":"pi_1"}`)))
	if resp.Code != http.StatusOK {
		t.Fatalf("confirm: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBranchRoutesRequireJWT(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/branches/5/stripe/status", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestBranchRoutesScopeToCompany(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	cases := []struct {
		path   string
		status int
	}{
		{"/api/v1/branches/5/stripe/status", http.StatusOK},
		{"/api/v1/branches/6/stripe/status", http.StatusNotFound},
		{"/api/v1/branches/99/stripe/status", http.StatusNotFound},
		{"/api/v1/branches/abc/stripe/status", http.StatusBadRequest},
		{"/api/v1/branches/5/stripe/dashboard", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff, 2))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.path, tc.status, resp.Code)
		}
	}
}

func TestStripeResetRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)
	body := `{"returnURL":"https://app.example.com/r","refreshURL":"https://app.example.com/f","confirm":true}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/branches/5/stripe/reset", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleManager, 2))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("manager: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/branches/5/stripe/reset", strings.NewReader(body))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin, 2))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("admin: expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGatewayCreateRequiresManager(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/branches/5/gateway", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleStaff, 2))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("staff: expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/branches/5/gateway", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleManager, 2))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("manager: expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/public/gateways/acme/payment-intent", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
