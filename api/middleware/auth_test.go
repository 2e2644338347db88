package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/auth"
	"github.com/branchpay/checkout-backend/pkg/config"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, role enums.UserRole, companyID int64) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:    11,
		CompanyID: companyID,
		Role:      role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthAllowsValidToken(t *testing.T) {
	token := mintTestToken(t, enums.UserRoleManager, 3)

	var captured struct {
		user    int64
		company int64
		role    enums.UserRole
	}
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.user = UserIDFromContext(r.Context())
		captured.company = CompanyIDFromContext(r.Context())
		captured.role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured.user != 11 || captured.company != 3 || captured.role != enums.UserRoleManager {
		t.Fatalf("unexpected identity %+v", captured)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), 1, 1, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithIdentity(req.Context(), 1, 1, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

type stubBranchLoader struct {
	branches map[int64]*models.Branch
}

func (s stubBranchLoader) FindByID(ctx context.Context, id int64) (*models.Branch, error) {
	if b, ok := s.branches[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func branchRequest(id string, companyID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/branches/"+id+"/stripe/status", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(WithIdentity(ctx, 1, companyID, enums.UserRoleManager))
}

func TestBranchAccess(t *testing.T) {
	loader := stubBranchLoader{branches: map[int64]*models.Branch{
		5: {ID: 5, CompanyID: 3, Name: "Downtown"},
	}}

	var resolved *models.Branch
	handler := BranchAccess(loader, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = BranchFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name    string
		id      string
		company int64
		want    int
	}{
		{"own branch", "5", 3, http.StatusOK},
		{"other company", "5", 4, http.StatusNotFound},
		{"missing branch", "9", 3, http.StatusNotFound},
		{"bad id", "abc", 3, http.StatusBadRequest},
	}
	for _, tt := range tests {
		resolved = nil
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, branchRequest(tt.id, tt.company))
		if resp.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, resp.Code)
		}
		if tt.want == http.StatusOK && (resolved == nil || resolved.ID != 5) {
			t.Fatalf("%s: branch not placed on context", tt.name)
		}
	}
}

type failingLoader struct{}

func (failingLoader) FindByID(ctx context.Context, id int64) (*models.Branch, error) {
	return nil, errors.New("db down")
}

func TestBranchAccessLoaderFailure(t *testing.T) {
	resp := httptest.NewRecorder()
	BranchAccess(failingLoader{}, nil)(okHandler()).ServeHTTP(resp, branchRequest("5", 3))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
