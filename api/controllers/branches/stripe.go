package branches

import (
	"net/http"

	"github.com/branchpay/checkout-backend/api/controllers/branchcontext"
	"github.com/branchpay/checkout-backend/api/responses"
	"github.com/branchpay/checkout-backend/api/validators"
	"github.com/branchpay/checkout-backend/internal/connect"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

type onboardingRequest struct {
	ReturnURL  string `json:"returnURL" validate:"required,url"`
	RefreshURL string `json:"refreshURL" validate:"required,url"`
}

type resetRequest struct {
	ReturnURL  string `json:"returnURL" validate:"required,url"`
	RefreshURL string `json:"refreshURL" validate:"required,url"`
	Confirm    bool   `json:"confirm"`
}

func unavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "payment account service unavailable")
}

// StripeOnboarding serves POST /api/v1/branches/{id}/stripe/onboarding.
func StripeOnboarding(svc connect.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload onboardingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.GenerateOnboardingURL(r.Context(), branch, payload.ReturnURL, payload.RefreshURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// StripeStatus serves GET /api/v1/branches/{id}/stripe/status.
func StripeStatus(svc connect.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.Status(r.Context(), branch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// StripeDashboard serves GET /api/v1/branches/{id}/stripe/dashboard.
func StripeDashboard(svc connect.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		link, err := svc.DashboardURL(r.Context(), branch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// StripeReset serves POST /api/v1/branches/{id}/stripe/reset. The caller must
// send confirm=true; the route is mounted behind the admin role check.
func StripeReset(svc connect.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resetRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !payload.Confirm {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reset must be confirmed").WithDetails(map[string]string{"confirm": "must be true"}))
			return
		}

		link, err := svc.ResetAccount(r.Context(), branch, payload.ReturnURL, payload.RefreshURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

// StripeSync serves POST /api/v1/branches/{id}/stripe/sync, refreshing the
// stored capability flags from the live account.
func StripeSync(svc connect.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable())
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := svc.SyncAccount(r.Context(), branch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
