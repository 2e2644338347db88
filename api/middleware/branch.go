package middleware

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/api/responses"
	"github.com/branchpay/checkout-backend/api/validators"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

type BranchLoader interface {
	FindByID(ctx context.Context, id int64) (*models.Branch, error)
}

// BranchAccess resolves the {id} URL param to a branch owned by the caller's company.
// A branch of another company is reported as missing.
func BranchAccess(loader BranchLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if loader == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branch loader unavailable"))
				return
			}

			companyID := CompanyIDFromContext(ctx)
			if companyID <= 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			branchID, err := validators.PathInt64(r, "id")
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			branch, err := loader.FindByID(ctx, branchID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load branch"))
				return
			}
			if branch.CompanyID != companyID {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found"))
				return
			}

			ctx = WithBranch(ctx, branch)
			if logg != nil {
				ctx = logg.WithBranchID(ctx, branch.ID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
