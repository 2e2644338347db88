package branchcontext

import (
	"net/http"

	"github.com/branchpay/checkout-backend/api/middleware"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
)

// ResolveBranch returns the branch loaded by middleware.BranchAccess and
// re-checks that it belongs to the caller's company.
func ResolveBranch(r *http.Request) (*models.Branch, error) {
	ctx := r.Context()
	branch := middleware.BranchFromContext(ctx)
	if branch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch context required")
	}
	companyID := middleware.CompanyIDFromContext(ctx)
	if companyID == 0 || branch.CompanyID != companyID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
	}
	return branch, nil
}
