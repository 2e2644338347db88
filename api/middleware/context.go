package middleware

import (
	"context"

	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxCompanyID contextKey = "company_id"
	ctxRole      contextKey = "actor_role"
	ctxBranch    contextKey = "branch"
)

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

func CompanyIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxCompanyID).(int64); ok {
		return v
	}
	return 0
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.UserRole); ok {
		return v
	}
	return ""
}

// BranchFromContext returns the branch resolved by BranchAccess.
func BranchFromContext(ctx context.Context) *models.Branch {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxBranch).(*models.Branch); ok {
		return v
	}
	return nil
}

// WithIdentity injects the authenticated user into the context.
func WithIdentity(ctx context.Context, userID, companyID int64, role enums.UserRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxCompanyID, companyID)
	return context.WithValue(ctx, ctxRole, role)
}

// WithBranch injects the resolved branch for downstream handlers.
func WithBranch(ctx context.Context, branch *models.Branch) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxBranch, branch)
}
