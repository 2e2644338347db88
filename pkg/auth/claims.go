package auth

import (
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    int64
	CompanyID int64
	Role      enums.UserRole
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to back-office clients.
type AccessTokenClaims struct {
	UserID    int64          `json:"user_id"`
	CompanyID int64          `json:"company_id"`
	Role      enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}
