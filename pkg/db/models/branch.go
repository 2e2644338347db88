package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/enums"
)

// DefaultCommissionRate is the platform fee percentage applied to new branches.
var DefaultCommissionRate = decimal.NewFromInt(5)

// Branch is a merchant location that sells through its own connected account.
type Branch struct {
	ID             int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	CompanyID      int64                 `gorm:"column:company_id;not null;index"`
	Name           string                `gorm:"column:name;not null"`
	Email          *string               `gorm:"column:email"`
	Phone          *string               `gorm:"column:phone"`
	IsActive       bool                  `gorm:"column:is_active;not null"`
	CommissionType enums.CommissionType  `gorm:"column:commission_type;not null;default:'percentage'"`
	CommissionRate decimal.Decimal       `gorm:"column:commission_rate;type:numeric(8,2);not null"`
	StripeAccount  *StripeAccountMapping `gorm:"foreignKey:BranchID"`
	Gateway        *PaymentGateway       `gorm:"foreignKey:BranchID"`
	CreatedAt      time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time             `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt      gorm.DeletedAt        `gorm:"column:deleted_at;index"`
}

// StripeAccountID returns the connected account id, or "" before onboarding starts.
func (b *Branch) StripeAccountID() string {
	if b == nil || b.StripeAccount == nil {
		return ""
	}
	return b.StripeAccount.StripeAccountID
}
