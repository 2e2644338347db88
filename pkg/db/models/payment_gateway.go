package models

import (
	"slices"
	"time"

	"gorm.io/gorm"
)

// PaymentGateway is the public storefront configuration of a branch.
type PaymentGateway struct {
	ID                       int64          `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID                 int64          `gorm:"column:branch_id;not null;uniqueIndex"`
	Slug                     string         `gorm:"column:slug;not null;uniqueIndex"`
	IsEnabled                bool           `gorm:"column:is_enabled;not null;default:false"`
	BusinessName             *string        `gorm:"column:business_name"`
	LogoURL                  *string        `gorm:"column:logo_url"`
	PrimaryColor             *string        `gorm:"column:primary_color"`
	SecondaryColor           *string        `gorm:"column:secondary_color"`
	AvailableProductIDs      []int64        `gorm:"column:available_product_ids;type:jsonb;serializer:json"`
	AvailableServiceIDs      []int64        `gorm:"column:available_service_ids;type:jsonb;serializer:json"`
	AvailableSubscriptionIDs []int64        `gorm:"column:available_subscription_ids;type:jsonb;serializer:json"`
	TermsAndConditions       *string        `gorm:"column:terms_and_conditions"`
	SuccessMessage           *string        `gorm:"column:success_message"`
	Branch                   *Branch        `gorm:"foreignKey:BranchID"`
	CreatedAt                time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt                gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

// AllowsProduct reports whether the product id is on the storefront allow-list.
func (g *PaymentGateway) AllowsProduct(id int64) bool {
	return slices.Contains(g.AvailableProductIDs, id)
}

// AllowsService reports whether the service id is on the storefront allow-list.
func (g *PaymentGateway) AllowsService(id int64) bool {
	return slices.Contains(g.AvailableServiceIDs, id)
}

// DisplayName is the business name, falling back to the branch name.
func (g *PaymentGateway) DisplayName() string {
	if g.BusinessName != nil && *g.BusinessName != "" {
		return *g.BusinessName
	}
	if g.Branch != nil {
		return g.Branch.Name
	}
	return ""
}
