package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/enums"
)

// Product is a physical catalog item sold by a branch.
type Product struct {
	ID          int64               `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID    int64               `gorm:"column:branch_id;not null;index"`
	Name        string              `gorm:"column:name;not null"`
	Description *string             `gorm:"column:description"`
	SKU         *string             `gorm:"column:sku"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	Status      enums.ProductStatus `gorm:"column:status;not null;default:'active'"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt      `gorm:"column:deleted_at;index"`
}

// Service is a bookable catalog item with a duration in minutes.
type Service struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID    int64           `gorm:"column:branch_id;not null;index"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	SKU         *string         `gorm:"column:sku"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Duration    int             `gorm:"column:duration;not null;default:0"`
	IsActive    bool            `gorm:"column:is_active;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}
