package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/branchpay/checkout-backend/pkg/types"
)

// Order is a storefront purchase. Items hold the snapshot taken at creation.
type Order struct {
	ID                    int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderNumber           string            `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	BranchID              int64             `gorm:"column:branch_id;not null;index"`
	PaymentGatewayID      int64             `gorm:"column:payment_gateway_id;not null;index"`
	CustomerEmail         string            `gorm:"column:customer_email;not null"`
	CustomerName          string            `gorm:"column:customer_name;not null"`
	CustomerPhone         *string           `gorm:"column:customer_phone"`
	CustomerNotes         *string           `gorm:"column:customer_notes"`
	TotalAmount           decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Currency              string            `gorm:"column:currency;not null;default:'USD'"`
	Status                enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	Items                 types.OrderItems  `gorm:"column:items;type:jsonb;serializer:json;not null"`
	StripePaymentIntentID *string           `gorm:"column:stripe_payment_intent_id;uniqueIndex"`
	StripeChargeID        *string           `gorm:"column:stripe_charge_id"`
	FailureReason         *string           `gorm:"column:failure_reason"`
	CompletedAt           *time.Time        `gorm:"column:completed_at"`
	Gateway               *PaymentGateway   `gorm:"foreignKey:PaymentGatewayID"`
	CreatedAt             time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time         `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt             gorm.DeletedAt    `gorm:"column:deleted_at;index"`
}

// IntentID returns the stored remote intent id or "".
func (o *Order) IntentID() string {
	if o == nil || o.StripePaymentIntentID == nil {
		return ""
	}
	return *o.StripePaymentIntentID
}
