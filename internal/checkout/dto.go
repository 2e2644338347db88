package checkout

import (
	"time"

	"github.com/branchpay/checkout-backend/internal/catalog"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/branchpay/checkout-backend/pkg/types"
)

const confirmedMessage = "Order confirmed successfully"

// PaymentIntentInput is the storefront checkout submission.
type PaymentIntentInput struct {
	Items         []catalog.RequestedItem
	CustomerEmail string
	CustomerName  string
	CustomerPhone *string
	CustomerNotes *string
}

// PaymentIntentResult is what the payer's browser needs to finish payment.
type PaymentIntentResult struct {
	ClientSecret string      `json:"client_secret"`
	OrderID      int64       `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	TotalAmount  types.Money `json:"total_amount"`
}

// ConfirmInput is the client report that payment finished.
type ConfirmInput struct {
	OrderID         int64
	PaymentIntentID string
}

// OrderSummary is the public view of a confirmed order.
type OrderSummary struct {
	OrderNumber   string            `json:"order_number"`
	TotalAmount   types.Money       `json:"total_amount"`
	Status        enums.OrderStatus `json:"status"`
	CustomerEmail string            `json:"customer_email"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// Confirmation is returned once an order is completed.
type Confirmation struct {
	Message string       `json:"message"`
	Order   OrderSummary `json:"order"`
}

func confirmationFrom(order *models.Order) *Confirmation {
	return &Confirmation{
		Message: confirmedMessage,
		Order: OrderSummary{
			OrderNumber:   order.OrderNumber,
			TotalAmount:   types.NewMoney(order.TotalAmount),
			Status:        order.Status,
			CustomerEmail: order.CustomerEmail,
			CompletedAt:   order.CompletedAt,
		},
	}
}
