package types

import (
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// OrderItem is the denormalized line stored on an order at purchase time.
type OrderItem struct {
	Type     enums.ItemType `json:"type"`
	ID       int64          `json:"id"`
	Name     string         `json:"name"`
	Price    Money          `json:"price"`
	Quantity int            `json:"quantity"`
	Total    Money          `json:"total"`
}

// OrderItems is the persisted snapshot of an order.
type OrderItems []OrderItem

// Sum totals the snapshot lines.
func (items OrderItems) Sum() Money {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total.Decimal)
	}
	return NewMoney(total)
}
