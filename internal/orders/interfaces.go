package orders

import (
	"context"
	"time"

	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

// Repository defines persistence operations for storefront orders.
type Repository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	Transition(ctx context.Context, id int64, from, to enums.OrderStatus, updates map[string]any) (bool, error)
	AttachIntent(ctx context.Context, id int64, intentID string) (bool, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error)
}
