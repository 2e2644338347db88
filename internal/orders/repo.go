package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to order persistence.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Gateway").Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Gateway").
		Preload("Gateway.Branch").
		Preload("Gateway.Branch.StripeAccount").
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Transition moves the order from one status to another only if it still holds from.
func (r *repository) Transition(ctx context.Context, id int64, from, to enums.OrderStatus, updates map[string]any) (bool, error) {
	values := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		values[k] = v
	}
	values["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// AttachIntent stores the remote intent id on a pending order that has none yet.
func (r *repository) AttachIntent(ctx context.Context, id int64, intentID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND stripe_payment_intent_id IS NULL", id, enums.OrderStatusPending).
		Update("stripe_payment_intent_id", intentID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListStalePending returns pending orders created before the cutoff that never
// received a payment intent, oldest first.
func (r *repository) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := r.db.WithContext(ctx).
		Where("status = ? AND stripe_payment_intent_id IS NULL AND created_at < ?", enums.OrderStatusPending, createdBefore).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
