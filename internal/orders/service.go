package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/branchpay/checkout-backend/pkg/db"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/types"
)

const (
	orderNumberPrefix   = "ORD-"
	defaultNumberTries  = 5
	defaultCurrencyCode = "USD"
)

// GenerateOrderNumber returns ORD- followed by 8 random uppercase hex characters.
func GenerateOrderNumber() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return orderNumberPrefix + strings.ToUpper(raw[:8])
}

// Customer holds the payer contact fields stored on an order.
type Customer struct {
	Email string
	Name  string
	Phone *string
	Notes *string
}

// CreateOrderInput carries a validated checkout into the ledger.
type CreateOrderInput struct {
	BranchID  int64
	GatewayID int64
	Customer  Customer
	Items     types.OrderItems
	Total     types.Money
	Currency  string
}

// StatusFields are the columns written alongside a status change.
type StatusFields struct {
	ChargeID      *string
	CompletedAt   *time.Time
	FailureReason *string
}

// Service is the order ledger. UpdateStatus and AttachIntent are the only
// mutation paths after creation.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	AttachIntent(ctx context.Context, order *models.Order, intentID string) error
	UpdateStatus(ctx context.Context, order *models.Order, next enums.OrderStatus, fields StatusFields) error
}

type service struct {
	repo     Repository
	attempts int
	numbers  func() string
	logg     *logger.Logger
	now      func() time.Time
}

// Option customises the ledger.
type Option func(*service)

// WithNumberGenerator replaces the random order number source.
func WithNumberGenerator(fn func() string) Option {
	return func(s *service) {
		if fn != nil {
			s.numbers = fn
		}
	}
}

// WithClock replaces time.Now for completion timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService builds the order ledger. attempts bounds order-number regeneration on conflict.
func NewService(repo Repository, attempts int, logg *logger.Logger, opts ...Option) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if attempts <= 0 {
		attempts = defaultNumberTries
	}
	s := &service{
		repo:     repo,
		attempts: attempts,
		numbers:  GenerateOrderNumber,
		logg:     logg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateOrder inserts a pending order. Uniqueness of the order number is
// enforced by the unique index; a collision regenerates the number.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if !input.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order total")
	}
	if !input.Total.Equal(input.Items.Sum().Decimal) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total does not match items").
			WithDetails(map[string]any{"total": input.Total, "items_total": input.Items.Sum()})
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrencyCode
	}

	order := &models.Order{
		BranchID:         input.BranchID,
		PaymentGatewayID: input.GatewayID,
		CustomerEmail:    input.Customer.Email,
		CustomerName:     input.Customer.Name,
		CustomerPhone:    input.Customer.Phone,
		CustomerNotes:    input.Customer.Notes,
		TotalAmount:      input.Total.Decimal,
		Currency:         currency,
		Status:           enums.OrderStatusPending,
		Items:            input.Items,
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		order.ID = 0
		order.OrderNumber = s.numbers()
		err := s.repo.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		lastErr = err
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_number": order.OrderNumber,
			"attempt":      attempt,
		}), "orders.number_collision")
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "could not allocate a unique order number")
}

func (s *service) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func (s *service) AttachIntent(ctx context.Context, order *models.Order, intentID string) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if strings.TrimSpace(intentID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	ok, err := s.repo.AttachIntent(ctx, order.ID, intentID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "attach payment intent")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a payment intent").
			WithDetails(map[string]any{"order_id": order.ID})
	}
	order.StripePaymentIntentID = &intentID
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, order *models.Order, next enums.OrderStatus, fields StatusFields) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	from := order.Status
	if !from.CanTransitionTo(next) {
		return transitionConflict(from, next)
	}

	updates := map[string]any{}
	if fields.ChargeID != nil {
		updates["stripe_charge_id"] = *fields.ChargeID
	}
	if fields.FailureReason != nil {
		updates["failure_reason"] = *fields.FailureReason
	}
	completedAt := fields.CompletedAt
	if next == enums.OrderStatusCompleted && completedAt == nil {
		now := s.now().UTC()
		completedAt = &now
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}

	ok, err := s.repo.Transition(ctx, order.ID, from, next, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}
	if !ok {
		return transitionConflict(from, next)
	}

	order.Status = next
	if fields.ChargeID != nil {
		order.StripeChargeID = fields.ChargeID
	}
	if fields.FailureReason != nil {
		order.FailureReason = fields.FailureReason
	}
	if completedAt != nil {
		order.CompletedAt = completedAt
	}
	return nil
}

func transitionConflict(from, to enums.OrderStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
