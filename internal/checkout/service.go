package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/branchpay/checkout-backend/internal/catalog"
	"github.com/branchpay/checkout-backend/internal/orders"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/metrics"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

type gatewayCatalog interface {
	ResolveGateway(ctx context.Context, slug string) (*models.PaymentGateway, error)
	ValidateLineItems(ctx context.Context, gateway *models.PaymentGateway, items []catalog.RequestedItem) (*catalog.ValidatedItems, error)
}

type paymentProvider interface {
	CreateIntent(ctx context.Context, req stripe.IntentRequest) (*stripe.Intent, error)
	RetrieveIntent(ctx context.Context, accountID, intentID string) (*stripe.Intent, error)
}

type outcomeRecorder interface {
	IncIntent(outcome string)
	IncConfirmation(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) IncIntent(string)       {}
func (noopRecorder) IncConfirmation(string) {}

// Service runs storefront checkout: intent creation and confirmation.
type Service interface {
	CreatePaymentIntent(ctx context.Context, slug string, input PaymentIntentInput) (*PaymentIntentResult, error)
	ConfirmOrder(ctx context.Context, slug string, input ConfirmInput) (*Confirmation, error)
}

type service struct {
	catalog  gatewayCatalog
	ledger   orders.Service
	payments paymentProvider
	recorder outcomeRecorder
	currency string
	logg     *logger.Logger
}

// NewService builds the checkout orchestrator.
func NewService(
	catalog gatewayCatalog,
	ledger orders.Service,
	payments paymentProvider,
	recorder outcomeRecorder,
	currency string,
	logg *logger.Logger,
) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("order ledger required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	return &service{
		catalog:  catalog,
		ledger:   ledger,
		payments: payments,
		recorder: recorder,
		currency: currency,
		logg:     logg,
	}, nil
}

// CreatePaymentIntent prices the request on the server, records a pending
// order and opens a direct-charge intent on the branch's connected account.
func (s *service) CreatePaymentIntent(ctx context.Context, slug string, input PaymentIntentInput) (*PaymentIntentResult, error) {
	gateway, err := s.catalog.ResolveGateway(ctx, slug)
	if err != nil {
		s.recorder.IncIntent(intentOutcome(err))
		return nil, err
	}
	branch := gateway.Branch
	ctx = s.logg.WithBranchID(ctx, branch.ID)
	if branch.StripeAccountID() == "" {
		s.recorder.IncIntent(metrics.OutcomeUnavailable)
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "this branch cannot accept payments at this time")
	}

	validated, err := s.catalog.ValidateLineItems(ctx, gateway, input.Items)
	if err != nil {
		s.recorder.IncIntent(metrics.OutcomeRejected)
		return nil, err
	}

	amountCents, err := validated.Total.Cents()
	if err != nil {
		s.recorder.IncIntent(metrics.OutcomeRejected)
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Invalid order total")
	}

	order, err := s.ledger.CreateOrder(ctx, orders.CreateOrderInput{
		BranchID:  branch.ID,
		GatewayID: gateway.ID,
		Customer: orders.Customer{
			Email: input.CustomerEmail,
			Name:  input.CustomerName,
			Phone: input.CustomerPhone,
			Notes: input.CustomerNotes,
		},
		Items:    validated.Items,
		Total:    validated.Total,
		Currency: s.currency,
	})
	if err != nil {
		s.recorder.IncIntent(intentOutcome(err))
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(s.logg.WithField(ctx, "order_number", order.OrderNumber), "checkout.order_created")

	intent, err := s.payments.CreateIntent(ctx, stripe.IntentRequest{
		AccountID:    branch.StripeAccountID(),
		AmountCents:  amountCents,
		Currency:     order.Currency,
		Commission:   stripe.Commission{Type: branch.CommissionType, Rate: branch.CommissionRate},
		Description:  fmt.Sprintf("Order %s - %s", order.OrderNumber, gateway.DisplayName()),
		ReceiptEmail: input.CustomerEmail,
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(order.ID, 10),
			"order_number": order.OrderNumber,
			"gateway_slug": gateway.Slug,
		},
		IdempotencyKey: fmt.Sprintf("order-%d-payment-intent", order.ID),
	})
	if err != nil {
		return nil, s.intentFailed(ctx, order, err)
	}

	if err := s.ledger.AttachIntent(ctx, order, intent.ID); err != nil {
		s.recorder.IncIntent(intentOutcome(err))
		s.logg.Error(ctx, "checkout.attach_intent_failed", err)
		return nil, err
	}

	s.recorder.IncIntent(metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithField(ctx, "payment_intent_id", intent.ID), "checkout.intent_created")
	return &PaymentIntentResult{
		ClientSecret: intent.ClientSecret,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		TotalAmount:  validated.Total,
	}, nil
}

// intentFailed decides what a vendor failure means for the order. A timeout
// leaves the remote state unknown, so the order stays pending without an
// intent id. A resubmitted checkout creates a new order; the stale-orders
// maintenance job later fails the abandoned one.
func (s *service) intentFailed(ctx context.Context, order *models.Order, cause error) error {
	if stripe.IsTimeout(cause) {
		s.recorder.IncIntent(metrics.OutcomeTimeout)
		s.logg.Warn(ctx, "checkout.intent_timeout")
		return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "payment provider did not respond in time").
			WithDetails(map[string]any{"order_id": order.ID, "order_number": order.OrderNumber})
	}

	s.recorder.IncIntent(metrics.OutcomeVendorError)
	reason := stripe.VendorMessage(cause)
	s.logg.Error(ctx, "checkout.intent_failed", cause)
	if err := s.ledger.UpdateStatus(ctx, order, enums.OrderStatusFailed, orders.StatusFields{FailureReason: &reason}); err != nil {
		s.logg.Error(ctx, "checkout.mark_failed_failed", err)
	}
	return pkgerrors.Wrap(pkgerrors.CodeVendor, cause, "Failed to create payment intent: "+reason)
}

// ConfirmOrder completes an order only after re-reading the intent from the
// vendor. The client's own report of success is never trusted.
func (s *service) ConfirmOrder(ctx context.Context, slug string, input ConfirmInput) (*Confirmation, error) {
	order, err := s.ledger.FindByID(ctx, input.OrderID)
	if err != nil {
		s.recorder.IncConfirmation(metrics.OutcomeRejected)
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	if strings.TrimSpace(input.PaymentIntentID) == "" || order.IntentID() != input.PaymentIntentID {
		s.recorder.IncConfirmation(metrics.OutcomeMismatch)
		return nil, pkgerrors.New(pkgerrors.CodeIntentMismatch, "Payment intent mismatch")
	}
	if order.Gateway == nil || order.Gateway.Slug != slug {
		s.recorder.IncConfirmation(metrics.OutcomeMismatch)
		return nil, pkgerrors.New(pkgerrors.CodeGatewayMismatch, "Gateway mismatch")
	}

	switch order.Status {
	case enums.OrderStatusCompleted:
		s.recorder.IncConfirmation(metrics.OutcomeReplayed)
		return confirmationFrom(order), nil
	case enums.OrderStatusPending:
	default:
		s.recorder.IncConfirmation(metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be confirmed").
			WithDetails(map[string]any{"status": order.Status})
	}

	var accountID string
	if order.Gateway.Branch != nil {
		accountID = order.Gateway.Branch.StripeAccountID()
	}
	if accountID == "" {
		s.recorder.IncConfirmation(metrics.OutcomeUnavailable)
		return nil, pkgerrors.New(pkgerrors.CodeUnavailable, "this branch cannot accept payments at this time")
	}

	intent, err := s.payments.RetrieveIntent(ctx, accountID, order.IntentID())
	if err != nil {
		if stripe.IsTimeout(err) {
			s.recorder.IncConfirmation(metrics.OutcomeTimeout)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment provider did not respond in time")
		}
		s.recorder.IncConfirmation(metrics.OutcomeVendorError)
		s.logg.Error(ctx, "checkout.confirm_failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeVendor, err, "Failed to confirm payment: "+stripe.VendorMessage(err))
	}

	if intent.Status != stripe.IntentStatusSucceeded {
		s.recorder.IncConfirmation(metrics.OutcomeNotComplete)
		s.logg.Info(s.logg.WithField(ctx, "intent_status", intent.Status), "checkout.payment_not_completed")
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "Payment not completed").
			WithDetails(map[string]any{"status": intent.Status})
	}

	fields := orders.StatusFields{}
	if intent.ChargeID != "" {
		charge := intent.ChargeID
		fields.ChargeID = &charge
	}
	if err := s.ledger.UpdateStatus(ctx, order, enums.OrderStatusCompleted, fields); err != nil {
		// a concurrent confirmation may have completed the order first
		if pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
			s.recorder.IncConfirmation(intentOutcome(err))
			return nil, err
		}
		current, findErr := s.ledger.FindByID(ctx, order.ID)
		if findErr != nil || current.Status != enums.OrderStatusCompleted {
			s.recorder.IncConfirmation(metrics.OutcomeRejected)
			return nil, err
		}
		s.recorder.IncConfirmation(metrics.OutcomeReplayed)
		return confirmationFrom(current), nil
	}

	s.recorder.IncConfirmation(metrics.OutcomeSuccess)
	s.logg.Info(ctx, "checkout.order_confirmed")
	return confirmationFrom(order), nil
}

func intentOutcome(err error) string {
	switch pkgerrors.As(err).Code() {
	case pkgerrors.CodeUnavailable:
		return metrics.OutcomeUnavailable
	case pkgerrors.CodeDependency:
		return metrics.OutcomeTimeout
	case pkgerrors.CodeVendor:
		return metrics.OutcomeVendorError
	default:
		return metrics.OutcomeRejected
	}
}
