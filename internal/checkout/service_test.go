package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	stripego "github.com/stripe/stripe-go/v84"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/branchpay/checkout-backend/internal/branches"
	"github.com/branchpay/checkout-backend/internal/capability"
	"github.com/branchpay/checkout-backend/internal/catalog"
	"github.com/branchpay/checkout-backend/internal/orders"
	"github.com/branchpay/checkout-backend/pkg/db/dbtest"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/metrics"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

type stubPayments struct {
	createCalls   []stripe.IntentRequest
	retrieveCalls int
	createErr     error
	retrieveErr   error
	status        string
	chargeID      string
}

func (s *stubPayments) CreateIntent(ctx context.Context, req stripe.IntentRequest) (*stripe.Intent, error) {
	s.createCalls = append(s.createCalls, req)
	if s.createErr != nil {
		return nil, s.createErr
	}
	id := fmt.Sprintf("pi_%d", len(s.createCalls))
	return &stripe.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (s *stubPayments) RetrieveIntent(ctx context.Context, accountID, intentID string) (*stripe.Intent, error) {
	s.retrieveCalls++
	if s.retrieveErr != nil {
		return nil, s.retrieveErr
	}
	return &stripe.Intent{ID: intentID, Status: s.status, ChargeID: s.chargeID}, nil
}

type stubRecorder struct {
	intents       []string
	confirmations []string
}

func (r *stubRecorder) IncIntent(outcome string)       { r.intents = append(r.intents, outcome) }
func (r *stubRecorder) IncConfirmation(outcome string) { r.confirmations = append(r.confirmations, outcome) }

type harness struct {
	svc      Service
	db       *gorm.DB
	fx       dbtest.Fixture
	massage  *models.Service
	payments *stubPayments
	recorder *stubRecorder
}

func newHarness(t *testing.T, capable bool) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	fx := dbtest.SeedStorefront(t, conn, "acme-spa", capable)
	massage := dbtest.SeedService(t, conn, fx.Branch.ID, "Massage", "50.00", true)
	fx.Gateway.AvailableServiceIDs = []int64{massage.ID}
	require.NoError(t, conn.Save(fx.Gateway).Error)

	gate, err := capability.NewGate(branches.NewRepository(conn), nil, 0, logg)
	require.NoError(t, err)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), gate)
	require.NoError(t, err)
	ledger, err := orders.NewService(orders.NewRepository(conn), 3, logg)
	require.NoError(t, err)

	payments := &stubPayments{status: stripe.IntentStatusSucceeded, chargeID: "ch_1"}
	recorder := &stubRecorder{}
	svc, err := NewService(catalogSvc, ledger, payments, recorder, "usd", logg)
	require.NoError(t, err)

	return &harness{svc: svc, db: conn, fx: fx, massage: massage, payments: payments, recorder: recorder}
}

func (h *harness) input() PaymentIntentInput {
	return PaymentIntentInput{
		Items:         []catalog.RequestedItem{{Type: enums.ItemTypeService, ID: h.massage.ID, Quantity: 2}},
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
	}
}

func (h *harness) countOrders(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func (h *harness) order(t *testing.T, id int64) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, h.db.First(&order, id).Error)
	return order
}

func TestCreatePaymentIntentHappyPath(t *testing.T) {
	h := newHarness(t, true)

	result, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", h.input())
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret", result.ClientSecret)
	assert.Equal(t, "100.00", result.TotalAmount.String())

	require.Len(t, h.payments.createCalls, 1)
	req := h.payments.createCalls[0]
	assert.Equal(t, int64(10000), req.AmountCents)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, h.fx.Mapping.StripeAccountID, req.AccountID)
	assert.Equal(t, enums.CommissionTypePercentage, req.Commission.Type)
	assert.True(t, req.Commission.Rate.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "jane@example.com", req.ReceiptEmail)
	assert.Equal(t, fmt.Sprintf("order-%d-payment-intent", result.OrderID), req.IdempotencyKey)
	assert.Equal(t, result.OrderNumber, req.Metadata["order_number"])
	assert.Equal(t, "acme-spa", req.Metadata["gateway_slug"])
	assert.Equal(t, fmt.Sprintf("Order %s - acme-spa", result.OrderNumber), req.Description)

	stored := h.order(t, result.OrderID)
	assert.Equal(t, enums.OrderStatusPending, stored.Status)
	assert.Equal(t, "pi_1", stored.IntentID())
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Massage", stored.Items[0].Name)
	assert.Equal(t, "100.00", stored.Items[0].Total.String())

	assert.Equal(t, []string{metrics.OutcomeSuccess}, h.recorder.intents)
}

func TestCreatePaymentIntentCapabilityDisabled(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", h.input())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeUnavailable, pkgerrors.As(err).Code())
	assert.Zero(t, h.countOrders(t))
	assert.Empty(t, h.payments.createCalls)
	assert.Equal(t, []string{metrics.OutcomeUnavailable}, h.recorder.intents)
}

func TestCreatePaymentIntentUnknownSlug(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.CreatePaymentIntent(context.Background(), "nope", h.input())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestCreatePaymentIntentRejectsInvalidItem(t *testing.T) {
	h := newHarness(t, true)
	input := h.input()
	input.Items[0].Quantity = 0

	_, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, h.countOrders(t))
	assert.Empty(t, h.payments.createCalls)
}

func TestCreatePaymentIntentRejectsOverflowingQuantity(t *testing.T) {
	h := newHarness(t, true)
	input := h.input()
	input.Items[0].Quantity = 3689348814741911

	_, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Zero(t, h.countOrders(t))
	assert.Empty(t, h.payments.createCalls)
	assert.Equal(t, []string{metrics.OutcomeRejected}, h.recorder.intents)
}

func TestCreatePaymentIntentVendorFailureMarksOrderFailed(t *testing.T) {
	h := newHarness(t, true)
	h.payments.createErr = &stripego.Error{Msg: "Your card was declined."}

	_, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", h.input())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeVendor, typed.Code())
	assert.Equal(t, "Failed to create payment intent: Your card was declined.", typed.Message())

	var stored []models.Order
	require.NoError(t, h.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.OrderStatusFailed, stored[0].Status)
	require.NotNil(t, stored[0].FailureReason)
	assert.Equal(t, "Your card was declined.", *stored[0].FailureReason)
	assert.Empty(t, stored[0].IntentID())
	assert.Equal(t, []string{metrics.OutcomeVendorError}, h.recorder.intents)
}

func TestCreatePaymentIntentTimeoutLeavesOrderPending(t *testing.T) {
	h := newHarness(t, true)
	h.payments.createErr = fmt.Errorf("payment_intent.create: %w", context.DeadlineExceeded)

	_, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", h.input())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var stored []models.Order
	require.NoError(t, h.db.Find(&stored).Error)
	require.Len(t, stored, 1)
	assert.Equal(t, enums.OrderStatusPending, stored[0].Status)
	assert.Empty(t, stored[0].IntentID())
	assert.Equal(t, []string{metrics.OutcomeTimeout}, h.recorder.intents)
}

func (h *harness) placeOrder(t *testing.T) *PaymentIntentResult {
	t.Helper()
	result, err := h.svc.CreatePaymentIntent(context.Background(), "acme-spa", h.input())
	require.NoError(t, err)
	return result
}

func TestConfirmOrderCompletesAfterVendorCheck(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)

	confirmation, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"})
	require.NoError(t, err)
	assert.Equal(t, "Order confirmed successfully", confirmation.Message)
	assert.Equal(t, enums.OrderStatusCompleted, confirmation.Order.Status)
	assert.Equal(t, placed.OrderNumber, confirmation.Order.OrderNumber)
	assert.Equal(t, "100.00", confirmation.Order.TotalAmount.String())

	stored := h.order(t, placed.OrderID)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.StripeChargeID)
	assert.Equal(t, "ch_1", *stored.StripeChargeID)
	assert.NotNil(t, stored.CompletedAt)
}

func TestConfirmOrderIsIdempotent(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)
	input := ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"}

	first, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", input)
	require.NoError(t, err)
	completedAt := h.order(t, placed.OrderID).CompletedAt

	h.payments.chargeID = "ch_other"
	second, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", input)
	require.NoError(t, err)
	assert.Equal(t, first.Order.OrderNumber, second.Order.OrderNumber)
	assert.Equal(t, 1, h.payments.retrieveCalls)

	stored := h.order(t, placed.OrderID)
	assert.Equal(t, "ch_1", *stored.StripeChargeID)
	assert.True(t, stored.CompletedAt.Equal(*completedAt))
	assert.Equal(t, []string{metrics.OutcomeSuccess, metrics.OutcomeReplayed}, h.recorder.confirmations)
}

func TestConfirmOrderIntentMismatch(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)

	_, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_forged"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeIntentMismatch, pkgerrors.As(err).Code())
	assert.Equal(t, 400, pkgerrors.MetadataFor(pkgerrors.CodeIntentMismatch).HTTPStatus)
	assert.Equal(t, enums.OrderStatusPending, h.order(t, placed.OrderID).Status)
	assert.Zero(t, h.payments.retrieveCalls)
}

func TestConfirmOrderGatewayMismatch(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)
	dbtest.SeedStorefront(t, h.db, "other-spa", true)

	_, err := h.svc.ConfirmOrder(context.Background(), "other-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeGatewayMismatch, pkgerrors.As(err).Code())
	assert.Zero(t, h.payments.retrieveCalls)
}

func TestConfirmOrderUnknownOrder(t *testing.T) {
	h := newHarness(t, true)

	_, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: 999, PaymentIntentID: "pi_1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestConfirmOrderPaymentNotCompleted(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)
	h.payments.status = "requires_action"

	_, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodePaymentNotCompleted, typed.Code())
	assert.Equal(t, map[string]any{"status": "requires_action"}, typed.Details())
	assert.Equal(t, enums.OrderStatusPending, h.order(t, placed.OrderID).Status)
}

func TestConfirmOrderVendorError(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)
	h.payments.retrieveErr = errors.New("connection reset")

	_, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeVendor, typed.Code())
	assert.True(t, strings.HasPrefix(typed.Message(), "Failed to confirm payment"))
	assert.Equal(t, enums.OrderStatusPending, h.order(t, placed.OrderID).Status)
}

func TestConfirmOrderRejectsRefundedOrder(t *testing.T) {
	h := newHarness(t, true)
	placed := h.placeOrder(t)
	require.NoError(t, h.db.Model(&models.Order{}).Where("id = ?", placed.OrderID).Update("status", enums.OrderStatusRefunded).Error)

	_, err := h.svc.ConfirmOrder(context.Background(), "acme-spa", ConfirmInput{OrderID: placed.OrderID, PaymentIntentID: "pi_1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Zero(t, h.payments.retrieveCalls)
}
