package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// IntentStatusSucceeded is the only status that completes an order.
const IntentStatusSucceeded = string(stripe.PaymentIntentStatusSucceeded)

// IntentRequest describes a direct charge on a connected account.
type IntentRequest struct {
	AccountID      string
	AmountCents    int64
	Currency       string
	Commission     Commission
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// Intent is the subset of a remote payment intent the checkout needs.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	ChargeID     string
}

// Payments creates and retrieves payment intents scoped to connected accounts.
type Payments struct {
	client *Client
}

// NewPayments binds the payment intent operations to client.
func NewPayments(client *Client) *Payments {
	return &Payments{client: client}
}

// CreateIntent creates a payment intent on the connected account in req.
func (p *Payments) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	params, err := buildIntentParams(req)
	if err != nil {
		return nil, err
	}
	var pi *stripe.PaymentIntent
	err = p.client.call(ctx, "payment_intent.create", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		pi, callErr = paymentintent.New(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return intentFrom(pi), nil
}

// RetrieveIntent re-reads the intent from Stripe as seen by the connected account.
func (p *Payments) RetrieveIntent(ctx context.Context, accountID, intentID string) (*Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, fmt.Errorf("payment intent id is required")
	}
	params := &stripe.PaymentIntentParams{}
	params.SetStripeAccount(accountID)

	var pi *stripe.PaymentIntent
	err := p.client.call(ctx, "payment_intent.retrieve", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		pi, callErr = paymentintent.Get(intentID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return intentFrom(pi), nil
}

func buildIntentParams(req IntentRequest) (*stripe.PaymentIntentParams, error) {
	if strings.TrimSpace(req.AccountID) == "" {
		return nil, fmt.Errorf("connected account id is required")
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if fee := ApplicationFee(req.AmountCents, req.Commission); fee > 0 {
		params.ApplicationFeeAmount = stripe.Int64(fee)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	params.SetStripeAccount(req.AccountID)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	return params, nil
}

func intentFrom(pi *stripe.PaymentIntent) *Intent {
	if pi == nil {
		return nil
	}
	intent := &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
	}
	return intent
}
