package controllers

import (
	"context"
	"net/http"

	"github.com/branchpay/checkout-backend/api/responses"
	"github.com/branchpay/checkout-backend/api/validators"
	"github.com/branchpay/checkout-backend/internal/catalog"
	checkoutsvc "github.com/branchpay/checkout-backend/internal/checkout"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

const (
	maxNameLen  = 255
	maxPhoneLen = 50
	maxNotesLen = 2000
)

// StorefrontReader renders a public gateway page.
type StorefrontReader interface {
	Storefront(ctx context.Context, slug string) (*catalog.GatewayView, error)
}

// GatewayStorefront serves GET /api/public/gateways/{slug}.
func GatewayStorefront(svc StorefrontReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		slug, err := validators.PathSlug(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Storefront(r.Context(), slug)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

type paymentIntentItem struct {
	Type     enums.ItemType `json:"type" validate:"required,oneof=product service"`
	ID       int64          `json:"id" validate:"gt=0"`
	Quantity int            `json:"quantity" validate:"gt=0,max=10000"`
}

type paymentIntentRequest struct {
	Items         []paymentIntentItem `json:"items" validate:"required,min=1,dive"`
	CustomerEmail string              `json:"customer_email" validate:"required,email"`
	CustomerName  string              `json:"customer_name" validate:"required"`
	CustomerPhone *string             `json:"customer_phone,omitempty"`
	CustomerNotes *string             `json:"customer_notes,omitempty"`
}

func (p paymentIntentRequest) toInput() checkoutsvc.PaymentIntentInput {
	items := make([]catalog.RequestedItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, catalog.RequestedItem{Type: item.Type, ID: item.ID, Quantity: item.Quantity})
	}
	return checkoutsvc.PaymentIntentInput{
		Items:         items,
		CustomerEmail: validators.SanitizeString(p.CustomerEmail, maxNameLen),
		CustomerName:  validators.SanitizeString(p.CustomerName, maxNameLen),
		CustomerPhone: sanitizeOptional(p.CustomerPhone, maxPhoneLen),
		CustomerNotes: sanitizeOptional(p.CustomerNotes, maxNotesLen),
	}
}

// GatewayPaymentIntent serves POST /api/public/gateways/{slug}/payment-intent.
func GatewayPaymentIntent(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		slug, err := validators.PathSlug(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentIntentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreatePaymentIntent(r.Context(), slug, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type confirmRequest struct {
	OrderID         int64  `json:"order_id" validate:"gt=0"`
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

// GatewayConfirm serves POST /api/public/gateways/{slug}/confirm.
func GatewayConfirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		slug, err := validators.PathSlug(r, "slug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.ConfirmOrder(r.Context(), slug, checkoutsvc.ConfirmInput{
			OrderID:         payload.OrderID,
			PaymentIntentID: validators.SanitizeString(payload.PaymentIntentID, maxNameLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, confirmation)
	}
}

func sanitizeOptional(value *string, maxLen int) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxLen)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
