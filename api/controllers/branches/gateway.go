package branches

import (
	"context"
	"net/http"

	"github.com/branchpay/checkout-backend/api/controllers/branchcontext"
	"github.com/branchpay/checkout-backend/api/responses"
	"github.com/branchpay/checkout-backend/api/validators"
	"github.com/branchpay/checkout-backend/internal/catalog"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

// GatewayCreator opens a public storefront for a branch.
type GatewayCreator interface {
	CreateGateway(ctx context.Context, branch *models.Branch, input catalog.CreateGatewayInput) (*models.PaymentGateway, error)
}

type createGatewayRequest struct {
	Slug                string  `json:"slug,omitempty" validate:"omitempty,max=100"`
	BusinessName        *string `json:"business_name,omitempty" validate:"omitempty,max=255"`
	LogoURL             *string `json:"logo_url,omitempty" validate:"omitempty,url"`
	PrimaryColor        *string `json:"primary_color,omitempty" validate:"omitempty,hexcolor"`
	SecondaryColor      *string `json:"secondary_color,omitempty" validate:"omitempty,hexcolor"`
	TermsAndConditions  *string `json:"terms_and_conditions,omitempty"`
	SuccessMessage      *string `json:"success_message,omitempty"`
	AvailableProductIDs []int64 `json:"available_product_ids,omitempty" validate:"omitempty,dive,gt=0"`
	AvailableServiceIDs []int64 `json:"available_service_ids,omitempty" validate:"omitempty,dive,gt=0"`
	IsEnabled           *bool   `json:"is_enabled,omitempty"`
}

type gatewayResponse struct {
	ID                  int64   `json:"id"`
	BranchID            int64   `json:"branch_id"`
	Slug                string  `json:"slug"`
	IsEnabled           bool    `json:"is_enabled"`
	BusinessName        string  `json:"business_name"`
	LogoURL             *string `json:"logo_url"`
	PrimaryColor        *string `json:"primary_color"`
	SecondaryColor      *string `json:"secondary_color"`
	AvailableProductIDs []int64 `json:"available_product_ids"`
	AvailableServiceIDs []int64 `json:"available_service_ids"`
}

func newGatewayResponse(g *models.PaymentGateway) gatewayResponse {
	return gatewayResponse{
		ID:                  g.ID,
		BranchID:            g.BranchID,
		Slug:                g.Slug,
		IsEnabled:           g.IsEnabled,
		BusinessName:        g.DisplayName(),
		LogoURL:             g.LogoURL,
		PrimaryColor:        g.PrimaryColor,
		SecondaryColor:      g.SecondaryColor,
		AvailableProductIDs: g.AvailableProductIDs,
		AvailableServiceIDs: g.AvailableServiceIDs,
	}
}

// GatewayCreate serves POST /api/v1/branches/{id}/gateway.
func GatewayCreate(svc GatewayCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		branch, err := branchcontext.ResolveBranch(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createGatewayRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enabled := true
		if payload.IsEnabled != nil {
			enabled = *payload.IsEnabled
		}
		gateway, err := svc.CreateGateway(r.Context(), branch, catalog.CreateGatewayInput{
			Slug:                validators.SanitizeString(payload.Slug, 100),
			BusinessName:        payload.BusinessName,
			LogoURL:             payload.LogoURL,
			PrimaryColor:        payload.PrimaryColor,
			SecondaryColor:      payload.SecondaryColor,
			TermsAndConditions:  payload.TermsAndConditions,
			SuccessMessage:      payload.SuccessMessage,
			AvailableProductIDs: payload.AvailableProductIDs,
			AvailableServiceIDs: payload.AvailableServiceIDs,
			IsEnabled:           enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newGatewayResponse(gateway))
	}
}
