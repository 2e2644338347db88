package catalog

import (
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	"github.com/branchpay/checkout-backend/pkg/types"
)

// GatewayBranding is the public storefront header.
type GatewayBranding struct {
	Slug               string  `json:"slug"`
	BusinessName       string  `json:"business_name"`
	LogoURL            *string `json:"logo_url"`
	PrimaryColor       *string `json:"primary_color"`
	SecondaryColor     *string `json:"secondary_color"`
	TermsAndConditions *string `json:"terms_and_conditions"`
	SuccessMessage     *string `json:"success_message"`
}

// ItemView is a sellable entry listed on a storefront.
type ItemView struct {
	ID          int64          `json:"id"`
	Type        enums.ItemType `json:"type"`
	Name        string         `json:"name"`
	Description *string        `json:"description"`
	Price       types.Money    `json:"price"`
	SKU         *string        `json:"sku"`
	Duration    *int           `json:"duration,omitempty"`
}

// GatewayItems groups the storefront entries by kind.
type GatewayItems struct {
	Products      []ItemView `json:"products"`
	Services      []ItemView `json:"services"`
	Subscriptions []ItemView `json:"subscriptions"`
}

// GatewayView is the payload rendered for GET /gateways/{slug}.
type GatewayView struct {
	Gateway GatewayBranding `json:"gateway"`
	Items   GatewayItems    `json:"items"`
}

// RequestedItem is one client-supplied line of a checkout.
type RequestedItem struct {
	Type     enums.ItemType `json:"type"`
	ID       int64          `json:"id"`
	Quantity int            `json:"quantity"`
}

// ValidatedItems are the server-priced lines plus their total.
type ValidatedItems struct {
	Items types.OrderItems
	Total types.Money
}

// CreateGatewayInput captures the fields accepted when a branch opens a storefront.
type CreateGatewayInput struct {
	Slug                string
	BusinessName        *string
	LogoURL             *string
	PrimaryColor        *string
	SecondaryColor      *string
	TermsAndConditions  *string
	SuccessMessage      *string
	AvailableProductIDs []int64
	AvailableServiceIDs []int64
	IsEnabled           bool
}

func brandingFrom(gateway *models.PaymentGateway) GatewayBranding {
	return GatewayBranding{
		Slug:               gateway.Slug,
		BusinessName:       gateway.DisplayName(),
		LogoURL:            gateway.LogoURL,
		PrimaryColor:       gateway.PrimaryColor,
		SecondaryColor:     gateway.SecondaryColor,
		TermsAndConditions: gateway.TermsAndConditions,
		SuccessMessage:     gateway.SuccessMessage,
	}
}

func productView(p models.Product) ItemView {
	return ItemView{
		ID:          p.ID,
		Type:        enums.ItemTypeProduct,
		Name:        p.Name,
		Description: p.Description,
		Price:       types.NewMoney(p.Price),
		SKU:         p.SKU,
	}
}

func serviceView(s models.Service) ItemView {
	duration := s.Duration
	return ItemView{
		ID:          s.ID,
		Type:        enums.ItemTypeService,
		Name:        s.Name,
		Description: s.Description,
		Price:       types.NewMoney(s.Price),
		SKU:         s.SKU,
		Duration:    &duration,
	}
}
