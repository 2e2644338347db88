package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgdb "github.com/branchpay/checkout-backend/pkg/db"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/types"
)

const slugAttempts = 3

// MaxItemQuantity caps a single line so totals stay within the money column.
const MaxItemQuantity = 10000

var (
	errGatewayNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "payment gateway not found or disabled")
	errCannotAccept    = pkgerrors.New(pkgerrors.CodeUnavailable, "this branch cannot accept payments at this time")
)

type gatewayRepository interface {
	FindGatewayBySlug(ctx context.Context, slug string) (*models.PaymentGateway, error)
	FindGatewayByBranch(ctx context.Context, branchID int64) (*models.PaymentGateway, error)
	ActiveProducts(ctx context.Context, ids []int64) ([]models.Product, error)
	ActiveServices(ctx context.Context, ids []int64) ([]models.Service, error)
	CreateGateway(ctx context.Context, gateway *models.PaymentGateway, base string, attempts int) error
}

type capabilityChecker interface {
	CanAcceptPayments(ctx context.Context, branchID int64) (bool, error)
}

// Service resolves storefronts and prices checkout requests.
type Service interface {
	Storefront(ctx context.Context, slug string) (*GatewayView, error)
	ResolveGateway(ctx context.Context, slug string) (*models.PaymentGateway, error)
	ValidateLineItems(ctx context.Context, gateway *models.PaymentGateway, items []RequestedItem) (*ValidatedItems, error)
	CreateGateway(ctx context.Context, branch *models.Branch, input CreateGatewayInput) (*models.PaymentGateway, error)
}

type service struct {
	repo       gatewayRepository
	capability capabilityChecker
}

// NewService builds the catalog service.
func NewService(repo gatewayRepository, capability capabilityChecker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if capability == nil {
		return nil, fmt.Errorf("capability gate required")
	}
	return &service{repo: repo, capability: capability}, nil
}

// ResolveGateway returns the enabled gateway for slug after checking the owning
// branch can take payments. It runs on every request so a stale storefront page
// never reaches the vendor.
func (s *service) ResolveGateway(ctx context.Context, slug string) (*models.PaymentGateway, error) {
	if slug == "" {
		return nil, errGatewayNotFound
	}
	gateway, err := s.repo.FindGatewayBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errGatewayNotFound
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment gateway")
	}
	if !gateway.IsEnabled {
		return nil, errGatewayNotFound
	}
	if gateway.Branch == nil || !gateway.Branch.IsActive {
		return nil, errCannotAccept
	}

	ok, err := s.capability.CanAcceptPayments(ctx, gateway.BranchID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check payment capability")
	}
	if !ok {
		return nil, errCannotAccept
	}
	return gateway, nil
}

func (s *service) Storefront(ctx context.Context, slug string) (*GatewayView, error) {
	gateway, err := s.ResolveGateway(ctx, slug)
	if err != nil {
		return nil, err
	}

	products, err := s.repo.ActiveProducts(ctx, gateway.AvailableProductIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	services, err := s.repo.ActiveServices(ctx, gateway.AvailableServiceIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load services")
	}

	view := &GatewayView{
		Gateway: brandingFrom(gateway),
		Items: GatewayItems{
			Products:      make([]ItemView, 0, len(products)),
			Services:      make([]ItemView, 0, len(services)),
			Subscriptions: []ItemView{},
		},
	}
	for _, p := range products {
		view.Items.Products = append(view.Items.Products, productView(p))
	}
	for _, svc := range services {
		view.Items.Services = append(view.Items.Services, serviceView(svc))
	}
	return view, nil
}

// ValidateLineItems prices every requested line from the live catalog. Any
// invalid line rejects the whole request.
func (s *service) ValidateLineItems(ctx context.Context, gateway *models.PaymentGateway, items []RequestedItem) (*ValidatedItems, error) {
	if gateway == nil {
		return nil, errGatewayNotFound
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	var productIDs, serviceIDs []int64
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, invalidItem(i, item, "quantity must be a positive integer")
		}
		if item.Quantity > MaxItemQuantity {
			return nil, invalidItem(i, item, fmt.Sprintf("quantity must not exceed %d", MaxItemQuantity))
		}
		switch item.Type {
		case enums.ItemTypeProduct:
			if !gateway.AllowsProduct(item.ID) {
				return nil, invalidItem(i, item, "Invalid product in order")
			}
			productIDs = append(productIDs, item.ID)
		case enums.ItemTypeService:
			if !gateway.AllowsService(item.ID) {
				return nil, invalidItem(i, item, "Invalid service in order")
			}
			serviceIDs = append(serviceIDs, item.ID)
		default:
			return nil, invalidItem(i, item, "unsupported item type")
		}
	}

	products, err := s.repo.ActiveProducts(ctx, productIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}
	services, err := s.repo.ActiveServices(ctx, serviceIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load services")
	}
	productsByID := make(map[int64]models.Product, len(products))
	for _, p := range products {
		productsByID[p.ID] = p
	}
	servicesByID := make(map[int64]models.Service, len(services))
	for _, svc := range services {
		servicesByID[svc.ID] = svc
	}

	out := &ValidatedItems{Items: make(types.OrderItems, 0, len(items))}
	total := decimal.Zero
	for i, item := range items {
		var name string
		var price decimal.Decimal
		switch item.Type {
		case enums.ItemTypeProduct:
			p, ok := productsByID[item.ID]
			if !ok {
				return nil, invalidItem(i, item, "Invalid product in order")
			}
			name, price = p.Name, p.Price
		case enums.ItemTypeService:
			svc, ok := servicesByID[item.ID]
			if !ok {
				return nil, invalidItem(i, item, "Invalid service in order")
			}
			name, price = svc.Name, svc.Price
		}

		lineTotal := price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(lineTotal)
		out.Items = append(out.Items, types.OrderItem{
			Type:     item.Type,
			ID:       item.ID,
			Name:     name,
			Price:    types.NewMoney(price),
			Quantity: item.Quantity,
			Total:    types.NewMoney(lineTotal),
		})
	}

	out.Total = types.NewMoney(total)
	if !out.Total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid order total")
	}
	if out.Total.Exceeds() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Order total exceeds the maximum allowed").
			WithDetails(map[string]any{"max_total": types.MaxAmount.StringFixed(2)})
	}
	return out, nil
}

func (s *service) CreateGateway(ctx context.Context, branch *models.Branch, input CreateGatewayInput) (*models.PaymentGateway, error) {
	if branch == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
	}
	if _, err := s.repo.FindGatewayByBranch(ctx, branch.ID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "branch already has a payment gateway")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment gateway")
	}

	gateway := &models.PaymentGateway{
		BranchID:                 branch.ID,
		Slug:                     Slugify(input.Slug),
		IsEnabled:                input.IsEnabled,
		BusinessName:             input.BusinessName,
		LogoURL:                  input.LogoURL,
		PrimaryColor:             input.PrimaryColor,
		SecondaryColor:           input.SecondaryColor,
		TermsAndConditions:       input.TermsAndConditions,
		SuccessMessage:           input.SuccessMessage,
		AvailableProductIDs:      nonNil(input.AvailableProductIDs),
		AvailableServiceIDs:      nonNil(input.AvailableServiceIDs),
		AvailableSubscriptionIDs: []int64{},
	}

	base := branch.Name
	if input.BusinessName != nil && *input.BusinessName != "" {
		base = *input.BusinessName
	}
	if err := s.repo.CreateGateway(ctx, gateway, base, slugAttempts); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment gateway")
	}
	gateway.Branch = branch
	return gateway, nil
}

func invalidItem(index int, item RequestedItem, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{
		"index": index,
		"type":  item.Type,
		"id":    item.ID,
	})
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
