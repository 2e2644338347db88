package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	pkgdb "github.com/branchpay/checkout-backend/pkg/db"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
)

const slugConstraint = "idx_payment_gateways_slug"

// Repository loads storefront configuration and catalog rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to catalog operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindGatewayBySlug loads a non-deleted gateway with its branch and account mapping.
func (r *Repository) FindGatewayBySlug(ctx context.Context, slug string) (*models.PaymentGateway, error) {
	var gateway models.PaymentGateway
	if err := r.db.WithContext(ctx).
		Preload("Branch").
		Preload("Branch.StripeAccount").
		Where("slug = ?", slug).
		First(&gateway).Error; err != nil {
		return nil, err
	}
	return &gateway, nil
}

// FindGatewayByBranch returns the storefront owned by the branch.
func (r *Repository) FindGatewayByBranch(ctx context.Context, branchID int64) (*models.PaymentGateway, error) {
	var gateway models.PaymentGateway
	if err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		First(&gateway).Error; err != nil {
		return nil, err
	}
	return &gateway, nil
}

// ActiveProducts returns the products among ids whose status is active.
func (r *Repository) ActiveProducts(ctx context.Context, ids []int64) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND status = ?", ids, enums.ProductStatusActive).
		Order("id").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// ActiveServices returns the services among ids flagged active.
func (r *Repository) ActiveServices(ctx context.Context, ids []int64) ([]models.Service, error) {
	var services []models.Service
	if len(ids) == 0 {
		return services, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Order("id").
		Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// SlugExists reports whether any gateway, soft-deleted ones included, holds slug.
func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.PaymentGateway{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateGateway persists gateway, generating a unique slug when none is set.
// The slug is regenerated if a concurrent insert claims it first.
func (r *Repository) CreateGateway(ctx context.Context, gateway *models.PaymentGateway, base string, attempts int) error {
	if gateway == nil {
		return fmt.Errorf("gateway is required")
	}
	if attempts <= 0 {
		attempts = 1
	}
	explicit := gateway.Slug != ""
	var lastErr error
	for i := 0; i < attempts; i++ {
		if !explicit {
			slug, err := GenerateUniqueSlug(ctx, base, r.SlugExists)
			if err != nil {
				return err
			}
			gateway.Slug = slug
		}
		err := r.db.WithContext(ctx).Create(gateway).Error
		if err == nil {
			return nil
		}
		if explicit || !pkgdb.IsUniqueViolation(err, "") {
			return err
		}
		lastErr = err
		gateway.ID = 0
	}
	return fmt.Errorf("allocate gateway slug: %w", lastErr)
}
