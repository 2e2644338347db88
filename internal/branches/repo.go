package branches

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/branchpay/checkout-backend/pkg/db/models"
)

// Repository handles branch and connected-account mapping persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to branch operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads an active, non-deleted branch with its account mapping.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Branch, error) {
	var branch models.Branch
	if err := r.db.WithContext(ctx).
		Preload("StripeAccount").
		Where("id = ?", id).
		First(&branch).Error; err != nil {
		return nil, err
	}
	return &branch, nil
}

// FindMapping returns the connected-account mapping of the branch.
func (r *Repository) FindMapping(ctx context.Context, branchID int64) (*models.StripeAccountMapping, error) {
	var mapping models.StripeAccountMapping
	if err := r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		First(&mapping).Error; err != nil {
		return nil, err
	}
	return &mapping, nil
}

// SaveMapping inserts or replaces the mapping for mapping.BranchID.
func (r *Repository) SaveMapping(ctx context.Context, mapping *models.StripeAccountMapping) error {
	if mapping == nil {
		return fmt.Errorf("mapping is required")
	}
	if mapping.BranchID <= 0 || mapping.StripeAccountID == "" {
		return fmt.Errorf("branch id and stripe account id are required")
	}
	now := time.Now().UTC()
	mapping.SyncedAt = &now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "branch_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"stripe_account_id",
				"charges_enabled",
				"details_submitted",
				"payouts_enabled",
				"synced_at",
				"updated_at",
			}),
		}).
		Create(mapping).Error
}

// DeleteMapping removes the mapping of the branch. Missing rows are not an error.
func (r *Repository) DeleteMapping(ctx context.Context, branchID int64) error {
	return r.db.WithContext(ctx).
		Where("branch_id = ?", branchID).
		Delete(&models.StripeAccountMapping{}).Error
}

// ListPendingOnboarding returns active branches whose connected account cannot
// take payments yet and whose flags were last synced before the cutoff.
func (r *Repository) ListPendingOnboarding(ctx context.Context, syncedBefore time.Time, limit int) ([]models.Branch, error) {
	var branches []models.Branch
	q := r.db.WithContext(ctx).
		Preload("StripeAccount").
		Joins("JOIN stripe_account_mappings m ON m.branch_id = branches.id").
		Where("branches.is_active = ?", true).
		Where("(m.charges_enabled = ? OR m.details_submitted = ?)", false, false).
		Where("(m.synced_at IS NULL OR m.synced_at < ?)", syncedBefore).
		Order("branches.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

// IsNotFound reports whether err is a missing-row error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
