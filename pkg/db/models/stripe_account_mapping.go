package models

import "time"

// StripeAccountMapping caches the capability flags of a branch's connected account.
type StripeAccountMapping struct {
	ID               int64      `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID         int64      `gorm:"column:branch_id;not null;uniqueIndex"`
	StripeAccountID  string     `gorm:"column:stripe_account_id;not null;uniqueIndex"`
	ChargesEnabled   bool       `gorm:"column:charges_enabled;not null;default:false"`
	DetailsSubmitted bool       `gorm:"column:details_submitted;not null;default:false"`
	PayoutsEnabled   bool       `gorm:"column:payouts_enabled;not null;default:false"`
	SyncedAt         *time.Time `gorm:"column:synced_at"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OnboardingCompleted reports whether the vendor has all the details it asked for.
func (m *StripeAccountMapping) OnboardingCompleted() bool {
	return m != nil && m.DetailsSubmitted
}

// CanAcceptPayments reports whether charges may be created against the account.
func (m *StripeAccountMapping) CanAcceptPayments() bool {
	return m != nil && m.StripeAccountID != "" && m.ChargesEnabled && m.DetailsSubmitted
}
