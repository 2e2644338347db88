package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/branchpay/checkout-backend/internal/connect"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/logger"
)

const (
	defaultSyncStaleness = 30 * time.Minute
	defaultSyncLimit     = 100
)

type pendingOnboardingReader interface {
	ListPendingOnboarding(ctx context.Context, syncedBefore time.Time, limit int) ([]models.Branch, error)
}

type accountSyncer interface {
	SyncAccount(ctx context.Context, branch *models.Branch) (*connect.AccountStatus, error)
}

type AccountSyncJobParams struct {
	Logger    *logger.Logger
	Branches  pendingOnboardingReader
	Accounts  accountSyncer
	Staleness time.Duration
	Limit     int
	Now       func() time.Time
}

// NewAccountSyncJob refreshes the capability flags of branches that are still
// onboarding. Without vendor webhooks this is how a finished onboarding
// reaches the storefront when the manager never returns to the app.
func NewAccountSyncJob(params AccountSyncJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Branches == nil {
		return nil, fmt.Errorf("branch reader required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("account syncer required")
	}
	staleness := params.Staleness
	if staleness <= 0 {
		staleness = defaultSyncStaleness
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSyncLimit
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &accountSyncJob{
		logg:      params.Logger,
		branches:  params.Branches,
		accounts:  params.Accounts,
		staleness: staleness,
		limit:     limit,
		now:       now,
	}, nil
}

type accountSyncJob struct {
	logg      *logger.Logger
	branches  pendingOnboardingReader
	accounts  accountSyncer
	staleness time.Duration
	limit     int
	now       func() time.Time
}

func (j *accountSyncJob) Name() string { return "account-sync" }

// Run syncs each pending branch. A failing account is logged and skipped so one
// broken account does not block the rest.
func (j *accountSyncJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.staleness)
	pending, err := j.branches.ListPendingOnboarding(ctx, cutoff, j.limit)
	if err != nil {
		return 0, fmt.Errorf("list pending onboarding: %w", err)
	}

	synced, activated := 0, 0
	for i := range pending {
		branch := &pending[i]
		branchCtx := j.logg.WithBranchID(ctx, branch.ID)
		status, err := j.accounts.SyncAccount(branchCtx, branch)
		if err != nil {
			j.logg.Warn(j.logg.WithField(branchCtx, "error", err.Error()), "maintenance.account_sync_failed")
			continue
		}
		synced++
		if status.CanAcceptPayments {
			activated++
			j.logg.Info(branchCtx, "maintenance.account_activated")
		}
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"pending":   len(pending),
		"activated": activated,
	}), "maintenance.account_sync_done")
	return synced, nil
}
