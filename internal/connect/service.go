// Package connect manages the connected payment account of a branch:
// creation, onboarding and dashboard links, reset, and capability sync.
package connect

import (
	"context"
	"fmt"
	"strings"

	"github.com/branchpay/checkout-backend/internal/capability"
	"github.com/branchpay/checkout-backend/pkg/db/models"
	"github.com/branchpay/checkout-backend/pkg/enums"
	pkgerrors "github.com/branchpay/checkout-backend/pkg/errors"
	"github.com/branchpay/checkout-backend/pkg/logger"
	"github.com/branchpay/checkout-backend/pkg/stripe"
)

type accountProvider interface {
	CreateExpress(ctx context.Context, req stripe.AccountRequest) (*stripe.Account, error)
	Retrieve(ctx context.Context, accountID string) (*stripe.Account, error)
	Delete(ctx context.Context, accountID string) error
	OnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error)
	DashboardLink(ctx context.Context, accountID string) (string, error)
}

type mappingStore interface {
	FindMapping(ctx context.Context, branchID int64) (*models.StripeAccountMapping, error)
	SaveMapping(ctx context.Context, mapping *models.StripeAccountMapping) error
	DeleteMapping(ctx context.Context, branchID int64) error
}

type capabilityCache interface {
	Store(ctx context.Context, snap *capability.Snapshot) error
	Invalidate(ctx context.Context, branchID int64) error
}

// Service is the account lifecycle manager.
type Service interface {
	GenerateOnboardingURL(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*OnboardingLink, error)
	Status(ctx context.Context, branch *models.Branch) (*AccountStatus, error)
	DashboardURL(ctx context.Context, branch *models.Branch) (*DashboardLink, error)
	ResetAccount(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*OnboardingLink, error)
	SyncAccount(ctx context.Context, branch *models.Branch) (*AccountStatus, error)
}

type service struct {
	accounts accountProvider
	mappings mappingStore
	cache    capabilityCache
	logg     *logger.Logger
}

// NewService wires the lifecycle manager.
func NewService(accounts accountProvider, mappings mappingStore, cache capabilityCache, logg *logger.Logger) (Service, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account provider required")
	}
	if mappings == nil {
		return nil, fmt.Errorf("mapping store required")
	}
	if cache == nil {
		return nil, fmt.Errorf("capability cache required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{accounts: accounts, mappings: mappings, cache: cache, logg: logg}, nil
}

// GenerateOnboardingURL short-circuits to the dashboard for an account that
// can already take payments; otherwise it ensures an account exists and
// returns a fresh onboarding link.
func (s *service) GenerateOnboardingURL(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*OnboardingLink, error) {
	if branch == nil {
		return nil, errBranchNotFound
	}
	ctx = s.logg.WithBranchID(ctx, branch.ID)

	mapping := branch.StripeAccount
	if mapping != nil && mapping.StripeAccountID != "" {
		synced, err := s.sync(ctx, branch.ID, mapping.StripeAccountID)
		if err != nil {
			s.logg.Warn(ctx, "connect.sync_failed: "+err.Error())
		} else {
			mapping = synced
		}
		if mapping.CanAcceptPayments() {
			url, err := s.accounts.DashboardLink(ctx, mapping.StripeAccountID)
			if err != nil {
				return nil, vendorError(err, "generate dashboard link")
			}
			return &OnboardingLink{URL: url, Status: enums.OnboardingStatusCompleted, Message: messageOnboardingCompleted}, nil
		}
	} else {
		created, err := s.createAccount(ctx, branch)
		if err != nil {
			return nil, err
		}
		mapping = created
	}

	url, err := s.accounts.OnboardingLink(ctx, mapping.StripeAccountID, returnURL, refreshURL)
	if err != nil {
		return nil, vendorError(err, "generate onboarding link")
	}
	return &OnboardingLink{URL: url, Status: enums.OnboardingStatusPending, Message: messageOnboardingPending}, nil
}

// Status reports the locally cached mapping without calling the vendor.
func (s *service) Status(ctx context.Context, branch *models.Branch) (*AccountStatus, error) {
	if branch == nil {
		return nil, errBranchNotFound
	}
	mapping, err := s.mappings.FindMapping(ctx, branch.ID)
	if err != nil && !isNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load stripe account mapping")
	}
	return statusFrom(mapping), nil
}

func (s *service) DashboardURL(ctx context.Context, branch *models.Branch) (*DashboardLink, error) {
	if branch == nil {
		return nil, errBranchNotFound
	}
	accountID := branch.StripeAccountID()
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Branch does not have a Stripe account.")
	}
	url, err := s.accounts.DashboardLink(ctx, accountID)
	if err != nil {
		return nil, vendorError(err, "generate dashboard link")
	}
	return &DashboardLink{URL: url}, nil
}

// ResetAccount deletes the connected account and starts onboarding again
// with a new one. Orders already paid stay on the old account.
func (s *service) ResetAccount(ctx context.Context, branch *models.Branch, returnURL, refreshURL string) (*OnboardingLink, error) {
	if branch == nil {
		return nil, errBranchNotFound
	}
	ctx = s.logg.WithBranchID(ctx, branch.ID)

	if previous := branch.StripeAccountID(); previous != "" {
		if err := s.accounts.Delete(ctx, previous); err != nil {
			return nil, vendorError(err, "delete stripe account")
		}
		if err := s.mappings.DeleteMapping(ctx, branch.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete stripe account mapping")
		}
		if err := s.cache.Invalidate(ctx, branch.ID); err != nil {
			s.logg.Warn(ctx, "connect.cache_invalidate_failed: "+err.Error())
		}
		branch.StripeAccount = nil
		s.logg.Info(s.logg.WithField(ctx, "previous_account_id", previous), "connect.account_reset")
	}

	mapping, err := s.createAccount(ctx, branch)
	if err != nil {
		return nil, err
	}
	url, err := s.accounts.OnboardingLink(ctx, mapping.StripeAccountID, returnURL, refreshURL)
	if err != nil {
		return nil, vendorError(err, "generate onboarding link")
	}
	return &OnboardingLink{URL: url, Status: enums.OnboardingStatusReset, Message: messageAccountReset}, nil
}

// SyncAccount re-reads the live account and refreshes the mapping and cache.
func (s *service) SyncAccount(ctx context.Context, branch *models.Branch) (*AccountStatus, error) {
	if branch == nil {
		return nil, errBranchNotFound
	}
	accountID := branch.StripeAccountID()
	if accountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Branch does not have a Stripe account.")
	}
	mapping, err := s.sync(s.logg.WithBranchID(ctx, branch.ID), branch.ID, accountID)
	if err != nil {
		return nil, err
	}
	return statusFrom(mapping), nil
}

func (s *service) createAccount(ctx context.Context, branch *models.Branch) (*models.StripeAccountMapping, error) {
	email := ""
	if branch.Email != nil {
		email = strings.TrimSpace(*branch.Email)
	}
	acct, err := s.accounts.CreateExpress(ctx, stripe.AccountRequest{
		BranchID: branch.ID,
		Email:    email,
		Name:     branch.Name,
	})
	if err != nil {
		return nil, vendorError(err, "create stripe account")
	}
	mapping, err := s.store(ctx, branch.ID, acct)
	if err != nil {
		return nil, err
	}
	branch.StripeAccount = mapping
	s.logg.Info(s.logg.WithField(ctx, "stripe_account_id", acct.ID), "connect.account_created")
	return mapping, nil
}

func (s *service) sync(ctx context.Context, branchID int64, accountID string) (*models.StripeAccountMapping, error) {
	acct, err := s.accounts.Retrieve(ctx, accountID)
	if err != nil {
		return nil, vendorError(err, "retrieve stripe account")
	}
	return s.store(ctx, branchID, acct)
}

// store writes the vendor flags to the mapping table, then the cache.
func (s *service) store(ctx context.Context, branchID int64, acct *stripe.Account) (*models.StripeAccountMapping, error) {
	mapping := &models.StripeAccountMapping{
		BranchID:         branchID,
		StripeAccountID:  acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		PayoutsEnabled:   acct.PayoutsEnabled,
	}
	if err := s.mappings.SaveMapping(ctx, mapping); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save stripe account mapping")
	}
	if err := s.cache.Store(ctx, capability.FromMapping(branchID, mapping)); err != nil {
		s.logg.Warn(ctx, "connect.cache_store_failed: "+err.Error())
	}
	return mapping, nil
}

func statusFrom(mapping *models.StripeAccountMapping) *AccountStatus {
	status := &AccountStatus{}
	if mapping == nil || mapping.StripeAccountID == "" {
		return status
	}
	id := mapping.StripeAccountID
	status.HasStripeAccount = true
	status.StripeAccountID = &id
	status.OnboardingCompleted = mapping.OnboardingCompleted()
	status.CanAcceptPayments = mapping.CanAcceptPayments()
	status.PayoutsEnabled = mapping.PayoutsEnabled
	return status
}
