package stripe

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
	"github.com/stripe/stripe-go/v84/accountlink"
	"github.com/stripe/stripe-go/v84/loginlink"
)

const accountLinkTypeOnboarding = "account_onboarding"

// Account is the capability view of a connected account.
type Account struct {
	ID               string
	ChargesEnabled   bool
	DetailsSubmitted bool
	PayoutsEnabled   bool
}

// AccountRequest carries the branch data sent when a connected account is created.
type AccountRequest struct {
	BranchID int64
	Email    string
	Name     string
}

// Accounts manages express connected accounts and their hosted links.
type Accounts struct {
	client *Client
}

// NewAccounts binds the Connect account operations to client.
func NewAccounts(client *Client) *Accounts {
	return &Accounts{client: client}
}

// CreateExpress creates an express account with the configured payout schedule.
func (a *Accounts) CreateExpress(ctx context.Context, req AccountRequest) (*Account, error) {
	params := buildAccountParams(req, a.client.payoutInterval, a.client.payoutAnchor)
	var acct *stripe.Account
	err := a.client.call(ctx, "account.create", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		acct, callErr = account.New(params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return accountFrom(acct), nil
}

// Retrieve reads the live capability flags of the account.
func (a *Accounts) Retrieve(ctx context.Context, accountID string) (*Account, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, fmt.Errorf("connected account id is required")
	}
	params := &stripe.AccountParams{}
	var acct *stripe.Account
	err := a.client.call(ctx, "account.retrieve", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		acct, callErr = account.GetByID(accountID, params)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return accountFrom(acct), nil
}

// Delete removes the connected account. There is no undo.
func (a *Accounts) Delete(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("connected account id is required")
	}
	params := &stripe.AccountParams{}
	return a.client.call(ctx, "account.delete", func(ctx context.Context) error {
		params.Context = ctx
		_, callErr := account.Del(accountID, params)
		return callErr
	})
}

// OnboardingLink returns a fresh hosted onboarding URL.
func (a *Accounts) OnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (string, error) {
	params := &stripe.AccountLinkParams{
		Account:    stripe.String(accountID),
		ReturnURL:  stripe.String(returnURL),
		RefreshURL: stripe.String(refreshURL),
		Type:       stripe.String(accountLinkTypeOnboarding),
	}
	var link *stripe.AccountLink
	err := a.client.call(ctx, "account_link.create", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		link, callErr = accountlink.New(params)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

// DashboardLink returns a single-use express dashboard login URL.
func (a *Accounts) DashboardLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.LoginLinkParams{
		Account: stripe.String(accountID),
	}
	var link *stripe.LoginLink
	err := a.client.call(ctx, "login_link.create", func(ctx context.Context) error {
		params.Context = ctx
		var callErr error
		link, callErr = loginlink.New(params)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return link.URL, nil
}

func buildAccountParams(req AccountRequest, interval, anchor string) *stripe.AccountParams {
	if interval == "" {
		interval = "weekly"
	}
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval: stripe.String(interval),
				},
			},
		},
	}
	if interval == "weekly" && anchor != "" {
		params.Settings.Payouts.Schedule.WeeklyAnchor = stripe.String(anchor)
	}
	if req.Email != "" {
		params.Email = stripe.String(req.Email)
	}
	if req.BranchID > 0 {
		params.AddMetadata("branch_id", strconv.FormatInt(req.BranchID, 10))
	}
	if req.Name != "" {
		params.AddMetadata("branch_name", req.Name)
	}
	return params
}

func accountFrom(acct *stripe.Account) *Account {
	if acct == nil {
		return nil
	}
	return &Account{
		ID:               acct.ID,
		ChargesEnabled:   acct.ChargesEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		PayoutsEnabled:   acct.PayoutsEnabled,
	}
}
