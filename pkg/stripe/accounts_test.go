package stripe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v84"
)

func TestBuildAccountParamsExpressWeeklyFriday(t *testing.T) {
	params := buildAccountParams(AccountRequest{BranchID: 42, Email: "branch@example.com", Name: "Downtown"}, "weekly", "friday")

	assert.Equal(t, string(stripe.AccountTypeExpress), *params.Type)
	assert.Equal(t, "weekly", *params.Settings.Payouts.Schedule.Interval)
	assert.Equal(t, "friday", *params.Settings.Payouts.Schedule.WeeklyAnchor)
	assert.Equal(t, "branch@example.com", *params.Email)
	assert.Equal(t, "42", params.Metadata["branch_id"])
	assert.True(t, *params.Capabilities.CardPayments.Requested)
	assert.True(t, *params.Capabilities.Transfers.Requested)
}

func TestBuildAccountParamsSkipsAnchorForDaily(t *testing.T) {
	params := buildAccountParams(AccountRequest{}, "daily", "friday")
	assert.Equal(t, "daily", *params.Settings.Payouts.Schedule.Interval)
	assert.Nil(t, params.Settings.Payouts.Schedule.WeeklyAnchor)
	assert.Nil(t, params.Email)
}

func TestAccountFrom(t *testing.T) {
	acct := accountFrom(&stripe.Account{ID: "acct_1", ChargesEnabled: true, DetailsSubmitted: true})
	assert.Equal(t, "acct_1", acct.ID)
	assert.True(t, acct.ChargesEnabled)
	assert.True(t, acct.DetailsSubmitted)
	assert.False(t, acct.PayoutsEnabled)
}
