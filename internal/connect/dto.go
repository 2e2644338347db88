package connect

import "github.com/branchpay/checkout-backend/pkg/enums"

const (
	messageOnboardingCompleted = "Onboarding already completed. Dashboard URL provided."
	messageOnboardingPending   = "Onboarding URL generated successfully."
	messageAccountReset        = "Stripe account reset successfully. New onboarding URL generated."
)

// OnboardingLink is the hosted URL handed back to the branch manager.
type OnboardingLink struct {
	URL     string                 `json:"url"`
	Status  enums.OnboardingStatus `json:"status"`
	Message string                 `json:"message"`
}

// AccountStatus summarises the branch's connected account.
type AccountStatus struct {
	HasStripeAccount    bool    `json:"hasStripeAccount"`
	OnboardingCompleted bool    `json:"onboardingCompleted"`
	StripeAccountID     *string `json:"stripeAccountId"`
	CanAcceptPayments   bool    `json:"canAcceptPayments"`
	PayoutsEnabled      bool    `json:"payoutsEnabled"`
}

// DashboardLink wraps the express dashboard login URL.
type DashboardLink struct {
	URL string `json:"url"`
}
