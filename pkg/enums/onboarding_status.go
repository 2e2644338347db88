package enums

// OnboardingStatus is reported back to callers of the onboarding endpoints.
type OnboardingStatus string

const (
	OnboardingStatusPending   OnboardingStatus = "pending"
	OnboardingStatusCompleted OnboardingStatus = "completed"
	OnboardingStatusReset     OnboardingStatus = "reset"
)

// String implements fmt.Stringer.
func (s OnboardingStatus) String() string {
	return string(s)
}
