package enums

import "fmt"

// CommissionType describes how the platform fee is computed for a branch.
type CommissionType string

const (
	CommissionTypePercentage CommissionType = "percentage"
	CommissionTypeFixed      CommissionType = "fixed"
)

var validCommissionTypes = []CommissionType{
	CommissionTypePercentage,
	CommissionTypeFixed,
}

// String implements fmt.Stringer.
func (c CommissionType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionType.
func (c CommissionType) IsValid() bool {
	for _, candidate := range validCommissionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionType converts raw input into a CommissionType.
func ParseCommissionType(value string) (CommissionType, error) {
	for _, candidate := range validCommissionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission type %q", value)
}
