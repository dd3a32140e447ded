package enums

import "fmt"

// CollateralStatus tracks reconciliation of an off-chain collateral record
// against its on-chain deposit.
type CollateralStatus string

const (
	CollateralStatusPending   CollateralStatus = "pending"
	CollateralStatusDeposited CollateralStatus = "deposited"
)

var validCollateralStatuses = []CollateralStatus{
	CollateralStatusPending,
	CollateralStatusDeposited,
}

// String implements fmt.Stringer.
func (s CollateralStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CollateralStatus.
func (s CollateralStatus) IsValid() bool {
	for _, candidate := range validCollateralStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCollateralStatus converts raw input into a CollateralStatus.
func ParseCollateralStatus(value string) (CollateralStatus, error) {
	for _, candidate := range validCollateralStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid collateral status %q", value)
}
