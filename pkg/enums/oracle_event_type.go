package enums

import "fmt"

// OracleEventType identifies the off-chain fact an oracle attests to.
type OracleEventType string

const (
	OracleEventShipment OracleEventType = "shipment"
	OracleEventDelivery OracleEventType = "delivery"
	OracleEventQuality  OracleEventType = "quality"
	OracleEventCustom   OracleEventType = "custom"
)

var validOracleEventTypes = []OracleEventType{
	OracleEventShipment,
	OracleEventDelivery,
	OracleEventQuality,
	OracleEventCustom,
}

// String implements fmt.Stringer.
func (t OracleEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known OracleEventType.
func (t OracleEventType) IsValid() bool {
	for _, candidate := range validOracleEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOracleEventType converts raw input into an OracleEventType.
func ParseOracleEventType(value string) (OracleEventType, error) {
	for _, candidate := range validOracleEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid oracle event type %q", value)
}
