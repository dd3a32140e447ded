package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateEscrow     OutboxAggregateType = "escrow"
	AggregateLoan       OutboxAggregateType = "loan"
	AggregateOracle     OutboxAggregateType = "oracle"
	AggregateCollateral OutboxAggregateType = "collateral"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateEscrow,
	AggregateLoan,
	AggregateOracle,
	AggregateCollateral,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventEscrowCreated              OutboxEventType = "escrow_created"
	EventEscrowStatusChanged        OutboxEventType = "escrow_status_changed"
	EventEscrowExpired              OutboxEventType = "escrow_expired"
	EventEscrowDisputed             OutboxEventType = "escrow_disputed"
	EventLoanIssued                 OutboxEventType = "loan_issued"
	EventLoanRepaymentRecorded      OutboxEventType = "loan_repayment_recorded"
	EventLoanRepaid                 OutboxEventType = "loan_repaid"
	EventLoanDefaulted              OutboxEventType = "loan_defaulted"
	EventOracleRegistered           OutboxEventType = "oracle_registered"
	EventOracleConfirmationRecorded OutboxEventType = "oracle_confirmation_recorded"
	EventCollateralCreated          OutboxEventType = "collateral_created"
	EventCollateralDeposited        OutboxEventType = "collateral_deposited"
)

var validOutboxEventTypes = []OutboxEventType{
	EventEscrowCreated,
	EventEscrowStatusChanged,
	EventEscrowExpired,
	EventEscrowDisputed,
	EventLoanIssued,
	EventLoanRepaymentRecorded,
	EventLoanRepaid,
	EventLoanDefaulted,
	EventOracleRegistered,
	EventOracleConfirmationRecorded,
	EventCollateralCreated,
	EventCollateralDeposited,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
