package domain

// TransferDirection describes a transfer relative to a focal address.
type TransferDirection string

// Directions relative to the focal address. DirectionNone is used when no
// focal address was supplied or the transfer does not touch it.
const (
	DirectionIn   TransferDirection = "in"
	DirectionOut  TransferDirection = "out"
	DirectionSelf TransferDirection = "self"
	DirectionNone TransferDirection = ""
)

// ClassifiedTransfer is a TransferRecord with derived classification flags.
type ClassifiedTransfer struct {
	TransferRecord

	// IsExchangeFlow is true when exactly one endpoint is a known EXCHANGE.
	IsExchangeFlow bool
	// ToExchange is true for exchange flows whose destination is the exchange.
	ToExchange bool
	// IsWhale is true when the decimal-adjusted value meets the threshold.
	IsWhale bool
	// Direction is set relative to a focal address, if one was provided.
	Direction TransferDirection
}
