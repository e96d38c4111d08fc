// Package classify tags transfers as exchange-flow, whale or normal using
// the known-entity registry and a configurable whale threshold.
package classify

import (
	"strings"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
)

// DefaultWhaleThreshold is the decimal-adjusted value at or above which a
// transfer counts as a whale movement, unless overridden per scope.
var DefaultWhaleThreshold = decimal.NewFromInt(10000)

// fallbackDecimals is assumed when a record carries no usable decimals.
const fallbackDecimals = 18

// Options configures classification.
type Options struct {
	// WhaleThreshold is the decimal-adjusted value threshold. Zero or
	// negative falls back to DefaultWhaleThreshold.
	WhaleThreshold decimal.Decimal

	// FocalAddress, when set, annotates each transfer with its direction
	// relative to this address.
	FocalAddress string
}

// Classify derives classification flags for each record. Pure function,
// no I/O: the registry is consulted for endpoint categories and the
// threshold for whale size. Garbled numeric fields coerce to zero.
func Classify(records []*domain.TransferRecord, registry *Registry, opts Options) []domain.ClassifiedTransfer {
	threshold := opts.WhaleThreshold
	if threshold.LessThanOrEqual(decimal.Zero) {
		threshold = DefaultWhaleThreshold
	}
	focal := strings.ToLower(opts.FocalAddress)

	classified := make([]domain.ClassifiedTransfer, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}

		ct := domain.ClassifiedTransfer{TransferRecord: *rec}

		fromExchange := registry.IsExchange(rec.From)
		toExchange := registry.IsExchange(rec.To)

		// Exchange flow means exactly one endpoint is an exchange;
		// exchange-to-exchange shuffles carry no flow signal.
		ct.IsExchangeFlow = fromExchange != toExchange
		ct.ToExchange = ct.IsExchangeFlow && toExchange

		ct.IsWhale = DecimalValue(rec).GreaterThanOrEqual(threshold)

		if focal != "" {
			ct.Direction = direction(rec, focal)
		}

		classified = append(classified, ct)
	}

	return classified
}

// DecimalValue converts a record's raw value to its decimal-adjusted
// amount. Unparsable values coerce to zero; missing or zero decimals
// default to 18.
func DecimalValue(rec *domain.TransferRecord) decimal.Decimal {
	value, err := decimal.NewFromString(rec.Value)
	if err != nil {
		return decimal.Zero
	}

	decimals := rec.Decimals
	if decimals <= 0 {
		decimals = fallbackDecimals
	}

	return value.Shift(-decimals)
}

// direction determines the transfer direction relative to a focal address.
func direction(rec *domain.TransferRecord, focal string) domain.TransferDirection {
	from := rec.From == focal
	to := rec.To == focal

	switch {
	case from && to:
		return domain.DirectionSelf
	case from:
		return domain.DirectionOut
	case to:
		return domain.DirectionIn
	default:
		return domain.DirectionNone
	}
}
