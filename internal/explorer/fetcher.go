package explorer

import (
	"context"
	"errors"
	"log"
	"strconv"

	"token-flow-lab/internal/domain"
)

// defaultDecimals is assumed when the upstream omits token decimals or
// reports zero. Matches the prevailing ERC-20 convention.
const defaultDecimals = 18

// TransferSource is the fetch capability consumed by the sync orchestrator.
type TransferSource interface {
	// FetchSince returns upstream records with timestamp strictly greater
	// than since, validated and un-persisted.
	FetchSince(ctx context.Context, scope, network string, since int64) ([]*domain.TransferRecord, error)
}

// Fetcher retrieves transfer history from the explorer API and filters it
// down to the incremental delta for a scope.
//
// The upstream API has no native since-filter, so every call requests the
// full available history and filters locally. This is a documented
// limitation of the upstream, not an optimization target.
type Fetcher struct {
	client *Client
	logger *log.Logger
}

// NewFetcher creates a new Fetcher.
func NewFetcher(client *Client, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

var _ TransferSource = (*Fetcher)(nil)

// FetchSince fetches the scope's transfer history and returns records newer
// than since. Records with incomplete token metadata or unparsable numeric
// fields are dropped rather than cached with placeholder values.
//
// A missing API key is a skip: empty result, no error. Transport and parse
// failures are returned to the caller, which degrades to cache-only.
func (f *Fetcher) FetchSince(ctx context.Context, scope, network string, since int64) ([]*domain.TransferRecord, error) {
	raw, err := f.client.TokenTransfers(ctx, scope)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			f.logger.Printf("skipping fetch for scope %s: no api key configured", scope)
			return nil, nil
		}
		return nil, err
	}

	records := make([]*domain.TransferRecord, 0, len(raw))
	dropped := 0
	for i := range raw {
		rec, ok := f.convert(&raw[i], scope, network)
		if !ok {
			dropped++
			continue
		}
		if rec.Timestamp <= since {
			continue
		}
		records = append(records, rec)
	}

	if dropped > 0 {
		f.logger.Printf("dropped %d malformed record(s) for scope %s", dropped, scope)
	}

	return records, nil
}

// convert validates a raw explorer record and maps it to the domain type.
func (f *Fetcher) convert(raw *RawTransfer, scope, network string) (*domain.TransferRecord, bool) {
	if raw.Hash == "" || raw.From == "" || raw.To == "" {
		return nil, false
	}

	timestamp, err := strconv.ParseInt(raw.TimeStamp, 10, 64)
	if err != nil || timestamp <= 0 {
		return nil, false
	}

	blockNumber, err := strconv.ParseInt(raw.BlockNumber, 10, 64)
	if err != nil {
		return nil, false
	}

	decimals := defaultDecimals
	if raw.TokenDecimal != "" {
		if d, err := strconv.Atoi(raw.TokenDecimal); err == nil && d > 0 {
			decimals = d
		}
	}

	value := raw.Value
	if value == "" {
		value = "0"
	}

	rec := &domain.TransferRecord{
		Hash:         raw.Hash,
		From:         raw.From,
		To:           raw.To,
		Value:        value,
		TokenAddress: raw.ContractAddress,
		TokenSymbol:  raw.TokenSymbol,
		TokenName:    raw.TokenName,
		Decimals:     int32(decimals),
		BlockNumber:  blockNumber,
		Timestamp:    timestamp,
		Network:      network,
		Scope:        scope,
	}
	rec.Normalize()

	if !rec.HasTokenMetadata() {
		return nil, false
	}

	return rec, true
}
