package explorer

import (
	"context"
	"errors"
	"log"

	"token-flow-lab/internal/domain"
)

// BalanceSource supplies holder balance lists for concentration analytics.
// Balances come from an external query capability, never from transfers.
type BalanceSource interface {
	TopHolders(ctx context.Context, tokenAddress string) ([]domain.HolderBalance, error)
}

// HolderFetcher retrieves holder balances from the explorer API.
type HolderFetcher struct {
	client *Client
	logger *log.Logger
}

// NewHolderFetcher creates a new HolderFetcher.
func NewHolderFetcher(client *Client, logger *log.Logger) *HolderFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &HolderFetcher{client: client, logger: logger}
}

var _ BalanceSource = (*HolderFetcher)(nil)

// TopHolders returns the holder balance list for a token contract.
// Holder data is optional enrichment: failures degrade to an empty list
// with a logged warning instead of failing the analytics request.
func (h *HolderFetcher) TopHolders(ctx context.Context, tokenAddress string) ([]domain.HolderBalance, error) {
	raw, err := h.client.TokenHolders(ctx, tokenAddress)
	if err != nil {
		if errors.Is(err, ErrMissingAPIKey) {
			return nil, nil
		}
		h.logger.Printf("holder fetch failed for %s: %v", tokenAddress, err)
		return nil, nil
	}

	holders := make([]domain.HolderBalance, 0, len(raw))
	for _, r := range raw {
		if r.Address == "" || r.Quantity == "" {
			continue
		}
		holders = append(holders, domain.HolderBalance{
			Address: r.Address,
			Balance: r.Quantity,
		})
	}
	return holders, nil
}
