package classify

import (
	"context"
	"strings"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// builtinExchanges maps well-known exchange hot wallet addresses to labels.
// This is the baseline set; operators extend it through the entity store
// and per-scope custom addresses.
var builtinExchanges = map[string]string{
	// Binance
	"0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be": "Binance",
	"0xd551234ae421e3bcba99a0da6d736074f22192ff": "Binance 2",
	"0x564286362092d8e7936f0549571a803b203aaced": "Binance 3",
	"0x28c6c06298d514db089934071355e5743bf21d60": "Binance 14",
	"0x21a31ee1afc51d94c2efccaa2092ad1028285549": "Binance 15",

	// Coinbase
	"0x71660c4005ba85c37ccec55d0c4493e66fe775d3": "Coinbase",
	"0x503828976d22510aad0201ac7ec88293211d23da": "Coinbase 2",
	"0xa090e606e30bd747d4e6245a1517ebe430f0057e": "Coinbase Commerce",

	// Kraken
	"0x2910543af39aba0cd09dbb2d50200b3e800a63d2": "Kraken",
	"0x0a869d79a7052c7f1b55a8ebabbea3420f0d1e13": "Kraken 2",

	// OKX
	"0x236f9f97e0e62388479bf9e5ba4889e46b0273c3": "OKX",
	"0x6cc5f688a315f3dc28a7781717a9a798a59fda7b": "OKX 2",

	// Bitfinex
	"0x742d35cc6634c0532925a3b844bc454e4438f44e": "Bitfinex",
	"0x876eabf441b2ee5b5b0554fd502a8e0600950cfa": "Bitfinex 2",

	// Huobi
	"0xdc76cd25977e0a5ae17155770273ad58648900d3": "Huobi",
	"0xab5c66752a9e8167967685f1450532fb96d5d24f": "Huobi 2",

	// Gate.io
	"0x0d0707963952f2fba59dd06f2b425ace40b492fe": "Gate.io",

	// KuCoin
	"0x2b5634c42055806a59e9107ed44d43c426e58258": "KuCoin",
}

// Registry resolves addresses to known-entity categories. Lookups are
// case-insensitive; all keys are stored lowercase.
type Registry struct {
	entries map[string]*domain.KnownEntity
}

// NewRegistry creates a registry seeded with the built-in exchange set,
// extended with per-scope custom exchange addresses.
func NewRegistry(customExchanges []string) *Registry {
	entries := make(map[string]*domain.KnownEntity, len(builtinExchanges)+len(customExchanges))

	for addr, label := range builtinExchanges {
		entries[addr] = &domain.KnownEntity{
			Address:  addr,
			Label:    label,
			Category: domain.CategoryExchange,
		}
	}

	for _, addr := range customExchanges {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			continue
		}
		if _, exists := entries[addr]; exists {
			continue
		}
		entries[addr] = &domain.KnownEntity{
			Address:  addr,
			Label:    "custom exchange",
			Category: domain.CategoryExchange,
		}
	}

	return &Registry{entries: entries}
}

// LoadRegistry builds a registry from the built-in set, custom addresses
// and every operator-labeled entity in the store. Operator entries win on
// address collision.
func LoadRegistry(ctx context.Context, store storage.EntityStore, customExchanges []string) (*Registry, error) {
	reg := NewRegistry(customExchanges)

	if store == nil {
		return reg, nil
	}

	entities, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		cp := *e
		cp.Address = strings.ToLower(e.Address)
		reg.entries[cp.Address] = &cp
	}

	return reg, nil
}

// Lookup resolves an address to its known entity, case-insensitive.
func (r *Registry) Lookup(address string) (*domain.KnownEntity, bool) {
	e, ok := r.entries[strings.ToLower(address)]
	return e, ok
}

// IsExchange reports whether an address is a known exchange.
func (r *Registry) IsExchange(address string) bool {
	e, ok := r.Lookup(address)
	return ok && e.Category == domain.CategoryExchange
}

// Category returns the category for an address, CategoryUnknown if unlabeled.
func (r *Registry) Category(address string) domain.EntityCategory {
	e, ok := r.Lookup(address)
	if !ok {
		return domain.CategoryUnknown
	}
	return e.Category
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	return len(r.entries)
}
