package domain

// EntityCategory classifies a known address.
type EntityCategory string

// Entity categories.
const (
	CategoryExchange EntityCategory = "EXCHANGE"
	CategoryContract EntityCategory = "CONTRACT"
	CategoryWallet   EntityCategory = "WALLET"
	CategoryVesting  EntityCategory = "VESTING"
	CategoryToken    EntityCategory = "TOKEN"
	CategoryUnknown  EntityCategory = "UNKNOWN"
)

// KnownEntity maps an address to an operator-assigned label and category.
// Entities are created and edited by operators and read-only to the core.
type KnownEntity struct {
	Address   string // lowercase
	Label     string // e.g. "Binance 14"
	Category  EntityCategory
	Tags      []string
	CreatedAt int64 // unix seconds
}
