package domain

import "strings"

// TransferRecord represents one on-chain token movement cached for a scope.
// Corresponds to the transfers table in PostgreSQL.
type TransferRecord struct {
	Hash         string // transaction hash, unique within (scope, network)
	From         string // sender address, lowercase-normalized
	To           string // recipient address, lowercase-normalized
	Value        string // raw smallest-unit amount, arbitrary-precision decimal string
	TokenAddress string // token contract address
	TokenSymbol  string
	TokenName    string
	Decimals     int32
	BlockNumber  int64
	Timestamp    int64  // unix seconds
	Network      string // e.g. "mainnet", "sepolia"
	Scope        string // partition key: wallet, vesting contract, or token id
	CreatedAt    int64  // record creation timestamp (unix seconds), set by the store
}

// Normalize lowercases the address fields in place. Cache keys and
// registry lookups assume lowercase addresses throughout.
func (t *TransferRecord) Normalize() {
	t.From = strings.ToLower(t.From)
	t.To = strings.ToLower(t.To)
	t.TokenAddress = strings.ToLower(t.TokenAddress)
	t.Scope = strings.ToLower(t.Scope)
}

// HasTokenMetadata reports whether the record carries complete token
// metadata. Records without it are dropped at fetch time rather than
// cached with placeholder values.
func (t *TransferRecord) HasTokenMetadata() bool {
	return t.TokenAddress != "" && t.TokenSymbol != "" && t.TokenName != ""
}
