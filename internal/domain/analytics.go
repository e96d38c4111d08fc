package domain

import "github.com/shopspring/decimal"

// DailyBucket accumulates volume for one UTC calendar date. Category
// volumes are mutually exclusive: a transfer contributes to exactly one of
// exchange/whale/normal, exchange flow taking precedence over whale size.
type DailyBucket struct {
	Date             string // "2006-01-02" (UTC)
	TotalVolume      decimal.Decimal
	ExchangeVolume   decimal.Decimal
	WhaleVolume      decimal.Decimal
	NormalVolume     decimal.Decimal
	NetExchangeFlow  decimal.Decimal // positive = net movement into exchanges
	TransactionCount int
}

// HolderBalance is one entry of an externally-supplied holder balance list.
type HolderBalance struct {
	Address string
	Balance string // raw smallest-unit amount, decimal string
}

// HolderDistribution summarizes holder concentration for a scope.
type HolderDistribution struct {
	Holders   []HolderBalance // ranked by balance descending
	Top10Pct  float64         // share of total supply held by ranks 1-10
	Top50Pct  float64         // share of total supply held by ranks 11-50
	HolderCnt int
}

// Alert severity levels.
const (
	AlertSeverityInfo     = "info"
	AlertSeverityWarning  = "warning"
	AlertSeverityCritical = "critical"
)

// Alert types.
const (
	AlertTypeWhaleMove         = "whale_move"
	AlertTypeExchangeFlowSurge = "exchange_flow_surge"
)

// Alert is descriptive analytics output, never an error condition.
type Alert struct {
	Type      string
	Severity  string
	Message   string
	Timestamp int64             // unix seconds of the triggering data point
	Payload   map[string]string // optional structured context
}

// AnalyticsSnapshot is recomputed per request and never persisted.
type AnalyticsSnapshot struct {
	Scope           string
	Network         string
	WindowDays      int
	DailyBuckets    []DailyBucket // ascending by date, trimmed to window
	Holders         HolderDistribution
	NetExchangeFlow decimal.Decimal // signed total over the window
	Alerts          []Alert
	// Stale is true when the snapshot was built from cache-only data
	// because the upstream fetch degraded.
	Stale bool
}
