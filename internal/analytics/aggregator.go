// Package analytics derives the per-request analytics snapshot from a
// classified transfer stream. Everything here is pure and stateless:
// snapshots are fully derived, recomputable and safe to discard.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
)

// DefaultSurgeFraction is the fraction of trailing average daily volume a
// day's net exchange flow must exceed to raise a surge alert.
const DefaultSurgeFraction = 0.5

// Options configures snapshot construction.
type Options struct {
	Scope   string
	Network string

	// WindowDays trims the daily series to the most recent N days.
	// Zero or negative keeps every day present in the data.
	WindowDays int

	// FillMissingDays synthesizes zero-rows for days inside the window
	// with no transfers, producing a fixed-length series.
	FillMissingDays bool

	// WhaleThreshold is the decimal-adjusted whale threshold used for
	// alert severity scaling. Zero disables severity scaling (all whale
	// alerts are emitted at info).
	WhaleThreshold decimal.Decimal

	// SurgeFraction overrides DefaultSurgeFraction when positive.
	SurgeFraction float64

	// Stale marks the snapshot as built from cache-only data.
	Stale bool
}

// BuildSnapshot computes the full analytics snapshot for a classified
// transfer stream plus an externally-supplied holder balance list.
//
// It never fails on data that merely triggers alerts; malformed numeric
// fields coerce to zero.
func BuildSnapshot(classified []domain.ClassifiedTransfer, holders []domain.HolderBalance, totalSupply string, opts Options) *domain.AnalyticsSnapshot {
	buckets := buildDailyBuckets(classified, opts.WindowDays, opts.FillMissingDays)

	netFlow := decimal.Zero
	for _, b := range buckets {
		netFlow = netFlow.Add(b.NetExchangeFlow)
	}

	snapshot := &domain.AnalyticsSnapshot{
		Scope:           opts.Scope,
		Network:         opts.Network,
		WindowDays:      opts.WindowDays,
		DailyBuckets:    buckets,
		Holders:         buildHolderDistribution(holders, totalSupply),
		NetExchangeFlow: netFlow,
		Alerts:          buildAlerts(classified, buckets, opts),
		Stale:           opts.Stale,
	}

	return snapshot
}

// bucketDate formats a unix timestamp as its UTC calendar date.
func bucketDate(timestamp int64) string {
	return time.Unix(timestamp, 0).UTC().Format("2006-01-02")
}

// buildDailyBuckets groups transfers by UTC calendar date. Each transfer
// contributes its decimal-adjusted value to exactly one category volume:
// exchange flow takes precedence over whale size, since exchange routing
// is the more actionable signal.
func buildDailyBuckets(classified []domain.ClassifiedTransfer, windowDays int, fillMissing bool) []domain.DailyBucket {
	byDate := make(map[string]*domain.DailyBucket)

	for i := range classified {
		ct := &classified[i]
		date := bucketDate(ct.Timestamp)

		bucket, ok := byDate[date]
		if !ok {
			bucket = &domain.DailyBucket{Date: date}
			byDate[date] = bucket
		}

		value := transferValue(ct)
		bucket.TotalVolume = bucket.TotalVolume.Add(value)
		bucket.TransactionCount++

		switch {
		case ct.IsExchangeFlow:
			bucket.ExchangeVolume = bucket.ExchangeVolume.Add(value)
			if ct.ToExchange {
				bucket.NetExchangeFlow = bucket.NetExchangeFlow.Add(value)
			} else {
				bucket.NetExchangeFlow = bucket.NetExchangeFlow.Sub(value)
			}
		case ct.IsWhale:
			bucket.WhaleVolume = bucket.WhaleVolume.Add(value)
		default:
			bucket.NormalVolume = bucket.NormalVolume.Add(value)
		}
	}

	buckets := make([]domain.DailyBucket, 0, len(byDate))
	for _, b := range byDate {
		buckets = append(buckets, *b)
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date < buckets[j].Date
	})

	if fillMissing && windowDays > 0 && len(buckets) > 0 {
		buckets = fillMissingDays(buckets, windowDays)
	}

	if windowDays > 0 && len(buckets) > windowDays {
		buckets = buckets[len(buckets)-windowDays:]
	}

	return buckets
}

// fillMissingDays synthesizes zero-rows so the series covers every day up
// to the most recent bucket. Only used when the caller explicitly asks for
// a fixed-length series.
func fillMissingDays(buckets []domain.DailyBucket, windowDays int) []domain.DailyBucket {
	byDate := make(map[string]domain.DailyBucket, len(buckets))
	for _, b := range buckets {
		byDate[b.Date] = b
	}

	last, err := time.Parse("2006-01-02", buckets[len(buckets)-1].Date)
	if err != nil {
		return buckets
	}

	filled := make([]domain.DailyBucket, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		date := last.AddDate(0, 0, -i).Format("2006-01-02")
		if b, ok := byDate[date]; ok {
			filled = append(filled, b)
		} else {
			filled = append(filled, domain.DailyBucket{Date: date})
		}
	}

	return filled
}

// transferValue returns a transfer's decimal-adjusted value, coercing
// malformed values to zero.
func transferValue(ct *domain.ClassifiedTransfer) decimal.Decimal {
	value, err := decimal.NewFromString(ct.Value)
	if err != nil {
		return decimal.Zero
	}

	decimals := ct.Decimals
	if decimals <= 0 {
		decimals = 18
	}

	return value.Shift(-decimals)
}
