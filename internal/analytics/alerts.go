package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
)

// buildAlerts emits whale-move alerts per qualifying transfer and
// exchange-flow-surge alerts per qualifying day. Alerts are descriptive
// data, never errors.
func buildAlerts(classified []domain.ClassifiedTransfer, buckets []domain.DailyBucket, opts Options) []domain.Alert {
	var alerts []domain.Alert

	for i := range classified {
		ct := &classified[i]
		if !ct.IsWhale {
			continue
		}
		alerts = append(alerts, whaleAlert(ct, opts.WhaleThreshold))
	}

	surgeFraction := opts.SurgeFraction
	if surgeFraction <= 0 {
		surgeFraction = DefaultSurgeFraction
	}
	alerts = append(alerts, surgeAlerts(buckets, surgeFraction)...)

	return alerts
}

// whaleAlert builds one whale_move alert. Severity scales with the
// multiple of the threshold: info below 2x, warning below 5x, critical
// at 5x and above.
func whaleAlert(ct *domain.ClassifiedTransfer, threshold decimal.Decimal) domain.Alert {
	value := transferValue(ct)

	severity := domain.AlertSeverityInfo
	if threshold.GreaterThan(decimal.Zero) {
		multiple := value.Div(threshold)
		switch {
		case multiple.GreaterThanOrEqual(decimal.NewFromInt(5)):
			severity = domain.AlertSeverityCritical
		case multiple.GreaterThanOrEqual(decimal.NewFromInt(2)):
			severity = domain.AlertSeverityWarning
		}
	}

	return domain.Alert{
		Type:      domain.AlertTypeWhaleMove,
		Severity:  severity,
		Message:   fmt.Sprintf("whale transfer of %s %s", value.String(), ct.TokenSymbol),
		Timestamp: ct.Timestamp,
		Payload: map[string]string{
			"hash":  ct.Hash,
			"from":  ct.From,
			"to":    ct.To,
			"value": value.String(),
		},
	}
}

// dateTimestamp converts a bucket date back to its midnight-UTC unix time.
func dateTimestamp(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0
	}
	return t.Unix()
}

// surgeAlerts flags days whose absolute net exchange flow exceeds the
// configured fraction of the trailing average daily volume. The first day
// has no trailing history and never alerts.
func surgeAlerts(buckets []domain.DailyBucket, fraction float64) []domain.Alert {
	var alerts []domain.Alert

	trailing := decimal.Zero
	for i, b := range buckets {
		if i > 0 {
			avg := trailing.Div(decimal.NewFromInt(int64(i)))
			limit := avg.Mul(decimal.NewFromFloat(fraction))
			if limit.GreaterThan(decimal.Zero) && b.NetExchangeFlow.Abs().GreaterThan(limit) {
				direction := "into exchanges"
				if b.NetExchangeFlow.IsNegative() {
					direction = "out of exchanges"
				}
				alerts = append(alerts, domain.Alert{
					Type:      domain.AlertTypeExchangeFlowSurge,
					Severity:  domain.AlertSeverityWarning,
					Timestamp: dateTimestamp(b.Date),
					Message: fmt.Sprintf("net flow of %s %s on %s exceeds %s of trailing average volume",
						b.NetExchangeFlow.Abs().String(), direction, b.Date, limit.String()),
					Payload: map[string]string{
						"date":     b.Date,
						"net_flow": b.NetExchangeFlow.String(),
						"limit":    limit.String(),
					},
				})
			}
		}
		trailing = trailing.Add(b.TotalVolume)
	}

	return alerts
}
