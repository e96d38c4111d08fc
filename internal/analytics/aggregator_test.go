package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
)

// day returns a unix timestamp inside the given UTC date at noon.
func day(date string) int64 {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour).Unix()
}

// wholeTokens formats n tokens as an 18-decimal raw value string.
func wholeTokens(n int64) string {
	return decimal.NewFromInt(n).Shift(18).String()
}

func classified(hash string, ts int64, tokens int64) domain.ClassifiedTransfer {
	return domain.ClassifiedTransfer{
		TransferRecord: domain.TransferRecord{
			Hash:        hash,
			From:        "0xa",
			To:          "0xb",
			Value:       wholeTokens(tokens),
			TokenSymbol: "TKN",
			Decimals:    18,
			Timestamp:   ts,
		},
	}
}

func TestBuildDailyBuckets_CategoryExclusivity(t *testing.T) {
	ts := day("2026-08-01")

	normal := classified("0x1", ts, 10)

	whale := classified("0x2", ts, 20)
	whale.IsWhale = true

	toExchange := classified("0x3", ts, 30)
	toExchange.IsExchangeFlow = true
	toExchange.ToExchange = true

	// Whale-sized transfer into an exchange counts as exchange volume only.
	whaleToExchange := classified("0x4", ts, 40)
	whaleToExchange.IsWhale = true
	whaleToExchange.IsExchangeFlow = true
	whaleToExchange.ToExchange = true

	buckets := buildDailyBuckets([]domain.ClassifiedTransfer{normal, whale, toExchange, whaleToExchange}, 0, false)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}

	b := buckets[0]
	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"TotalVolume", b.TotalVolume, 100},
		{"NormalVolume", b.NormalVolume, 10},
		{"WhaleVolume", b.WhaleVolume, 20},
		{"ExchangeVolume", b.ExchangeVolume, 70},
		{"NetExchangeFlow", b.NetExchangeFlow, 70},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.want)) {
			t.Errorf("%s = %s, want %d", c.name, c.got, c.want)
		}
	}
	if b.TransactionCount != 4 {
		t.Errorf("TransactionCount = %d, want 4", b.TransactionCount)
	}

	// Category volumes partition total volume.
	sum := b.NormalVolume.Add(b.WhaleVolume).Add(b.ExchangeVolume)
	if !sum.Equal(b.TotalVolume) {
		t.Errorf("category volumes sum to %s, total is %s", sum, b.TotalVolume)
	}
}

func TestBuildDailyBuckets_ExchangeNetting(t *testing.T) {
	ts := day("2026-08-01")

	in := classified("0x1", ts, 100)
	in.IsExchangeFlow = true
	in.ToExchange = true

	in2 := classified("0x2", ts, 40)
	in2.IsExchangeFlow = true
	in2.ToExchange = true

	out := classified("0x3", ts, 25)
	out.IsExchangeFlow = true
	out.ToExchange = false

	buckets := buildDailyBuckets([]domain.ClassifiedTransfer{in, in2, out}, 0, false)
	if len(buckets) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(buckets))
	}

	if !buckets[0].NetExchangeFlow.Equal(decimal.NewFromInt(115)) {
		t.Errorf("NetExchangeFlow = %s, want 115", buckets[0].NetExchangeFlow)
	}
	if !buckets[0].ExchangeVolume.Equal(decimal.NewFromInt(165)) {
		t.Errorf("ExchangeVolume = %s, want 165", buckets[0].ExchangeVolume)
	}
}

func TestBuildDailyBuckets_WindowTrim(t *testing.T) {
	var transfers []domain.ClassifiedTransfer
	for i := 1; i <= 5; i++ {
		date := fmt.Sprintf("2026-08-%02d", i)
		transfers = append(transfers, classified(fmt.Sprintf("0x%d", i), day(date), 1))
	}

	buckets := buildDailyBuckets(transfers, 3, false)
	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets after trim, got %d", len(buckets))
	}
	if buckets[0].Date != "2026-08-03" || buckets[2].Date != "2026-08-05" {
		t.Errorf("expected most recent 3 days, got %s .. %s", buckets[0].Date, buckets[2].Date)
	}
}

func TestBuildDailyBuckets_FillMissingDays(t *testing.T) {
	transfers := []domain.ClassifiedTransfer{
		classified("0x1", day("2026-08-01"), 5),
		classified("0x2", day("2026-08-04"), 7),
	}

	buckets := buildDailyBuckets(transfers, 4, true)
	if len(buckets) != 4 {
		t.Fatalf("expected 4 buckets, got %d", len(buckets))
	}

	wantDates := []string{"2026-08-01", "2026-08-02", "2026-08-03", "2026-08-04"}
	for i, want := range wantDates {
		if buckets[i].Date != want {
			t.Errorf("bucket %d date = %s, want %s", i, buckets[i].Date, want)
		}
	}
	if buckets[1].TransactionCount != 0 || !buckets[1].TotalVolume.IsZero() {
		t.Errorf("synthesized day must be zero-valued, got %+v", buckets[1])
	}
}

func TestBuildSnapshot_NetFlowAndStale(t *testing.T) {
	in := classified("0x1", day("2026-08-01"), 100)
	in.IsExchangeFlow = true
	in.ToExchange = true

	out := classified("0x2", day("2026-08-02"), 30)
	out.IsExchangeFlow = true

	snapshot := BuildSnapshot([]domain.ClassifiedTransfer{in, out}, nil, "", Options{
		Scope:   "0xwallet",
		Network: "mainnet",
		Stale:   true,
	})

	if !snapshot.NetExchangeFlow.Equal(decimal.NewFromInt(70)) {
		t.Errorf("NetExchangeFlow = %s, want 70", snapshot.NetExchangeFlow)
	}
	if !snapshot.Stale {
		t.Error("snapshot must carry the stale flag")
	}
	if snapshot.Scope != "0xwallet" || snapshot.Network != "mainnet" {
		t.Errorf("scope metadata lost: %s/%s", snapshot.Scope, snapshot.Network)
	}
}

func TestBuildAlerts_WhaleMove(t *testing.T) {
	threshold := decimal.NewFromInt(100)

	tests := []struct {
		name         string
		tokens       int64
		wantSeverity string
	}{
		{"at threshold", 100, domain.AlertSeverityInfo},
		{"double threshold", 200, domain.AlertSeverityWarning},
		{"five times threshold", 500, domain.AlertSeverityCritical},
		{"above five times", 1200, domain.AlertSeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := classified("0xwhale", day("2026-08-01"), tt.tokens)
			ct.IsWhale = true

			alerts := buildAlerts([]domain.ClassifiedTransfer{ct}, nil, Options{WhaleThreshold: threshold})
			if len(alerts) != 1 {
				t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
			}
			if alerts[0].Type != domain.AlertTypeWhaleMove {
				t.Errorf("alert type = %s, want %s", alerts[0].Type, domain.AlertTypeWhaleMove)
			}
			if alerts[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", alerts[0].Severity, tt.wantSeverity)
			}
			if alerts[0].Payload["hash"] != "0xwhale" {
				t.Errorf("payload hash = %s, want 0xwhale", alerts[0].Payload["hash"])
			}
		})
	}
}

func TestBuildAlerts_NoWhaleNoAlert(t *testing.T) {
	ct := classified("0x1", day("2026-08-01"), 50)

	alerts := buildAlerts([]domain.ClassifiedTransfer{ct}, nil, Options{WhaleThreshold: decimal.NewFromInt(100)})
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %d", len(alerts))
	}
}

func TestSurgeAlerts(t *testing.T) {
	mk := func(date string, total, netFlow int64) domain.DailyBucket {
		return domain.DailyBucket{
			Date:            date,
			TotalVolume:     decimal.NewFromInt(total),
			NetExchangeFlow: decimal.NewFromInt(netFlow),
		}
	}

	// Day 1 establishes the trailing average (100). Day 2's net flow of 80
	// exceeds 0.5 * 100; day 3's net flow of 30 does not exceed 0.5 * 90.
	buckets := []domain.DailyBucket{
		mk("2026-08-01", 100, 90),
		mk("2026-08-02", 80, 80),
		mk("2026-08-03", 60, 30),
	}

	alerts := surgeAlerts(buckets, 0.5)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 surge alert, got %d", len(alerts))
	}
	if alerts[0].Payload["date"] != "2026-08-02" {
		t.Errorf("alert date = %s, want 2026-08-02", alerts[0].Payload["date"])
	}
	if alerts[0].Type != domain.AlertTypeExchangeFlowSurge {
		t.Errorf("alert type = %s, want %s", alerts[0].Type, domain.AlertTypeExchangeFlowSurge)
	}
}

func TestSurgeAlerts_FirstDayNeverAlerts(t *testing.T) {
	buckets := []domain.DailyBucket{
		{Date: "2026-08-01", TotalVolume: decimal.NewFromInt(10), NetExchangeFlow: decimal.NewFromInt(1000)},
	}

	if alerts := surgeAlerts(buckets, 0.5); len(alerts) != 0 {
		t.Errorf("first day must never alert, got %d alerts", len(alerts))
	}
}

func TestSurgeAlerts_NegativeFlowDirection(t *testing.T) {
	buckets := []domain.DailyBucket{
		{Date: "2026-08-01", TotalVolume: decimal.NewFromInt(100)},
		{Date: "2026-08-02", TotalVolume: decimal.NewFromInt(100), NetExchangeFlow: decimal.NewFromInt(-90)},
	}

	alerts := surgeAlerts(buckets, 0.5)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Payload["net_flow"] != "-90" {
		t.Errorf("payload net_flow = %s, want -90", alerts[0].Payload["net_flow"])
	}
}

func TestBuildHolderDistribution(t *testing.T) {
	holders := make([]domain.HolderBalance, 0, 60)
	for i := 0; i < 60; i++ {
		holders = append(holders, domain.HolderBalance{
			Address: fmt.Sprintf("0x%02d", i),
			// Balances 60, 59, ..., 1 so rank order is deterministic.
			Balance: decimal.NewFromInt(int64(60 - i)).String(),
		})
	}

	// Total supply equals the sum of all balances: 1+2+...+60 = 1830.
	dist := buildHolderDistribution(holders, "1830")

	if dist.HolderCnt != 60 {
		t.Errorf("HolderCnt = %d, want 60", dist.HolderCnt)
	}
	if dist.Holders[0].Balance != "60" {
		t.Errorf("top holder balance = %s, want 60", dist.Holders[0].Balance)
	}

	// Ranks 1-10 hold 60+59+...+51 = 555 of 1830.
	wantTop10 := 555.0 / 1830.0 * 100
	if diff := dist.Top10Pct - wantTop10; diff > 0.001 || diff < -0.001 {
		t.Errorf("Top10Pct = %f, want %f", dist.Top10Pct, wantTop10)
	}

	// Ranks 11-50 hold 50+49+...+11 = 1220 of 1830.
	wantTop50 := 1220.0 / 1830.0 * 100
	if diff := dist.Top50Pct - wantTop50; diff > 0.001 || diff < -0.001 {
		t.Errorf("Top50Pct = %f, want %f", dist.Top50Pct, wantTop50)
	}
}

func TestBuildHolderDistribution_SupplyFallback(t *testing.T) {
	holders := []domain.HolderBalance{
		{Address: "0x1", Balance: "75"},
		{Address: "0x2", Balance: "25"},
	}

	// Unparsable supply falls back to the sum of balances (100).
	dist := buildHolderDistribution(holders, "")
	if diff := dist.Top10Pct - 100.0; diff > 0.001 || diff < -0.001 {
		t.Errorf("Top10Pct with fallback supply = %f, want 100", dist.Top10Pct)
	}
	if dist.Top50Pct != 0 {
		t.Errorf("Top50Pct = %f, want 0 with only 2 holders", dist.Top50Pct)
	}
}

func TestBuildHolderDistribution_Empty(t *testing.T) {
	dist := buildHolderDistribution(nil, "1000")
	if dist.HolderCnt != 0 || dist.Top10Pct != 0 || dist.Top50Pct != 0 {
		t.Errorf("empty holder list must yield zero distribution, got %+v", dist)
	}
}

func TestConcentration_Clamped(t *testing.T) {
	// Balances exceed the claimed supply; result must clamp to 100.
	holders := []domain.HolderBalance{
		{Address: "0x1", Balance: "500"},
	}
	dist := buildHolderDistribution(holders, "100")
	if dist.Top10Pct != 100 {
		t.Errorf("Top10Pct = %f, want clamp at 100", dist.Top10Pct)
	}
}
