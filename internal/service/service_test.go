package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage/memory"
	"token-flow-lab/internal/syncer"
)

const exchangeAddr = "0x3f5ce5fbfe3e9af3971dd833d26ba9b5c936f0be"

type stubSource struct {
	records []*domain.TransferRecord
	err     error
}

func (s *stubSource) FetchSince(_ context.Context, _, _ string, since int64) ([]*domain.TransferRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []*domain.TransferRecord
	for _, rec := range s.records {
		if rec.Timestamp > since {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func transfer(hash string, ts int64, to, value string) *domain.TransferRecord {
	return &domain.TransferRecord{
		Hash:         hash,
		From:         "0xwallet",
		To:           to,
		Value:        value,
		TokenAddress: "0xtoken",
		TokenSymbol:  "TKN",
		TokenName:    "Token",
		Decimals:     18,
		BlockNumber:  1,
		Timestamp:    ts,
	}
}

func newTestService(source *stubSource) *Service {
	logger := log.New(io.Discard, "", 0)
	return New(Options{
		Syncer: syncer.New(syncer.Options{
			Store:         memory.NewTransferStore(),
			Source:        source,
			CourtesyDelay: 1,
			Logger:        logger,
		}),
		EntityStore:    memory.NewEntityStore(),
		WhaleThreshold: decimal.NewFromInt(100),
		Logger:         logger,
	})
}

func TestService_SyncReturnsMergedRecords(t *testing.T) {
	source := &stubSource{records: []*domain.TransferRecord{
		transfer("0x1", 1000, "0xother", "1000000000000000000"),
		transfer("0x2", 2000, "0xother", "1000000000000000000"),
	}}
	svc := newTestService(source)

	records, err := svc.Sync(context.Background(), "0xwallet", "mainnet")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Hash != "0x2" {
		t.Errorf("expected newest first, got %s", records[0].Hash)
	}
}

func TestService_GetAnalytics(t *testing.T) {
	// 500 tokens into an exchange plus a 50-token wallet transfer.
	source := &stubSource{records: []*domain.TransferRecord{
		transfer("0x1", 1700000000, exchangeAddr, decimal.NewFromInt(500).Shift(18).String()),
		transfer("0x2", 1700000100, "0xother", decimal.NewFromInt(50).Shift(18).String()),
	}}
	svc := newTestService(source)

	snapshot, err := svc.GetAnalytics(context.Background(), "0xwallet", "mainnet", 30, 0)
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}

	if snapshot.Scope != "0xwallet" || snapshot.Network != "mainnet" {
		t.Errorf("snapshot metadata: %s/%s", snapshot.Scope, snapshot.Network)
	}
	if snapshot.Stale {
		t.Error("snapshot must not be stale with a healthy upstream")
	}
	if len(snapshot.DailyBuckets) != 1 {
		t.Fatalf("expected 1 daily bucket, got %d", len(snapshot.DailyBuckets))
	}
	if !snapshot.NetExchangeFlow.Equal(decimal.NewFromInt(500)) {
		t.Errorf("NetExchangeFlow = %s, want 500", snapshot.NetExchangeFlow)
	}

	// The 500-token exchange deposit is whale-sized at threshold 100, so a
	// whale_move alert fires even though it buckets as exchange volume.
	var whaleAlerts int
	for _, a := range snapshot.Alerts {
		if a.Type == domain.AlertTypeWhaleMove {
			whaleAlerts++
		}
	}
	if whaleAlerts != 1 {
		t.Errorf("expected 1 whale_move alert, got %d", whaleAlerts)
	}
}

func TestService_GetAnalytics_ThresholdOverride(t *testing.T) {
	source := &stubSource{records: []*domain.TransferRecord{
		transfer("0x1", 1700000000, "0xother", decimal.NewFromInt(50).Shift(18).String()),
	}}
	svc := newTestService(source)

	// Service default threshold of 100 does not flag a 50-token transfer;
	// a per-request override of 40 does.
	snapshot, err := svc.GetAnalytics(context.Background(), "0xwallet", "mainnet", 30, 0)
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}
	if len(snapshot.Alerts) != 0 {
		t.Errorf("expected no alerts at default threshold, got %d", len(snapshot.Alerts))
	}

	snapshot, err = svc.GetAnalytics(context.Background(), "0xwallet", "mainnet", 30, 40)
	if err != nil {
		t.Fatalf("GetAnalytics with override: %v", err)
	}
	if len(snapshot.Alerts) != 1 {
		t.Errorf("expected 1 alert with lowered threshold, got %d", len(snapshot.Alerts))
	}
}

func TestService_GetAnalytics_StaleOnOutage(t *testing.T) {
	source := &stubSource{records: []*domain.TransferRecord{
		transfer("0x1", 1700000000, "0xother", "1000000000000000000"),
	}}
	svc := newTestService(source)

	if _, err := svc.Sync(context.Background(), "0xwallet", "mainnet"); err != nil {
		t.Fatalf("warmup Sync: %v", err)
	}

	source.err = errors.New("upstream down")

	snapshot, err := svc.GetAnalytics(context.Background(), "0xwallet", "mainnet", 30, 0)
	if err != nil {
		t.Fatalf("GetAnalytics must degrade on outage: %v", err)
	}
	if !snapshot.Stale {
		t.Error("snapshot must be marked stale")
	}
	if len(snapshot.DailyBuckets) != 1 {
		t.Errorf("cached data must still be aggregated, got %d buckets", len(snapshot.DailyBuckets))
	}
}

func TestService_Invalidate(t *testing.T) {
	source := &stubSource{records: []*domain.TransferRecord{
		transfer("0x1", 1000, "0xother", "1000000000000000000"),
	}}
	svc := newTestService(source)

	if _, err := svc.Sync(context.Background(), "0xwallet", "mainnet"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := svc.Invalidate(context.Background(), "0xwallet", "mainnet"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	// Upstream now empty: post-invalidate sync yields nothing.
	source.records = nil
	records, err := svc.Sync(context.Background(), "0xwallet", "mainnet")
	if err != nil {
		t.Fatalf("resync: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty cache after invalidate, got %d", len(records))
	}
}
