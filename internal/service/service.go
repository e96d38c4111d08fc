// Package service exposes the core operations consumed by the UI/API
// layer: Sync, GetAnalytics and Invalidate.
package service

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"token-flow-lab/internal/analytics"
	"token-flow-lab/internal/classify"
	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/explorer"
	"token-flow-lab/internal/observability"
	"token-flow-lab/internal/storage"
	"token-flow-lab/internal/syncer"
)

// Service composes the sync orchestrator with the classification and
// aggregation engine.
type Service struct {
	syncer          *syncer.Syncer
	entityStore     storage.EntityStore
	balances        explorer.BalanceSource
	whaleThreshold  decimal.Decimal
	surgeFraction   float64
	customExchanges []string
	logger          *log.Logger
	metrics         *observability.Metrics
}

// Options contains configuration for creating a Service.
type Options struct {
	Syncer      *syncer.Syncer
	EntityStore storage.EntityStore
	// Balances may be nil; holder analytics then degrade to empty.
	Balances explorer.BalanceSource

	// WhaleThreshold is the default decimal-adjusted whale threshold,
	// overridable per GetAnalytics call.
	WhaleThreshold decimal.Decimal
	SurgeFraction  float64
	// CustomExchanges extends the built-in exchange registry.
	CustomExchanges []string

	Logger  *log.Logger
	Metrics *observability.Metrics
}

// New creates a new Service.
func New(opts Options) *Service {
	threshold := opts.WhaleThreshold
	if threshold.LessThanOrEqual(decimal.Zero) {
		threshold = classify.DefaultWhaleThreshold
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[service] ", log.LstdFlags)
	}

	return &Service{
		syncer:          opts.Syncer,
		entityStore:     opts.EntityStore,
		balances:        opts.Balances,
		whaleThreshold:  threshold,
		surgeFraction:   opts.SurgeFraction,
		customExchanges: opts.CustomExchanges,
		logger:          logger,
		metrics:         opts.Metrics,
	}
}

// Sync runs one incremental synchronization for a scope and returns the
// merged, deduplicated transfer list, newest first.
func (s *Service) Sync(ctx context.Context, scope, network string) ([]*domain.TransferRecord, error) {
	res, err := s.syncer.Sync(ctx, scope, network)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// GetAnalytics syncs a scope and derives its analytics snapshot over the
// requested day window. A non-positive whaleThreshold falls back to the
// service default. Upstream outages degrade to a stale snapshot built
// from cached data; store outages propagate.
func (s *Service) GetAnalytics(ctx context.Context, scope, network string, windowDays int, whaleThreshold float64) (*domain.AnalyticsSnapshot, error) {
	res, err := s.syncer.Sync(ctx, scope, network)
	if err != nil {
		return nil, err
	}

	threshold := s.whaleThreshold
	if whaleThreshold > 0 {
		threshold = decimal.NewFromFloat(whaleThreshold)
	}

	registry, err := classify.LoadRegistry(ctx, s.entityStore, s.customExchanges)
	if err != nil {
		return nil, err
	}

	classified := classify.Classify(res.Records, registry, classify.Options{
		WhaleThreshold: threshold,
		FocalAddress:   scope,
	})

	var holders []domain.HolderBalance
	if s.balances != nil {
		holders, err = s.balances.TopHolders(ctx, scope)
		if err != nil {
			// Holder data is enrichment only; never fail the snapshot.
			s.logger.Printf("holder lookup failed for %s: %v", scope, err)
			holders = nil
		}
	}

	snapshot := analytics.BuildSnapshot(classified, holders, "", analytics.Options{
		Scope:          scope,
		Network:        network,
		WindowDays:     windowDays,
		WhaleThreshold: threshold,
		SurgeFraction:  s.surgeFraction,
		Stale:          res.Stale,
	})

	if s.metrics != nil {
		s.metrics.SnapshotsBuilt.Inc()
		for _, a := range snapshot.Alerts {
			s.metrics.AlertsEmitted.WithLabelValues(a.Type).Inc()
		}
	}

	return snapshot, nil
}

// Invalidate clears the transfer cache for a scope.
func (s *Service) Invalidate(ctx context.Context, scope, network string) error {
	if err := s.syncer.Invalidate(ctx, scope, network); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.Invalidations.Inc()
	}
	return nil
}
