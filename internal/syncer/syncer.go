// Package syncer implements the incremental cache synchronization
// protocol: compute cursor → fetch delta → persist delta → return the
// merged chronological view.
package syncer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/explorer"
	"token-flow-lab/internal/observability"
	"token-flow-lab/internal/storage"
)

// Default tuning values.
const (
	DefaultFetchTimeout  = 30 * time.Second
	DefaultCourtesyDelay = 250 * time.Millisecond
)

// Syncer composes cursor, fetcher and store into one sync operation,
// parametrized by scope. The same shape serves wallet histories, vesting
// contract histories and per-beneficiary schedules; only the scope key
// differs.
type Syncer struct {
	store         storage.TransferStore
	source        explorer.TransferSource
	fetchTimeout  time.Duration
	courtesyDelay time.Duration
	logger        *log.Logger
	metrics       *observability.Metrics

	// Per-scope locks serialize concurrent syncs for the same scope.
	// This avoids redundant upstream calls; correctness rests on the
	// store's idempotent inserts either way.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options contains configuration for creating a Syncer.
type Options struct {
	Store  storage.TransferStore
	Source explorer.TransferSource

	// FetchTimeout bounds the upstream fetch step only; store operations
	// are local and use the request context directly.
	FetchTimeout time.Duration

	// CourtesyDelay is inserted between successive upstream calls when
	// syncing multiple scopes in one loop (upstream quota courtesy).
	CourtesyDelay time.Duration

	Logger  *log.Logger
	Metrics *observability.Metrics
}

// New creates a new Syncer.
func New(opts Options) *Syncer {
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout == 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	courtesyDelay := opts.CourtesyDelay
	if courtesyDelay == 0 {
		courtesyDelay = DefaultCourtesyDelay
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[syncer] ", log.LstdFlags)
	}

	return &Syncer{
		store:         opts.Store,
		source:        opts.Source,
		fetchTimeout:  fetchTimeout,
		courtesyDelay: courtesyDelay,
		logger:        logger,
		metrics:       opts.Metrics,
		locks:         make(map[string]*sync.Mutex),
	}
}

// Result is the outcome of one sync call.
type Result struct {
	Records []*domain.TransferRecord // merged view, timestamp DESC
	Fetched int                      // delta records returned by upstream
	Stored  int                      // delta records actually persisted
	// Stale is true when the upstream fetch failed and the records were
	// served from cache only.
	Stale bool
}

// Sync runs one incremental synchronization for a scope and returns the
// merged cached+delta view, deduplicated by hash and sorted by timestamp
// DESC (hash ASC tie-break).
//
// Fetch-layer failures never propagate: the call degrades to cache-only
// and marks the result stale. Store failures always propagate.
func (s *Syncer) Sync(ctx context.Context, scope, network string) (*Result, error) {
	lock := s.scopeLock(scope, network)
	lock.Lock()
	defer lock.Unlock()

	result := &Result{}

	cursor, err := ComputeCursor(ctx, s.store, scope, network)
	if err != nil {
		return nil, err
	}

	delta, fetchErr := s.fetchDelta(ctx, scope, network, cursor)
	if fetchErr != nil {
		s.logger.Printf("fetch failed for %s/%s, serving cache only: %v", scope, network, fetchErr)
		if s.metrics != nil {
			s.metrics.FetchErrors.Inc()
		}
		result.Stale = true
	}
	result.Fetched = len(delta)

	if len(delta) > 0 {
		stored, err := s.store.InsertMany(ctx, scope, network, delta)
		if err != nil {
			return nil, fmt.Errorf("persist delta for %s/%s: %w", scope, network, err)
		}
		result.Stored = stored
	}

	cached, err := s.store.QueryByScope(ctx, scope, network)
	if err != nil {
		return nil, fmt.Errorf("query cache for %s/%s: %w", scope, network, err)
	}

	// The fresh delta is merged in directly even though the read-back may
	// already contain it: with an eventually consistent store the
	// read-after-write is not guaranteed to see the insert.
	result.Records = mergeDedup(delta, cached)

	if s.metrics != nil {
		s.metrics.SyncsTotal.Inc()
		s.metrics.RecordsFetched.Add(float64(result.Fetched))
		s.metrics.RecordsStored.Add(float64(result.Stored))
	}

	return result, nil
}

// SyncMany syncs several scopes sequentially with a fixed courtesy delay
// between upstream calls. Per-scope failures are logged and do not stop
// the loop; the first store-level error aborts it.
func (s *Syncer) SyncMany(ctx context.Context, scopes []string, network string) (map[string]*Result, error) {
	results := make(map[string]*Result, len(scopes))

	for i, scope := range scopes {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.courtesyDelay):
			}
		}

		res, err := s.Sync(ctx, scope, network)
		if err != nil {
			return results, fmt.Errorf("sync scope %s: %w", scope, err)
		}
		results[scope] = res
	}

	return results, nil
}

// Invalidate clears the cache for a scope. The next sync re-fetches from
// timestamp 0.
func (s *Syncer) Invalidate(ctx context.Context, scope, network string) error {
	lock := s.scopeLock(scope, network)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.DeleteByScope(ctx, scope, network); err != nil {
		return fmt.Errorf("invalidate %s/%s: %w", scope, network, err)
	}

	s.logger.Printf("invalidated cache for %s/%s", scope, network)
	return nil
}

// fetchDelta runs the upstream fetch bounded by the fetch timeout.
func (s *Syncer) fetchDelta(ctx context.Context, scope, network string, cursor int64) ([]*domain.TransferRecord, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	delta, err := s.source.FetchSince(fetchCtx, scope, network, cursor)
	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	return delta, err
}

// scopeLock returns the mutex serializing syncs for one scope.
func (s *Syncer) scopeLock(scope, network string) *sync.Mutex {
	key := scope + "|" + network

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// mergeDedup merges delta and cached records, deduplicates by hash and
// sorts by timestamp DESC with hash ASC tie-break. Delta records win on
// hash collision; they are the freshest copy.
func mergeDedup(delta, cached []*domain.TransferRecord) []*domain.TransferRecord {
	seen := make(map[string]struct{}, len(delta)+len(cached))
	merged := make([]*domain.TransferRecord, 0, len(delta)+len(cached))

	for _, rec := range delta {
		if _, ok := seen[rec.Hash]; ok {
			continue
		}
		seen[rec.Hash] = struct{}{}
		merged = append(merged, rec)
	}
	for _, rec := range cached {
		if _, ok := seen[rec.Hash]; ok {
			continue
		}
		seen[rec.Hash] = struct{}{}
		merged = append(merged, rec)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp > merged[j].Timestamp
		}
		return merged[i].Hash < merged[j].Hash
	})

	return merged
}
