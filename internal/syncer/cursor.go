package syncer

import (
	"context"
	"fmt"

	"token-flow-lab/internal/storage"
)

// ComputeCursor returns the high-water-mark timestamp for a scope: the
// maximum cached timestamp, or 0 when nothing is cached.
//
// The cursor is always recomputed from the store and never held in memory
// across calls, because the cache may have been cleared or mutated
// externally between syncs.
func ComputeCursor(ctx context.Context, store storage.TransferStore, scope, network string) (int64, error) {
	cursor, err := store.MaxTimestamp(ctx, scope, network)
	if err != nil {
		return 0, fmt.Errorf("compute cursor for %s/%s: %w", scope, network, err)
	}
	return cursor, nil
}
