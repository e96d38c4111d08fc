package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// TransferStore implements storage.TransferStore using ClickHouse.
//
// The transfers table is a ReplacingMergeTree ordered by
// (scope, network, hash). MergeTree engines do not enforce uniqueness at
// insert time, so InsertMany checks existing hashes explicitly and reads
// use FINAL to collapse not-yet-merged duplicates.
type TransferStore struct {
	conn *Conn
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(conn *Conn) *TransferStore {
	return &TransferStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertMany adds records for a scope, skipping hashes already cached.
// Returns the number actually inserted.
func (s *TransferStore) InsertMany(ctx context.Context, scope, network string, records []*domain.TransferRecord) (int, error) {
	if scope == "" || network == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return 0, nil
	}

	existing, err := s.existingHashes(ctx, scope, network)
	if err != nil {
		return 0, fmt.Errorf("load existing hashes: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO transfers (
			scope, network, hash, from_addr, to_addr, value,
			token_address, token_symbol, token_name, decimals,
			block_number, timestamp, created_at
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare batch: %w", err)
	}

	now := time.Now().Unix()
	inserted := 0
	for _, rec := range records {
		if rec == nil || rec.Hash == "" {
			return 0, storage.ErrInvalidInput
		}
		if _, exists := existing[rec.Hash]; exists {
			continue
		}
		// Guard against intra-batch duplicates as well
		existing[rec.Hash] = struct{}{}

		err = batch.Append(
			scope, network, rec.Hash, rec.From, rec.To, rec.Value,
			rec.TokenAddress, rec.TokenSymbol, rec.TokenName, rec.Decimals,
			rec.BlockNumber, rec.Timestamp, now,
		)
		if err != nil {
			return 0, fmt.Errorf("append to batch: %w", err)
		}
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("send batch: %w", err)
	}

	return inserted, nil
}

// QueryByScope retrieves all cached records for a scope, ordered by
// timestamp DESC, hash ASC tie-break.
func (s *TransferStore) QueryByScope(ctx context.Context, scope, network string) ([]*domain.TransferRecord, error) {
	query := `
		SELECT scope, network, hash, from_addr, to_addr, value,
		       token_address, token_symbol, token_name, decimals,
		       block_number, timestamp, created_at
		FROM transfers FINAL
		WHERE scope = ? AND network = ?
		ORDER BY timestamp DESC, hash ASC
	`

	rows, err := s.conn.Query(ctx, query, scope, network)
	if err != nil {
		return nil, fmt.Errorf("query transfers by scope: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// MaxTimestamp returns the most recent cached timestamp for a scope, 0 if empty.
func (s *TransferStore) MaxTimestamp(ctx context.Context, scope, network string) (int64, error) {
	query := `
		SELECT max(timestamp)
		FROM transfers FINAL
		WHERE scope = ? AND network = ?
	`

	var max int64
	if err := s.conn.QueryRow(ctx, query, scope, network).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max timestamp: %w", err)
	}

	return max, nil
}

// DeleteByScope removes all cached records for a scope.
func (s *TransferStore) DeleteByScope(ctx context.Context, scope, network string) error {
	if scope == "" || network == "" {
		return storage.ErrInvalidInput
	}

	query := `DELETE FROM transfers WHERE scope = ? AND network = ?`

	if err := s.conn.Exec(ctx, query, scope, network); err != nil {
		return fmt.Errorf("delete transfers by scope: %w", err)
	}

	return nil
}

// existingHashes returns the set of hashes already cached for a scope.
func (s *TransferStore) existingHashes(ctx context.Context, scope, network string) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT hash
		FROM transfers
		WHERE scope = ? AND network = ?
	`

	rows, err := s.conn.Query(ctx, query, scope, network)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes[h] = struct{}{}
	}

	return hashes, rows.Err()
}

// scanTransfers scans multiple rows into a slice of TransferRecord.
func scanTransfers(rows driver.Rows) ([]*domain.TransferRecord, error) {
	var records []*domain.TransferRecord

	for rows.Next() {
		var rec domain.TransferRecord

		err := rows.Scan(
			&rec.Scope,
			&rec.Network,
			&rec.Hash,
			&rec.From,
			&rec.To,
			&rec.Value,
			&rec.TokenAddress,
			&rec.TokenSymbol,
			&rec.TokenName,
			&rec.Decimals,
			&rec.BlockNumber,
			&rec.Timestamp,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}

	return records, nil
}
