package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-flow-lab/internal/domain"
	"token-flow-lab/internal/storage"
)

// TransferStore implements storage.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *Pool
}

// NewTransferStore creates a new TransferStore.
func NewTransferStore(pool *Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransferStore = (*TransferStore)(nil)

// InsertMany adds records for a scope, skipping existing (scope, network, hash)
// rows via ON CONFLICT DO NOTHING. Returns the number actually inserted.
func (s *TransferStore) InsertMany(ctx context.Context, scope, network string, records []*domain.TransferRecord) (int, error) {
	if scope == "" || network == "" {
		return 0, storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO transfers (
			scope, network, hash, from_addr, to_addr, value,
			token_address, token_symbol, token_name, decimals,
			block_number, timestamp, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (scope, network, hash) DO NOTHING
	`

	now := time.Now().Unix()
	inserted := 0
	for _, rec := range records {
		if rec == nil || rec.Hash == "" {
			return 0, storage.ErrInvalidInput
		}

		tag, err := tx.Exec(ctx, query,
			scope,
			network,
			rec.Hash,
			rec.From,
			rec.To,
			rec.Value,
			rec.TokenAddress,
			rec.TokenSymbol,
			rec.TokenName,
			rec.Decimals,
			rec.BlockNumber,
			rec.Timestamp,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert transfer: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
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
		FROM transfers
		WHERE scope = $1 AND network = $2
		ORDER BY timestamp DESC, hash ASC
	`

	rows, err := s.pool.Query(ctx, query, scope, network)
	if err != nil {
		return nil, fmt.Errorf("query transfers by scope: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// MaxTimestamp returns the most recent cached timestamp for a scope, 0 if empty.
func (s *TransferStore) MaxTimestamp(ctx context.Context, scope, network string) (int64, error) {
	query := `
		SELECT COALESCE(MAX(timestamp), 0)
		FROM transfers
		WHERE scope = $1 AND network = $2
	`

	var max int64
	if err := s.pool.QueryRow(ctx, query, scope, network).Scan(&max); err != nil {
		return 0, fmt.Errorf("query max timestamp: %w", err)
	}

	return max, nil
}

// DeleteByScope removes all cached records for a scope.
func (s *TransferStore) DeleteByScope(ctx context.Context, scope, network string) error {
	if scope == "" || network == "" {
		return storage.ErrInvalidInput
	}

	query := `DELETE FROM transfers WHERE scope = $1 AND network = $2`

	if _, err := s.pool.Exec(ctx, query, scope, network); err != nil {
		return fmt.Errorf("delete transfers by scope: %w", err)
	}

	return nil
}

// scanTransfers scans multiple rows into a slice of TransferRecord.
func scanTransfers(rows pgx.Rows) ([]*domain.TransferRecord, error) {
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
