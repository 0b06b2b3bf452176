package chainstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Checkpoint returns the last confirmed block, or (0, false) if ingestion
// has never checkpointed.
func (s *Store) Checkpoint(ctx context.Context) (uint64, bool, error) {
	var block int64
	err := s.db.QueryRowContext(ctx, `SELECT last_checkpoint_block FROM ingest_checkpoint WHERE id = 1`).Scan(&block)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("chainstore: read checkpoint: %w", err)
	}
	return uint64(block), true, nil
}

// SetCheckpoint persists the last confirmed block. It is only ever called
// after the store has durably committed everything up to that block.
func (s *Store) SetCheckpoint(ctx context.Context, block uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingest_checkpoint(id, last_checkpoint_block) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_checkpoint_block = excluded.last_checkpoint_block`,
		int64(block))
	if err != nil {
		return fmt.Errorf("chainstore: set checkpoint: %w", err)
	}
	return nil
}
