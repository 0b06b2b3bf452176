package chainstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Direction classifies a USDC Transfer relative to the operator TBA.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// USDCEvent is one row of the usdc_events table.
type USDCEvent struct {
	TxHash       string
	LogIndex     uint
	BlockNumber  uint64
	Direction    Direction
	Counterparty string
	AmountUnits  string
}

// InsertUSDCEvent upserts a USDC Transfer event. Both the bisect backfill
// and the tail scan may observe the same event more than once; the
// (tx_hash, log_index) primary key makes this an idempotent no-op.
func (s *Store) InsertUSDCEvent(ctx context.Context, e USDCEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO usdc_events(tx_hash, log_index, block_number, direction, counterparty, amount_units)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.TxHash, e.LogIndex, e.BlockNumber, string(e.Direction), e.Counterparty, e.AmountUnits)
	if err != nil {
		return fmt.Errorf("chainstore: insert usdc event: %w", err)
	}
	return nil
}

// MaxIndexedBlock returns the highest block_number recorded in usdc_events,
// or (0, false) if the table is empty (cold start).
func (s *Store) MaxIndexedBlock(ctx context.Context) (uint64, bool, error) {
	var block sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(block_number) FROM usdc_events`).Scan(&block)
	if err != nil {
		return 0, false, fmt.Errorf("chainstore: max indexed block: %w", err)
	}
	if !block.Valid {
		return 0, false, nil
	}
	return uint64(block.Int64), true, nil
}

// CallLedgerEntry is one row of the usdc_call_ledger table.
type CallLedgerEntry struct {
	ID           int64
	ClientID     string
	ProviderID   string
	AmountUnits  string
	USDCTxHash   string
	USDCLogIndex *uint
	TimestampMS  int64
	Status       string
}

// AppendCallLedger records a new payment attempt and returns its row id.
func (s *Store) AppendCallLedger(ctx context.Context, e CallLedgerEntry) (int64, error) {
	var logIndex sql.NullInt64
	if e.USDCLogIndex != nil {
		logIndex = sql.NullInt64{Int64: int64(*e.USDCLogIndex), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO usdc_call_ledger(client_id, provider_id, amount_units, usdc_tx_hash, usdc_log_index, timestamp_ms, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ClientID, e.ProviderID, e.AmountUnits, nullIfEmpty(e.USDCTxHash), logIndex, e.TimestampMS, e.Status)
	if err != nil {
		return 0, fmt.Errorf("chainstore: append call ledger: %w", err)
	}
	return res.LastInsertId()
}

// UpdateCallLedgerStatus transitions a call ledger row's status, and
// optionally attaches the settling usdc_tx_hash/usdc_log_index once known.
func (s *Store) UpdateCallLedgerStatus(ctx context.Context, id int64, status, usdcTxHash string, usdcLogIndex *uint) error {
	var logIndex sql.NullInt64
	if usdcLogIndex != nil {
		logIndex = sql.NullInt64{Int64: int64(*usdcLogIndex), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE usdc_call_ledger SET status = ?, usdc_tx_hash = COALESCE(NULLIF(?, ''), usdc_tx_hash), usdc_log_index = COALESCE(?, usdc_log_index)
		WHERE id = ?`,
		status, usdcTxHash, logIndex, id)
	if err != nil {
		return fmt.Errorf("chainstore: update call ledger status: %w", err)
	}
	return nil
}

// GetCallLedgerEntry looks up a single call ledger row by id.
func (s *Store) GetCallLedgerEntry(ctx context.Context, id int64) (CallLedgerEntry, error) {
	var e CallLedgerEntry
	var txHash sql.NullString
	var logIndex sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, provider_id, amount_units, usdc_tx_hash, usdc_log_index, timestamp_ms, status
		FROM usdc_call_ledger WHERE id = ?`, id).
		Scan(&e.ID, &e.ClientID, &e.ProviderID, &e.AmountUnits, &txHash, &logIndex, &e.TimestampMS, &e.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return CallLedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return CallLedgerEntry{}, fmt.Errorf("chainstore: get call ledger entry: %w", err)
	}
	e.USDCTxHash = txHash.String
	if logIndex.Valid {
		v := uint(logIndex.Int64)
		e.USDCLogIndex = &v
	}
	return e, nil
}

// ClientTotal is a client's rolled-up spend.
type ClientTotal struct {
	ClientID  string
	Spent     string
	DayBucket string
}

// ClientTotals returns the current rollup for a client, or a zeroed
// ClientTotal with found=false if none exists yet.
func (s *Store) ClientTotals(ctx context.Context, clientID string) (ClientTotal, bool, error) {
	var t ClientTotal
	t.ClientID = clientID
	err := s.db.QueryRowContext(ctx, `SELECT spent, day_bucket FROM client_totals WHERE client_id = ?`, clientID).
		Scan(&t.Spent, &t.DayBucket)
	if errors.Is(err, sql.ErrNoRows) {
		return ClientTotal{ClientID: clientID, Spent: "0"}, false, nil
	}
	if err != nil {
		return ClientTotal{}, false, fmt.Errorf("chainstore: client totals: %w", err)
	}
	return t, true, nil
}

// SetClientTotals upserts a client's rolled-up spend.
func (s *Store) SetClientTotals(ctx context.Context, t ClientTotal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_totals(client_id, spent, day_bucket) VALUES (?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET spent = excluded.spent, day_bucket = excluded.day_bucket`,
		t.ClientID, t.Spent, t.DayBucket)
	if err != nil {
		return fmt.Errorf("chainstore: set client totals: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
