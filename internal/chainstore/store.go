// Package chainstore is the registry index store: the schema owner for
// providers, categories, usdc_events, usdc_call_ledger and client_totals. It
// is the only component in Hypergrid that talks SQL directly; every other
// component goes through Store's typed operations.
//
// Grounded on the Klingon storage package's database/sql + mattn/go-sqlite3
// shape and the bat-go wallet datastore's "typed CRUD over a real SQL
// engine" style, adapted to the single-writer cooperative loop of: all
// multi-row writes run inside an explicit transaction that is rolled back on
// any error, so a crash mid-ingest never leaves a half-applied event.
package chainstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store wraps a SQLite-backed connection implementing the registry schema.
type Store struct {
	db     *sql.DB
	logger *logrus.Logger
}

// Open opens (and if needed initializes) the registry store at path. path
// may be ":memory:" for tests.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("chainstore: open: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite supports a single writer.

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("chainstore: ping: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ensureSchema verifies table presence and, if absent, runs the single
// idempotent initializer in one transaction.
func (s *Store) ensureSchema(ctx context.Context) error {
	row := s.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='providers'`)
	var name string
	if err := row.Scan(&name); err == nil {
		return nil // already initialized
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("chainstore: schema probe: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chainstore: begin schema tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		tx.Rollback()
		return fmt.Errorf("chainstore: init schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("chainstore: commit schema: %w", err)
	}
	s.logger.Info("chainstore: schema initialized")
	return nil
}

// WipeAll drops every managed row, a destructive full reset equivalent to
// wipe_db. It is gated behind an explicit CLI confirmation in cmd/hypergrid.
func (s *Store) WipeAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("chainstore: begin wipe tx: %w", err)
	}
	defer tx.Rollback()
	tables := []string{"providers", "categories", "usdc_events", "usdc_call_ledger", "client_totals", "ingest_checkpoint"}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("chainstore: wipe %s: %w", t, err)
		}
	}
	return tx.Commit()
}
