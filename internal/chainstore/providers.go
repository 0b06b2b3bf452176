package chainstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider is a single registry entry: a provider node minted under a
// category, enriched by the notes applied to it over time.
type Provider struct {
	Hash         string
	Name         string
	ProviderID   string
	ProviderName string
	Site         string
	Description  string
	Wallet       string
	Price        string
	Instructions string
	Category     string
	Created      int64
}

// InsertCategory records a category (NamehashNode of kind=category). It is
// an INSERT OR IGNORE so replaying historical logs is idempotent.
func (s *Store) InsertCategory(ctx context.Context, hash, label string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories(hash, label) VALUES (?, ?)`, hash, label)
	if err != nil {
		return fmt.Errorf("chainstore: insert category: %w", err)
	}
	return nil
}

// InsertProvider records a provider (NamehashNode of kind=provider) minted
// under parentHash. Fails with ErrUnknownParent if the category doesn't
// exist yet, which signals the ingester to defer the log.
func (s *Store) InsertProvider(ctx context.Context, parentHash, childHash, label string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE hash = ?`, parentHash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUnknownParent
	}
	if err != nil {
		return fmt.Errorf("chainstore: lookup category: %w", err)
	}

	// provider_id is populated later via the "~provider-id" note (ApplyNote);
	// it is not derivable from the mint event alone.
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO providers(hash, name, provider_id, category, created)
		VALUES (?, ?, '', ?, ?)`,
		childHash, label, parentHash, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("chainstore: insert provider: %w", err)
	}
	return nil
}

// ApplyNote updates one whitelisted column on the provider row identified
// by hash. Fails with ErrUnknownProvider if no such row exists, which
// triggers pending-log deferral by the ingester, or ErrUnknownNoteKey if
// key isn't in the whitelist (never reaches SQL in that case).
func (s *Store) ApplyNote(ctx context.Context, hash, key, value string) error {
	column, ok := noteColumns[key]
	if !ok {
		return ErrUnknownNoteKey
	}
	// column is drawn solely from the noteColumns whitelist above, never
	// from caller input, so building the statement with it is safe.
	stmt := fmt.Sprintf(`UPDATE providers SET %s = ? WHERE hash = ?`, column)
	res, err := s.db.ExecContext(ctx, stmt, value, hash)
	if err != nil {
		return fmt.Errorf("chainstore: apply note: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("chainstore: apply note rows affected: %w", err)
	}
	if n == 0 {
		return ErrUnknownProvider
	}
	return nil
}

// GetAll returns every provider row, ordered by name for stable output.
func (s *Store) GetAll(ctx context.Context) ([]Provider, error) {
	rows, err := s.db.QueryContext(ctx, providerSelect+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("chainstore: get all: %w", err)
	}
	defer rows.Close()
	return scanProviders(rows)
}

// GetByCategory returns providers minted under the category with the given
// namehash.
func (s *Store) GetByCategory(ctx context.Context, categoryHash string) ([]Provider, error) {
	rows, err := s.db.QueryContext(ctx, providerSelect+` WHERE category = ? ORDER BY name`, categoryHash)
	if err != nil {
		return nil, fmt.Errorf("chainstore: get by category: %w", err)
	}
	defer rows.Close()
	return scanProviders(rows)
}

// Search performs a case-insensitive LIKE match over name/site/description,
// or an exact match on provider_id.
func (s *Store) Search(ctx context.Context, query string) ([]Provider, error) {
	like := "%" + strings.ToLower(query) + "%"
	rows, err := s.db.QueryContext(ctx, providerSelect+`
		WHERE provider_id = ?
		   OR lower(name) LIKE ?
		   OR lower(site) LIKE ?
		   OR lower(description) LIKE ?
		ORDER BY name`,
		query, like, like, like)
	if err != nil {
		return nil, fmt.Errorf("chainstore: search: %w", err)
	}
	defer rows.Close()
	return scanProviders(rows)
}

// GetProvider looks up a single provider by its namehash, name, or
// provider_id (content-hash of the name).
func (s *Store) GetProvider(ctx context.Context, idOrName string) (Provider, error) {
	row := s.db.QueryRowContext(ctx, providerSelect+`
		WHERE hash = ? OR name = ? OR provider_id = ? LIMIT 1`,
		idOrName, idOrName, idOrName)
	p, err := scanProvider(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Provider{}, ErrNotFound
	}
	if err != nil {
		return Provider{}, fmt.Errorf("chainstore: get provider: %w", err)
	}
	return p, nil
}

const providerSelect = `SELECT hash, name, provider_id, provider_name, site, description, wallet, price, instructions, category, created FROM providers`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (Provider, error) {
	var p Provider
	err := row.Scan(&p.Hash, &p.Name, &p.ProviderID, &p.ProviderName, &p.Site, &p.Description,
		&p.Wallet, &p.Price, &p.Instructions, &p.Category, &p.Created)
	return p, err
}

func scanProviders(rows *sql.Rows) ([]Provider, error) {
	var out []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("chainstore: scan provider: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
