package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the raw value of an option; found is false when it is missing.
func (s *Store) Get(ctx context.Context, scope, name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM ri_options WHERE scope = $1 AND name = $2`, scope, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get option %q: %w", name, err)
	}
	return value, true, nil
}

// Put creates or overwrites an option.
func (s *Store) Put(ctx context.Context, scope, name string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO ri_options (scope, name, value) VALUES ($1, $2, $3)
		ON CONFLICT (scope, name) DO UPDATE SET value = EXCLUDED.value
	`, scope, name, value); err != nil {
		return fmt.Errorf("put option %q: %w", name, err)
	}
	return nil
}

// Add creates an option only if it does not exist yet; added reports
// whether a row was written.
func (s *Store) Add(ctx context.Context, scope, name string, value []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ri_options (scope, name, value) VALUES ($1, $2, $3)
		ON CONFLICT (scope, name) DO NOTHING
	`, scope, name, value)
	if err != nil {
		return false, fmt.Errorf("add option %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add option %q: %w", name, err)
	}
	return n > 0, nil
}

// Delete removes an option. Deleting a missing option is not an error.
func (s *Store) Delete(ctx context.Context, scope, name string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM ri_options WHERE scope = $1 AND name = $2`, scope, name,
	); err != nil {
		return fmt.Errorf("delete option %q: %w", name, err)
	}
	return nil
}

// Update replaces an option with fn's result under an advisory lock.
//
// pg_advisory_xact_lock is released automatically at commit or rollback,
// so a crashed runner never leaves the lock held.
func (s *Store) Update(ctx context.Context, scope, name string, fn func(old []byte, found bool) ([]byte, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update option %q: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, scope+"\x00"+name,
	); err != nil {
		return fmt.Errorf("update option %q: lock: %w", name, err)
	}

	var old []byte
	found := true
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM ri_options WHERE scope = $1 AND name = $2`, scope, name,
	).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		found = false
	} else if err != nil {
		return fmt.Errorf("update option %q: read: %w", name, err)
	}

	next, err := fn(old, found)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ri_options (scope, name, value) VALUES ($1, $2, $3)
		ON CONFLICT (scope, name) DO UPDATE SET value = EXCLUDED.value
	`, scope, name, next); err != nil {
		return fmt.Errorf("update option %q: write: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update option %q: commit: %w", name, err)
	}
	return nil
}

// Scopes lists every scope holding the named option, in byte order.
func (s *Store) Scopes(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope FROM ri_options WHERE name = $1 ORDER BY scope COLLATE "C" ASC`, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list scopes for %q: %w", name, err)
	}
	defer rows.Close()

	scopes := []string{}
	for rows.Next() {
		var scope string
		if err := rows.Scan(&scope); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		scopes = append(scopes, scope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scopes: %w", err)
	}
	return scopes, nil
}
