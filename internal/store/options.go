package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Get returns the raw value of an option.
// found is false (with a nil error) when the option does not exist.
func (s *Store) Get(ctx context.Context, scope, name string) (value []byte, found bool, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT value FROM options WHERE scope = ? AND name = ?
	`, scope, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get option %q: %w", name, err)
	}
	return value, true, nil
}

// Put creates or replaces an option.
func (s *Store) Put(ctx context.Context, scope, name string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (scope, name, value) VALUES (?, ?, ?)
		ON CONFLICT(scope, name) DO UPDATE SET value = excluded.value
	`, scope, name, value)
	if err != nil {
		return fmt.Errorf("put option %q: %w", name, err)
	}
	return nil
}

// Add creates an option only if it does not exist yet.
// Returns added=false when an existing value was left in place.
func (s *Store) Add(ctx context.Context, scope, name string, value []byte) (added bool, err error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO options (scope, name, value) VALUES (?, ?, ?)
		ON CONFLICT(scope, name) DO NOTHING
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
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM options WHERE scope = ? AND name = ?
	`, scope, name); err != nil {
		return fmt.Errorf("delete option %q: %w", name, err)
	}
	return nil
}

// Update atomically replaces an option with fn's result.
//
// fn receives the current value (nil, false when missing) and returns the
// new value. If fn returns an error nothing is written and the error is
// returned unchanged.
func (s *Store) Update(ctx context.Context, scope, name string, fn func(old []byte, found bool) ([]byte, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update option %q: begin tx: %w", name, err)
	}
	defer tx.Rollback() // No-op if committed

	var old []byte
	found := true
	err = tx.QueryRowContext(ctx, `
		SELECT value FROM options WHERE scope = ? AND name = ?
	`, scope, name).Scan(&old)
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
		INSERT INTO options (scope, name, value) VALUES (?, ?, ?)
		ON CONFLICT(scope, name) DO UPDATE SET value = excluded.value
	`, scope, name, next); err != nil {
		return fmt.Errorf("update option %q: write: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update option %q: commit: %w", name, err)
	}
	return nil
}

// Scopes lists every scope holding the named option, in lexical order.
func (s *Store) Scopes(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scope FROM options WHERE name = ? ORDER BY scope COLLATE BINARY ASC
	`, name)
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
