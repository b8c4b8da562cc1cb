package store

import (
	"context"
	"fmt"

	"github.com/roach88/ri/internal/ir"
)

// AppendExecution inserts a history record and returns its assigned ID.
//
// (run_id, seq) is unique; appending the same step twice is an error so a
// replayed run cannot silently rewrite history.
func (s *Store) AppendExecution(ctx context.Context, e ir.Execution) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (run_id, scope, seq, name, owner, version, outcome, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.RunID,
		e.Scope,
		e.Seq,
		e.Name,
		e.Owner,
		e.Version,
		string(e.Outcome),
		e.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("append execution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append execution: %w", err)
	}
	return id, nil
}

// ListExecutions returns history records for a scope, newest first.
// limit <= 0 returns everything.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ListExecutions(ctx context.Context, scope string, limit int) ([]ir.Execution, error) {
	query := `
		SELECT id, run_id, scope, seq, name, owner, version, outcome, message
		FROM executions
		WHERE scope = ?
		ORDER BY id DESC
	`
	args := []any{scope}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	execs := []ir.Execution{}
	for rows.Next() {
		var e ir.Execution
		var outcome string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Scope, &e.Seq, &e.Name, &e.Owner, &e.Version, &outcome, &e.Message); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		e.Outcome = ir.Outcome(outcome)
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}
