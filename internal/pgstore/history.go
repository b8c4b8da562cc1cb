package pgstore

import (
	"context"
	"fmt"

	"github.com/roach88/ri/internal/ir"
)

// AppendExecution stores one history record and returns its ID.
func (s *Store) AppendExecution(ctx context.Context, e ir.Execution) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ri_executions (run_id, scope, seq, name, owner, version, outcome, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, e.RunID, e.Scope, e.Seq, e.Name, e.Owner, e.Version, string(e.Outcome), e.Message).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append execution: %w", err)
	}
	return id, nil
}

// ListExecutions returns history for a scope, newest first. limit <= 0 means all.
func (s *Store) ListExecutions(ctx context.Context, scope string, limit int) ([]ir.Execution, error) {
	query := `
		SELECT id, run_id, scope, seq, name, owner, version, outcome, message
		FROM ri_executions
		WHERE scope = $1
		ORDER BY id DESC
	`
	args := []any{scope}
	if limit > 0 {
		query += " LIMIT $2"
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
