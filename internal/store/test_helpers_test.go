package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ri/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestExecution creates a history record with minimal required fields.
func createTestExecution(runID string, seq int64, name string, outcome ir.Outcome) ir.Execution {
	return ir.Execution{
		RunID:   runID,
		Scope:   "",
		Seq:     seq,
		Name:    name,
		Owner:   "shop",
		Version: seq,
		Outcome: outcome,
		Message: "Release instruction " + name + "() was executed.",
	}
}
