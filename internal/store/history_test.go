package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ri/internal/ir"
)

func TestAppendExecution_AssignsIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id1, err := s.AppendExecution(ctx, createTestExecution("run-1", 1, "shop_ri_1", ir.OutcomeExecuted))
	require.NoError(t, err)
	id2, err := s.AppendExecution(ctx, createTestExecution("run-1", 2, "shop_ri_2", ir.OutcomeMissing))
	require.NoError(t, err)

	assert.Greater(t, id2, id1)
}

func TestAppendExecution_DuplicateStepRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendExecution(ctx, createTestExecution("run-1", 1, "shop_ri_1", ir.OutcomeExecuted))
	require.NoError(t, err)
	_, err = s.AppendExecution(ctx, createTestExecution("run-1", 1, "shop_ri_1", ir.OutcomeExecuted))
	assert.Error(t, err)
}

func TestListExecutions_NewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"shop_ri_1", "shop_ri_2", "shop_ri_3"} {
		_, err := s.AppendExecution(ctx, createTestExecution("run-1", int64(i+1), name, ir.OutcomeExecuted))
		require.NoError(t, err)
	}

	execs, err := s.ListExecutions(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, "shop_ri_3", execs[0].Name)
	assert.Equal(t, "shop_ri_1", execs[2].Name)
	assert.Equal(t, ir.OutcomeExecuted, execs[0].Outcome)
	assert.Equal(t, "run-1", execs[0].RunID)
	assert.Equal(t, int64(3), execs[0].Seq)

	limited, err := s.ListExecutions(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListExecutions_ScopeFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := createTestExecution("run-1", 1, "shop_ri_1", ir.OutcomeExecuted)
	e.Scope = "7"
	_, err := s.AppendExecution(ctx, e)
	require.NoError(t, err)

	execs, err := s.ListExecutions(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, execs)
	assert.NotNil(t, execs)

	execs, err = s.ListExecutions(ctx, "7", 0)
	require.NoError(t, err)
	assert.Len(t, execs, 1)
}
