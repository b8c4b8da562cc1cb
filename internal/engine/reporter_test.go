package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview_AllWithMarkers(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_2", nil)
	f.add(t, shop, "shop_ri_1", nil)
	ctx := context.Background()
	require.NoError(t, f.status.Set(ctx, "shop_ri_1", true))
	updatesBefore := f.kv.Updates

	require.NoError(t, f.engine.Preview(ctx, true))
	assert.Equal(t, []Line{
		{SeverityPlain, MsgPreviewAll},
		{SeverityExecuted, "shop_ri_1()"},
		{SeverityPending, "shop_ri_2()"},
		{SeverityPlain, MsgEndOfList},
	}, f.out.Lines)
	assert.Equal(t, updatesBefore, f.kv.Updates, "preview is read-only")
	assert.Empty(t, f.calls)
}

func TestPreview_AllExecutedReportsNothingToExecute(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	ctx := context.Background()
	require.NoError(t, f.status.Set(ctx, "shop_ri_1", true))

	require.NoError(t, f.engine.Preview(ctx, true))
	assert.Equal(t, []string{MsgNothingToExecute}, f.out.Messages(SeverityNotice))
	assert.Equal(t, []string{"shop_ri_1()"}, f.out.Messages(SeverityExecuted))
}

func TestPreview_Empty(t *testing.T) {
	for _, all := range []bool{false, true} {
		f := newFixture(t)
		require.NoError(t, f.engine.Preview(context.Background(), all))

		last := f.out.Lines[len(f.out.Lines)-1]
		assert.Equal(t, Line{SeverityPlain, MsgEndOfList}, last)
		assert.Equal(t, []string{MsgNothingToExecute}, f.out.Messages(SeverityNotice))
	}
}

func TestPreview_PendingOnly(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	f.add(t, shop, "shop_ri_2", nil)
	ctx := context.Background()
	require.NoError(t, f.status.Set(ctx, "shop_ri_1", true))

	require.NoError(t, f.engine.Preview(ctx, false))
	assert.Equal(t, []Line{
		{SeverityPlain, MsgPreviewPending},
		{SeverityPlain, "shop_ri_2()"},
		{SeverityPlain, MsgEndOfList},
	}, f.out.Lines)
}
