package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/ri/internal/discovery"
	"github.com/roach88/ri/internal/ir"
	"github.com/roach88/ri/internal/status"
	"github.com/roach88/ri/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves groups from a registry, like discovery does.
type fakeSource struct {
	groups []discovery.Group
	err    error
	calls  int
}

func (f *fakeSource) Discover(context.Context) ([]discovery.Group, error) {
	f.calls++
	return f.groups, f.err
}

// fixture wires an engine over an in-memory registry and status store.
type fixture struct {
	reg    *discovery.Registry
	source *fakeSource
	kv     *testutil.MemoryKV
	status *status.Store
	out    *Recorder
	hist   *memHistory
	calls  map[string]int
	order  []string
	engine *Engine
}

type memHistory struct {
	records []ir.Execution
	err     error
}

func (h *memHistory) AppendExecution(_ context.Context, e ir.Execution) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.records = append(h.records, e)
	return int64(len(h.records)), nil
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		reg:    discovery.NewRegistry(),
		source: &fakeSource{},
		kv:     testutil.NewMemoryKV(),
		out:    &Recorder{},
		hist:   &memHistory{},
		calls:  make(map[string]int),
	}
	f.status = status.New(f.kv, "")
	base := []Option{
		WithOutput(f.out),
		WithHistory(f.hist),
		WithRunIDs(NewSequenceRunIDs("test")),
	}
	e, err := New(f.source, f.reg, f.status, append(base, opts...)...)
	require.NoError(t, err)
	f.engine = e
	return f
}

// add registers an instruction for owner; body may be nil.
func (f *fixture) add(t *testing.T, owner ir.Owner, name string, body func() (string, error)) {
	t.Helper()
	inst, err := f.reg.RegisterOwned(owner, name, func(context.Context) (string, error) {
		f.calls[name]++
		f.order = append(f.order, name)
		if body == nil {
			return "", nil
		}
		return body()
	})
	require.NoError(t, err)

	for i := range f.source.groups {
		if f.source.groups[i].Owner.Key == owner.Key {
			f.source.groups[i].Instructions = append(f.source.groups[i].Instructions, inst)
			return
		}
	}
	f.source.groups = append(f.source.groups, discovery.Group{Owner: owner, Instructions: []ir.Instruction{inst}})
}

func (f *fixture) executed(t *testing.T, name string) bool {
	t.Helper()
	ok, err := f.status.Get(context.Background(), name)
	require.NoError(t, err)
	return ok
}

var (
	shop  = ir.Owner{Key: "shop", Name: "Shop", RI: true}
	cool  = ir.Owner{Key: "my-cool-plugin", Name: "My Cool Plugin!!", RI: true}
	other = ir.Owner{Key: "other-owner", Name: "Other Owner", RI: true}
)

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, discovery.NewRegistry(), status.New(testutil.NewMemoryKV(), ""))
	assert.Error(t, err)
}

func names(insts []ir.Instruction) []string {
	out := make([]string, len(insts))
	for i, inst := range insts {
		out[i] = inst.Name
	}
	return out
}

func TestGetUpdates_OrdersByVersion(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_5", nil)
	f.add(t, shop, "shop_ri_1", nil)
	f.add(t, shop, "shop_ri_3", nil)

	groups, err := f.engine.GetUpdates(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	if diff := cmp.Diff([]string{"shop_ri_1", "shop_ri_3", "shop_ri_5"}, names(groups[0].Instructions)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestGetUpdates_NumericNotLexical(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_10", nil)
	f.add(t, shop, "shop_ri_9", nil)
	f.add(t, shop, "shop_ri_100", nil)

	groups, err := f.engine.GetUpdates(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_9", "shop_ri_10", "shop_ri_100"}, names(groups[0].Instructions))
}

func TestGetUpdates_StableForEqualVersions(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_b_ri_2", nil)
	f.add(t, shop, "shop_a_ri_2", nil)
	f.add(t, shop, "shop_ri_1", nil)

	groups, err := f.engine.GetUpdates(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1", "shop_b_ri_2", "shop_a_ri_2"}, names(groups[0].Instructions))
}

func TestGetUpdates_KeepsOwnerOrderAndExcludesExecuted(t *testing.T) {
	f := newFixture(t)
	f.add(t, other, "other_owner_ri_1", nil)
	f.add(t, shop, "shop_ri_1", nil)
	f.add(t, shop, "shop_ri_2", nil)
	ctx := context.Background()

	require.NoError(t, f.status.Set(ctx, "shop_ri_1", true))
	require.NoError(t, f.status.Set(ctx, "other_owner_ri_1", true))

	all, err := f.engine.GetUpdates(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "other-owner", all[0].Owner.Key)
	assert.Equal(t, "shop", all[1].Owner.Key)

	pending, err := f.engine.GetUpdates(ctx, true)
	require.NoError(t, err)
	require.Len(t, pending, 1, "fully executed owners are omitted")
	assert.Equal(t, []string{"shop_ri_2"}, names(pending[0].Instructions))
}

func TestGetUpdates_DiscoveryError(t *testing.T) {
	f := newFixture(t)
	f.source.err = &ir.ConflictError{Name: "shop_ri_1"}

	_, err := f.engine.GetUpdates(context.Background(), false)
	assert.True(t, ir.IsConflict(err))
}

func TestExecuteAll_IdempotentAcrossRuns(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	ctx := context.Background()

	sum, err := f.engine.ExecuteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1"}, sum.Executed)

	sum, err = f.engine.ExecuteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Invoked())
	assert.Equal(t, 1, f.calls["shop_ri_1"], "filtered mode invokes once")
}

func TestExecuteOne_ExactNameBypassesStatus(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	ctx := context.Background()

	_, err := f.engine.ExecuteOne(ctx, "shop_ri_1")
	require.NoError(t, err)
	_, err = f.engine.ExecuteOne(ctx, "shop_ri_1")
	require.NoError(t, err)

	assert.Equal(t, 2, f.calls["shop_ri_1"], "exact-name runs always invoke")
	assert.True(t, f.executed(t, "shop_ri_1"))
}

func TestExecuteOne_Missing(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)

	sum, err := f.engine.ExecuteOne(context.Background(), "shop_ri_9")
	require.NoError(t, err)

	assert.Equal(t, []string{"shop_ri_9"}, sum.Missing)
	assert.False(t, f.executed(t, "shop_ri_9"))
	assert.Equal(t, []string{"Release instruction shop_ri_9() does not exist."}, f.out.Messages(SeverityNotice))
	assert.Equal(t, []string{MsgExecuteFinished}, f.out.Messages(SeveritySuccess))

	require.Len(t, f.hist.records, 1)
	assert.Equal(t, ir.OutcomeMissing, f.hist.records[0].Outcome)
}

func TestExecuteOne_Wildcard(t *testing.T) {
	f := newFixture(t)
	f.add(t, cool, "my_cool_plugin_ri_2", nil)
	f.add(t, cool, "my_cool_plugin_ri_1", nil)
	f.add(t, other, "other_owner_ri_1", nil)
	ctx := context.Background()
	require.NoError(t, f.status.Set(ctx, "my_cool_plugin_ri_2", true))

	sum, err := f.engine.ExecuteOne(ctx, "my_cool_plugin_ri_*")
	require.NoError(t, err)

	assert.Equal(t, []string{"my_cool_plugin_ri_1", "my_cool_plugin_ri_2"}, f.order,
		"wildcard runs match executed instructions too, in version order")
	assert.Equal(t, []string{"my_cool_plugin_ri_1", "my_cool_plugin_ri_2"}, sum.Executed)
	assert.Zero(t, f.calls["other_owner_ri_1"])
}

func TestExecuteOne_WildcardNoMatch(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)

	sum, err := f.engine.ExecuteOne(context.Background(), "nothing_*")
	require.NoError(t, err)
	assert.Zero(t, sum.Invoked())
	assert.Equal(t, []string{MsgExecuteFinished}, f.out.Messages(SeveritySuccess))
}

func TestExecuteOne_WildcardMetacharactersAreLiteral(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)

	sum, err := f.engine.ExecuteOne(context.Background(), "shop.ri.*")
	require.NoError(t, err)
	assert.Zero(t, sum.Invoked())
}

func TestExecuteAll_FailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	f := newFixture(t)
	f.add(t, shop, "shop_a_ri_1", nil)
	f.add(t, shop, "shop_b_ri_2", func() (string, error) { return "", boom })
	f.add(t, shop, "shop_c_ri_3", nil)

	sum, err := f.engine.ExecuteAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsExecutionError(err))
	assert.ErrorIs(t, err, boom)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "shop_b_ri_2", ee.Name)
	assert.Equal(t, "shop", ee.Owner)
	assert.Equal(t, "test-1", ee.RunID)

	assert.True(t, f.executed(t, "shop_a_ri_1"))
	assert.False(t, f.executed(t, "shop_b_ri_2"))
	assert.False(t, f.executed(t, "shop_c_ri_3"))
	assert.Zero(t, f.calls["shop_c_ri_3"])

	assert.Equal(t, "shop_b_ri_2", sum.Failed)
	assert.Equal(t, []string{"Release instruction shop_b_ri_2() failed; remaining instructions were not run."},
		f.out.Messages(SeverityError))
	assert.Empty(t, f.out.Messages(SeveritySuccess))

	require.Len(t, f.hist.records, 2)
	assert.Equal(t, ir.OutcomeFailed, f.hist.records[1].Outcome)
	assert.Equal(t, "boom", f.hist.records[1].Message)
}

func TestExecuteAll_SkipsInstructionsExecutedMidRun(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", func() (string, error) {
		// An external writer marks the next instruction executed.
		return "", f.status.Set(context.Background(), "shop_ri_2", true)
	})
	f.add(t, shop, "shop_ri_2", nil)

	sum, err := f.engine.ExecuteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1"}, sum.Executed)
	assert.Zero(t, f.calls["shop_ri_2"])
}

func TestExecuteAll_PersistFailureRetriesThenContinues(t *testing.T) {
	f := newFixture(t, WithPersistRetries(2))
	f.add(t, shop, "shop_ri_1", func() (string, error) { return "seeded", nil })
	f.add(t, shop, "shop_ri_2", nil)
	f.kv.FailUpdates = 3 // every attempt for shop_ri_1

	sum, err := f.engine.ExecuteAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, f.kv.Updates, "three attempts for shop_ri_1, one for shop_ri_2")
	assert.Equal(t, []string{"shop_ri_1"}, sum.Unpersisted)
	assert.Equal(t, []string{"shop_ri_2"}, sum.Executed)
	assert.False(t, f.executed(t, "shop_ri_1"))
	assert.True(t, f.executed(t, "shop_ri_2"))

	assert.Equal(t, []string{"seeded"}, f.out.Messages(SeverityNotice))
	warnings := f.out.Messages(SeverityWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], MsgExecuteAllDone)
	assert.Empty(t, f.out.Messages(SeveritySuccess))

	require.Len(t, f.hist.records, 2)
	assert.Equal(t, ir.OutcomeUnpersisted, f.hist.records[0].Outcome)
}

func TestExecuteAll_PersistRecoversOnRetry(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	f.kv.FailUpdates = 1

	sum, err := f.engine.ExecuteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1"}, sum.Executed)
	assert.True(t, f.executed(t, "shop_ri_1"))
}

func TestExecuteAll_HistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	f.hist.err = errors.New("disk full")

	sum, err := f.engine.ExecuteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1"}, sum.Executed)
}

func TestExecuteAll_HistoryRecords(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", func() (string, error) { return "seeded data", nil })
	f.add(t, shop, "shop_ri_2", nil)

	_, err := f.engine.ExecuteAll(context.Background())
	require.NoError(t, err)

	want := []ir.Execution{
		{RunID: "test-1", Seq: 1, Name: "shop_ri_1", Owner: "shop", Version: 1, Outcome: ir.OutcomeExecuted, Message: "seeded data"},
		{RunID: "test-1", Seq: 2, Name: "shop_ri_2", Owner: "shop", Version: 2, Outcome: ir.OutcomeExecuted, Message: "Release instruction shop_ri_2() was executed."},
	}
	if diff := cmp.Diff(want, f.hist.records); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteAll_CanceledContext(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.ExecuteAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.calls["shop_ri_1"])
}

func TestExecuteAll_StatusReadFailure(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)
	f.kv.FailGets = true

	_, err := f.engine.ExecuteAll(context.Background())
	assert.ErrorIs(t, err, testutil.ErrInjected)
	assert.Zero(t, f.calls["shop_ri_1"])
}

func TestShopScenario(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", func() (string, error) { return "seeded data", nil })
	f.add(t, shop, "shop_ri_2", nil)
	ctx := context.Background()

	require.NoError(t, f.engine.Preview(ctx, false))
	assert.Equal(t, []Line{
		{SeverityPlain, MsgPreviewPending},
		{SeverityPlain, "shop_ri_1()"},
		{SeverityPlain, "shop_ri_2()"},
		{SeverityPlain, MsgEndOfList},
	}, f.out.Lines)

	f.out.Lines = nil
	_, err := f.engine.ExecuteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_ri_1", "shop_ri_2"}, f.order)
	assert.Equal(t, []string{"seeded data", "Release instruction shop_ri_2() was executed."}, f.out.Messages(SeverityStatus))
	assert.True(t, f.executed(t, "shop_ri_1"))
	assert.True(t, f.executed(t, "shop_ri_2"))

	f.out.Lines = nil
	sum, err := f.engine.ExecuteAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, sum.Invoked())
	assert.Equal(t, []Line{
		{SeverityNotice, MsgNothingToExecute},
		{SeveritySuccess, MsgExecuteAllDone},
	}, f.out.Lines)
}

func TestRunSingle_FramesOutput(t *testing.T) {
	f := newFixture(t)
	f.add(t, shop, "shop_ri_1", nil)

	_, err := f.engine.ExecuteOne(context.Background(), "shop_ri_1")
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{SeverityPlain, Delimiter},
		{SeverityPlain, "Running shop_ri_1()"},
		{SeverityStatus, "Release instruction shop_ri_1() was executed."},
		{SeverityPlain, Delimiter},
		{SeveritySuccess, MsgExecuteFinished},
	}, f.out.Lines)
}
