package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ri/internal/ir"
)

// RunSummary describes what one ExecuteOne or ExecuteAll call did.
type RunSummary struct {
	RunID string `json:"run_id"`

	// Executed lists instructions whose callable returned and whose status
	// was persisted, in run order.
	Executed []string `json:"executed"`

	// Unpersisted lists instructions whose callable returned but whose
	// status write failed after retries. They will run again.
	Unpersisted []string `json:"unpersisted"`

	// Missing lists requested names with no registered callable.
	Missing []string `json:"missing"`

	// Failed is the instruction whose callable errored, if any.
	Failed string `json:"failed,omitempty"`
}

// Invoked reports how many callables were invoked successfully.
func (s RunSummary) Invoked() int {
	return len(s.Executed) + len(s.Unpersisted)
}

type run struct {
	id      string
	clock   *Clock
	summary RunSummary
}

func (e *Engine) newRun() *run {
	id := e.runIDs.Generate()
	return &run{id: id, clock: NewClock(), summary: RunSummary{RunID: id}}
}

// ExecuteOne runs the instruction called name, or every discovered
// instruction matching name when it contains the "*" wildcard.
//
// An exact name is invoked regardless of its status. A wildcard is matched
// against the full name of every discovered instruction (executed ones
// included) in owner/version order; zero matches is not an error.
//
// A callable error aborts the run and is returned as *ExecutionError.
func (e *Engine) ExecuteOne(ctx context.Context, name string) (RunSummary, error) {
	r := e.newRun()

	// Discovery always runs first so the named callable is registered.
	groups, err := e.GetUpdates(ctx, false)
	if err != nil {
		return r.summary, err
	}

	if !ir.IsWildcard(name) {
		if err := e.runSingle(ctx, r, name); err != nil {
			return e.abort(r, err)
		}
		return e.finish(r, MsgExecuteFinished), nil
	}

	re, err := ir.CompileWildcard(name)
	if err != nil {
		return r.summary, fmt.Errorf("compile pattern %q: %w", name, err)
	}
	for _, inst := range flatten(groups) {
		if !re.MatchString(inst.Name) {
			continue
		}
		if err := e.runSingle(ctx, r, inst.Name); err != nil {
			return e.abort(r, err)
		}
	}
	return e.finish(r, MsgExecuteFinished), nil
}

// ExecuteAll runs every pending instruction in owner/version order.
//
// Status is re-read before each instruction, and one that became executed
// since the pending list was taken is skipped. When nothing runs the
// "Nothing to execute." notice precedes the terminal line.
func (e *Engine) ExecuteAll(ctx context.Context) (RunSummary, error) {
	r := e.newRun()

	groups, err := e.GetUpdates(ctx, true)
	if err != nil {
		return r.summary, err
	}

	attempted := 0
	for _, inst := range flatten(groups) {
		st, err := e.status.GetAll(ctx)
		if err != nil {
			return r.summary, err
		}
		if st.Executed(inst.Name) {
			e.logger.Debug("skipping instruction executed since snapshot", "run_id", r.id, "name", inst.Name)
			continue
		}
		attempted++
		if err := e.runSingle(ctx, r, inst.Name); err != nil {
			return e.abort(r, err)
		}
	}

	if attempted == 0 {
		e.out.Emit(SeverityNotice, MsgNothingToExecute)
	}
	return e.finish(r, MsgExecuteAllDone), nil
}

// runSingle invokes one instruction and records its status.
//
// A missing callable is reported and not marked executed. A callable error
// is returned unchanged, with status untouched. A status write that still
// fails after retries is reported at notice severity and the run goes on.
func (e *Engine) runSingle(ctx context.Context, r *run, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seq := r.clock.Next()
	inst, ok := e.callables.Lookup(name)
	if !ok {
		inst = ir.Instruction{Name: name}
	}

	e.out.Emit(SeverityPlain, Delimiter)
	e.out.Emit(SeverityPlain, msgRunning(name))

	if !e.callables.Exists(name) {
		e.out.Emit(SeverityNotice, msgMissing(name))
		e.out.Emit(SeverityPlain, Delimiter)
		r.summary.Missing = append(r.summary.Missing, name)
		e.record(ctx, r, seq, inst, ir.OutcomeMissing, "")
		return nil
	}

	msg, err := e.callables.Invoke(ctx, name)
	if err != nil {
		e.out.Emit(SeverityPlain, Delimiter)
		r.summary.Failed = name
		e.record(ctx, r, seq, inst, ir.OutcomeFailed, err.Error())
		return &ExecutionError{Name: name, Owner: inst.Owner, RunID: r.id, Err: err}
	}
	if msg == "" {
		msg = msgExecuted(name)
	}

	if err := e.persist(ctx, name); err != nil {
		e.logger.Warn("status not persisted", "run_id", r.id, "name", name, "error", err)
		e.out.Emit(SeverityNotice, msg)
		e.out.Emit(SeverityPlain, Delimiter)
		r.summary.Unpersisted = append(r.summary.Unpersisted, name)
		e.record(ctx, r, seq, inst, ir.OutcomeUnpersisted, msg)
		return nil
	}

	e.out.Emit(SeverityStatus, msg)
	e.out.Emit(SeverityPlain, Delimiter)
	r.summary.Executed = append(r.summary.Executed, name)
	e.record(ctx, r, seq, inst, ir.OutcomeExecuted, msg)
	return nil
}

// persist marks name executed, retrying failed writes.
func (e *Engine) persist(ctx context.Context, name string) error {
	var err error
	for attempt := 0; attempt <= e.persistRetries; attempt++ {
		if err = e.status.Set(ctx, name, true); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// record logs one outcome and appends it to history. History write
// failures are logged, never returned.
func (e *Engine) record(ctx context.Context, r *run, seq int64, inst ir.Instruction, outcome ir.Outcome, msg string) {
	level := slog.LevelInfo
	switch outcome {
	case ir.OutcomeMissing, ir.OutcomeUnpersisted:
		level = slog.LevelWarn
	case ir.OutcomeFailed:
		level = slog.LevelError
	}
	e.logger.LogAttrs(ctx, level, "release instruction",
		slog.String("run_id", r.id),
		slog.String("name", inst.Name),
		slog.String("owner", inst.Owner),
		slog.Int64("version", inst.Version),
		slog.String("outcome", string(outcome)),
		slog.Int64("seq", seq),
	)

	if e.history == nil {
		return
	}
	// The record must land even if ctx was canceled mid-instruction.
	_, err := e.history.AppendExecution(context.WithoutCancel(ctx), ir.Execution{
		RunID:   r.id,
		Scope:   e.status.Scope(),
		Seq:     seq,
		Name:    inst.Name,
		Owner:   inst.Owner,
		Version: inst.Version,
		Outcome: outcome,
		Message: msg,
	})
	if err != nil {
		e.logger.Warn("history not recorded", "run_id", r.id, "name", inst.Name, "error", err)
	}
}

// finish emits the terminal line of a completed run.
func (e *Engine) finish(r *run, done string) RunSummary {
	if n := len(r.summary.Unpersisted); n > 0 {
		e.out.Emit(SeverityWarning, done+" "+msgUnpersisted(n))
	} else {
		e.out.Emit(SeveritySuccess, done)
	}
	return r.summary
}

// abort emits the terminal line of a run stopped by err.
func (e *Engine) abort(r *run, err error) (RunSummary, error) {
	if r.summary.Failed != "" {
		e.out.Emit(SeverityError, msgFailed(r.summary.Failed))
	}
	return r.summary, err
}
