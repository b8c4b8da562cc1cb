package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/ri/internal/discovery"
	"github.com/roach88/ri/internal/engine"
	"github.com/roach88/ri/internal/ir"
	"github.com/roach88/ri/internal/status"
	"github.com/roach88/ri/internal/store"
)

// Harness holds the state shared by the steps of one scenario.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	status   *status.Store
	plugins  string
	runIDs   *engine.SequenceRunIDs
	logger   *slog.Logger
}

// Run executes a scenario in workDir, which must be empty or absent.
//
// Each step gets a fresh registry and engine, the way each CLI invocation
// does, while the plugin tree and SQLite store persist across steps.
func Run(ctx context.Context, scenario *Scenario, workDir string) (*Result, error) {
	pluginsDir := filepath.Join(workDir, "plugins")
	if err := writePlugins(pluginsDir, scenario.Plugins); err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(workDir, "ri.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		store:    st,
		status:   status.New(st, status.ScopeFor(scenario.Multisite, scenario.Tenant)),
		plugins:  pluginsDir,
		runIDs:   engine.NewSequenceRunIDs("run"),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Seed in name order so the store sees a deterministic write sequence.
	names := make([]string, 0, len(scenario.Status))
	for name := range scenario.Status {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := h.status.Set(ctx, name, scenario.Status[name]); err != nil {
			return nil, fmt.Errorf("failed to seed status: %w", err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		sr, err := h.runStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		if msg := checkStepError(step, sr.err); msg != "" {
			result.AddError(fmt.Sprintf("step %d (%s): %s", i, step.Op, msg))
		}
		result.Steps = append(result.Steps, sr.StepResult)
	}

	if result.History, err = h.history(ctx); err != nil {
		return nil, err
	}
	if result.Status, err = h.status.GetAll(ctx); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

type stepRun struct {
	StepResult
	err error
}

// runStep executes one step. The returned error is reserved for harness
// failures; the step's own outcome is carried in stepRun.err.
func (h *Harness) runStep(ctx context.Context, step Step) (stepRun, error) {
	rec := &engine.Recorder{}
	sr := stepRun{StepResult: StepResult{Op: step.Op, Arg: step.Arg}}

	if step.Op == OpSetStatus {
		if err := h.status.Set(ctx, step.Arg, step.Flag); err != nil {
			return sr, err
		}
		return sr, nil
	}

	eng, err := h.newEngine(rec)
	if err != nil {
		return sr, err
	}

	switch step.Op {
	case OpPreview:
		sr.err = eng.Preview(ctx, false)
	case OpPreviewAll:
		sr.err = eng.Preview(ctx, true)
	case OpExecute:
		_, sr.err = eng.ExecuteOne(ctx, step.Arg)
	case OpExecuteAll:
		_, sr.err = eng.ExecuteAll(ctx)
	}
	sr.Lines = rec.Lines
	if sr.err != nil {
		sr.Error = errorKind(sr.err)
	}
	return sr, nil
}

func (h *Harness) newEngine(out engine.Output) (*engine.Engine, error) {
	reg := discovery.NewRegistry()
	loader := discovery.NewLoader(reg, discovery.LoaderOptions{
		Options: h.store,
		Scope:   h.status.Scope(),
		Logger:  h.logger,
		Log: func(msg string) {
			out.Emit(engine.SeverityInfo, msg)
		},
	})
	owners := &discovery.ManifestRegistry{Dir: h.plugins, Multisite: h.scenario.Multisite}
	d := discovery.New(owners, discovery.Convention{Root: h.plugins}, loader)

	opts := []engine.Option{
		engine.WithOutput(out),
		engine.WithHistory(h.store),
		engine.WithRunIDs(h.runIDs),
		engine.WithLogger(h.logger),
	}
	if h.scenario.PersistRetries != nil {
		opts = append(opts, engine.WithPersistRetries(*h.scenario.PersistRetries))
	}
	return engine.New(d, reg, h.status, opts...)
}

// history returns every record of the scenario's scope, oldest first.
func (h *Harness) history(ctx context.Context) ([]ir.Execution, error) {
	execs, err := h.store.ListExecutions(ctx, h.status.Scope(), 0)
	if err != nil {
		return nil, err
	}
	slices.Reverse(execs)
	return execs, nil
}

// errorKind classifies a step error.
func errorKind(err error) string {
	var le *discovery.LoadError
	switch {
	case engine.IsExecutionError(err):
		return ErrKindExecution
	case ir.IsConflict(err):
		return ErrKindConflict
	case errors.As(err, &le):
		return ErrKindLoad
	default:
		return err.Error()
	}
}

func checkStepError(step Step, err error) string {
	switch {
	case err == nil && step.ExpectError == "":
		return ""
	case err == nil:
		return fmt.Sprintf("expected %s error, step succeeded", step.ExpectError)
	case step.ExpectError == "":
		return fmt.Sprintf("unexpected error: %v", err)
	case errorKind(err) != step.ExpectError:
		return fmt.Sprintf("expected %s error, got: %v", step.ExpectError, err)
	default:
		return ""
	}
}

// writePlugins materializes plugin definitions under dir.
func writePlugins(dir string, plugins []PluginDef) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plugins dir: %w", err)
	}
	for _, p := range plugins {
		pdir := filepath.Join(dir, p.Key)
		if err := os.MkdirAll(filepath.Join(pdir, discovery.UnitDir), 0o755); err != nil {
			return fmt.Errorf("failed to create plugin %s: %w", p.Key, err)
		}

		ri := p.RI == nil || *p.RI
		manifest, err := yaml.Marshal(discovery.Manifest{Name: p.Name, Version: "1.0.0", RI: ri})
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(pdir, discovery.ManifestFile), manifest, 0o644); err != nil {
			return fmt.Errorf("failed to write manifest for %s: %w", p.Key, err)
		}

		for name, src := range p.Units {
			if err := os.WriteFile(filepath.Join(pdir, discovery.UnitDir, name), []byte(src), 0o644); err != nil {
				return fmt.Errorf("failed to write unit %s/%s: %w", p.Key, name, err)
			}
		}
	}
	return nil
}
