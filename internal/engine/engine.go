package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/ri/internal/discovery"
	"github.com/roach88/ri/internal/ir"
)

// Source discovers instructions grouped by owner.
// *discovery.Discoverer is the production implementation.
type Source interface {
	Discover(ctx context.Context) ([]discovery.Group, error)
}

// Callables resolves and invokes instructions by name.
// *discovery.Registry is the production implementation.
type Callables interface {
	Exists(name string) bool
	Lookup(name string) (ir.Instruction, bool)
	Invoke(ctx context.Context, name string) (string, error)
}

// StatusStore records executed instructions.
// *status.Store is the production implementation.
type StatusStore interface {
	Scope() string
	GetAll(ctx context.Context) (ir.Status, error)
	Set(ctx context.Context, name string, flag bool) error
}

// HistoryRecorder appends execution history.
// Both internal/store and internal/pgstore implement it.
type HistoryRecorder interface {
	AppendExecution(ctx context.Context, e ir.Execution) (int64, error)
}

// DefaultPersistRetries is how many extra times a failed status write is
// attempted before the instruction is reported as unpersisted.
const DefaultPersistRetries = 1

// Engine runs and previews release instructions.
//
// Thread-safety: an Engine runs one operation at a time. Operations are
// synchronous and must not be called concurrently.
type Engine struct {
	source    Source
	callables Callables
	status    StatusStore

	history        HistoryRecorder
	out            Output
	runIDs         RunIDGenerator
	logger         *slog.Logger
	persistRetries int
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sets where operator-facing lines go. Default: Discard.
func WithOutput(out Output) Option {
	return func(e *Engine) {
		if out != nil {
			e.out = out
		}
	}
}

// WithHistory records every runSingle outcome. Default: no history.
func WithHistory(h HistoryRecorder) Option {
	return func(e *Engine) {
		e.history = h
	}
}

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(g RunIDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.runIDs = g
		}
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPersistRetries sets how many extra status write attempts are made.
// Negative values are treated as 0.
func WithPersistRetries(n int) Option {
	return func(e *Engine) {
		e.persistRetries = max(n, 0)
	}
}

// New creates an Engine. source, callables and st are required.
func New(source Source, callables Callables, st StatusStore, opts ...Option) (*Engine, error) {
	if source == nil || callables == nil || st == nil {
		return nil, errors.New("engine: source, callables and status store are required")
	}
	e := &Engine{
		source:         source,
		callables:      callables,
		status:         st,
		out:            Discard,
		runIDs:         UUIDv7Generator{},
		logger:         slog.Default(),
		persistRetries: DefaultPersistRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}
