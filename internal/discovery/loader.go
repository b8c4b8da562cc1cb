package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/roach88/ri/internal/ir"
)

// LoadError reports a source unit that could not be read or executed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Options backs the options builtin. Nil makes options.* calls fail.
	Options OptionStore

	// Scope is the option scope instructions read and write.
	Scope string

	// Logger receives print() output and load diagnostics.
	Logger *slog.Logger

	// Log receives log() output from instructions. Nil discards it.
	Log func(msg string)
}

// Loader executes Starlark source units at most once and registers the
// instructions they define.
type Loader struct {
	registry *Registry
	opts     LoaderOptions
	logger   *slog.Logger
	loaded   map[string][]ir.Instruction
}

// NewLoader creates a loader registering into reg.
func NewLoader(reg *Registry, opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		registry: reg,
		opts:     opts,
		logger:   logger,
		loaded:   make(map[string][]ir.Instruction),
	}
}

// Registry returns the registry the loader populates.
func (l *Loader) Registry() *Registry {
	return l.registry
}

// Loaded reports whether the unit at path has been loaded.
func (l *Loader) Loaded(path string) bool {
	_, ok := l.loaded[path]
	return ok
}

// LoadAndExtract loads unit (once) and returns the instructions it defines
// for owner, sorted by name.
//
// Loading the same unit again returns the cached result without executing
// the file. Top-level callables that end in "_<digits>" and match the
// owner's naming pattern are registered; everything else is ignored.
func (l *Loader) LoadAndExtract(ctx context.Context, owner ir.Owner, unit ir.SourceUnit) ([]ir.Instruction, error) {
	if insts, ok := l.loaded[unit.Path]; ok {
		return insts, nil
	}

	src, err := os.ReadFile(unit.Path)
	if err != nil {
		return nil, &LoadError{Path: unit.Path, Err: err}
	}

	thread := l.newThread(ctx, unit.Path)
	globals, err := starlark.ExecFileOptions(fileOptions, thread, unit.Path, src, l.predeclared())
	if err != nil {
		return nil, &LoadError{Path: unit.Path, Err: err}
	}

	pattern := ir.NewNamePattern(owner.Prefix())
	var insts []ir.Instruction
	for _, name := range globals.Keys() {
		fn, ok := globals[name].(starlark.Callable)
		if !ok || !ir.HasVersionSuffix(name) {
			continue
		}
		version, ok := pattern.Match(name)
		if !ok {
			continue
		}
		inst := ir.Instruction{Owner: owner.Key, Name: name, Version: version, Unit: unit.Path}
		if err := l.registry.Register(inst, l.callable(name, fn)); err != nil {
			return nil, err
		}
		insts = append(insts, inst)
	}

	l.loaded[unit.Path] = insts
	l.logger.Debug("source unit loaded", "owner", owner.Key, "unit", unit.Path, "instructions", len(insts))
	return insts, nil
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// callable adapts a Starlark callable to a Func.
func (l *Loader) callable(name string, fn starlark.Callable) Func {
	return func(ctx context.Context) (string, error) {
		thread := l.newThread(ctx, name)
		stop := context.AfterFunc(ctx, func() {
			thread.Cancel(ctx.Err().Error())
		})
		defer stop()

		v, err := starlark.Call(thread, fn, nil, nil)
		if err != nil {
			return "", err
		}
		return messageOf(v), nil
	}
}

// messageOf turns a return value into a completion message.
// Falsy values (None, False, 0, "", empty collections) yield "".
func messageOf(v starlark.Value) string {
	if v == nil || !v.Truth() {
		return ""
	}
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

const contextLocal = "ri.context"

func (l *Loader) newThread(ctx context.Context, name string) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(t *starlark.Thread, msg string) {
			l.logger.Debug(msg, "thread", t.Name)
		},
	}
	thread.SetLocal(contextLocal, ctx)
	return thread
}

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextLocal).(context.Context); ok {
		return ctx
	}
	return context.Background()
}
