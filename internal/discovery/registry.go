package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/ri/internal/ir"
)

// Func is the body of a release instruction. The returned string is an
// optional human-readable completion message.
type Func func(ctx context.Context) (string, error)

type entry struct {
	inst ir.Instruction
	fn   Func
}

// Registry maps instruction names to their callables.
//
// Registry is not safe for concurrent mutation.
type Registry struct {
	entries map[string]entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register adds a callable under inst.Name.
//
// Returns *ir.ConflictError if the name is already registered, and an
// error if the name is empty or fn is nil.
func (r *Registry) Register(inst ir.Instruction, fn Func) error {
	if inst.Name == "" {
		return fmt.Errorf("register: empty instruction name")
	}
	if fn == nil {
		return fmt.Errorf("register %s: nil func", inst.Name)
	}
	if existing, ok := r.entries[inst.Name]; ok {
		return &ir.ConflictError{Name: inst.Name, Existing: existing.inst, Duplicate: inst}
	}
	r.entries[inst.Name] = entry{inst: inst, fn: fn}
	r.order = append(r.order, inst.Name)
	return nil
}

// RegisterOwned validates name against owner's naming pattern, derives the
// version from it and registers fn. Go code uses this to contribute
// instructions without a source unit.
func (r *Registry) RegisterOwned(owner ir.Owner, name string, fn Func) (ir.Instruction, error) {
	version, ok := ir.NewNamePattern(owner.Prefix()).Match(name)
	if !ok {
		return ir.Instruction{}, fmt.Errorf("register %s: name does not match %s_ri_<version>", name, owner.Prefix())
	}
	inst := ir.Instruction{Owner: owner.Key, Name: name, Version: version}
	if err := r.Register(inst, fn); err != nil {
		return ir.Instruction{}, err
	}
	return inst, nil
}

// Lookup returns the registered instruction metadata for name.
func (r *Registry) Lookup(name string) (ir.Instruction, bool) {
	e, ok := r.entries[name]
	return e.inst, ok
}

// Exists reports whether a callable named name is registered.
func (r *Registry) Exists(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Names returns every registered name in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}

// Owned returns the instructions registered for owner, in registration order.
func (r *Registry) Owned(owner string) []ir.Instruction {
	var out []ir.Instruction
	for _, name := range r.order {
		if e := r.entries[name]; e.inst.Owner == owner {
			out = append(out, e.inst)
		}
	}
	return out
}

// Invoke calls the named instruction with no arguments.
// Errors from the callable are returned unchanged.
func (r *Registry) Invoke(ctx context.Context, name string) (string, error) {
	e, ok := r.entries[name]
	if !ok {
		return "", fmt.Errorf("invoke %s: not registered", name)
	}
	return e.fn(ctx)
}
