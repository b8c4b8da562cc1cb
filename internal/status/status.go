// Package status persists which release instructions have been executed.
//
// The whole mapping (name -> executed) is stored as one option in a scoped
// key-value store and is always read and written in full. Set performs its
// read-modify-write through the store's Update, so the merge happens inside
// one transaction on backends that support it.
package status

import (
	"context"
	"fmt"

	"github.com/roach88/ri/internal/ir"
)

// KV is the persistent key-value contract the status mapping lives in.
// internal/store and internal/pgstore both satisfy it.
type KV interface {
	Get(ctx context.Context, scope, name string) ([]byte, bool, error)
	Add(ctx context.Context, scope, name string, value []byte) (bool, error)
	Delete(ctx context.Context, scope, name string) error
	Update(ctx context.Context, scope, name string, fn func(old []byte, found bool) ([]byte, error)) error
}

// ScopeFor resolves the option scope: the tenant when running multi-tenant,
// the global scope otherwise.
func ScopeFor(multisite bool, tenant string) string {
	if multisite {
		return tenant
	}
	return ""
}

// Store reads and writes the execution status mapping of one scope.
type Store struct {
	kv     KV
	scope  string
	option string
}

// New creates a Store over kv for scope, using ir.StatusOption as the key.
func New(kv KV, scope string) *Store {
	return &Store{kv: kv, scope: scope, option: ir.StatusOption}
}

// Scope returns the scope this store operates on.
func (s *Store) Scope() string {
	return s.scope
}

// GetAll returns the full mapping. An unset option yields an empty mapping.
func (s *Store) GetAll(ctx context.Context) (ir.Status, error) {
	raw, found, err := s.kv.Get(ctx, s.scope, s.option)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	if !found {
		return ir.Status{}, nil
	}
	st, err := ir.UnmarshalStatus(raw)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	return st, nil
}

// Get reports whether name is marked executed. A name that was never set
// is not executed; only storage failures return an error.
func (s *Store) Get(ctx context.Context, name string) (bool, error) {
	st, err := s.GetAll(ctx)
	if err != nil {
		return false, err
	}
	return st.Executed(name), nil
}

// Set merges {name: flag} into the mapping and persists the whole mapping.
// A nil error means the write is durable.
func (s *Store) Set(ctx context.Context, name string, flag bool) error {
	err := s.kv.Update(ctx, s.scope, s.option, func(old []byte, found bool) ([]byte, error) {
		st := ir.Status{}
		if found {
			decoded, err := ir.UnmarshalStatus(old)
			if err != nil {
				return nil, err
			}
			st = decoded
		}
		st[name] = flag
		return ir.MarshalStatus(st)
	})
	if err != nil {
		return fmt.Errorf("set status for %s: %w", name, err)
	}
	return nil
}

// Init creates an empty mapping unless one already exists.
// Returns created=false when existing data was kept.
func (s *Store) Init(ctx context.Context) (bool, error) {
	empty, err := ir.MarshalStatus(nil)
	if err != nil {
		return false, err
	}
	created, err := s.kv.Add(ctx, s.scope, s.option, empty)
	if err != nil {
		return false, fmt.Errorf("init status: %w", err)
	}
	return created, nil
}

// Reset deletes the mapping entirely. Every instruction becomes pending.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.scope, s.option); err != nil {
		return fmt.Errorf("reset status: %w", err)
	}
	return nil
}
