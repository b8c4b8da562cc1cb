package testutil

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInjected is returned by MemoryKV operations configured to fail.
var ErrInjected = errors.New("injected storage failure")

// MemoryKV is an in-memory scoped key-value store with failure injection.
//
// It satisfies the same contract as the SQLite and Postgres stores, which
// lets engine tests exercise persist failures without a database.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]map[string][]byte

	// FailUpdates makes the next N Update calls fail with ErrInjected.
	// Negative means fail forever.
	FailUpdates int

	// FailGets makes every Get fail with ErrInjected.
	FailGets bool

	// Updates counts Update calls, failed ones included.
	Updates int
}

// NewMemoryKV creates an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, scope, name string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailGets {
		return nil, false, ErrInjected
	}
	v, ok := m.data[scope][name]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Put(_ context.Context, scope, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(scope, name, value)
	return nil
}

func (m *MemoryKV) Add(_ context.Context, scope, name string, value []byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[scope][name]; ok {
		return false, nil
	}
	m.put(scope, name, value)
	return true, nil
}

func (m *MemoryKV) Delete(_ context.Context, scope, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[scope], name)
	return nil
}

func (m *MemoryKV) Update(_ context.Context, scope, name string, fn func(old []byte, found bool) ([]byte, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates++
	if m.FailUpdates != 0 {
		if m.FailUpdates > 0 {
			m.FailUpdates--
		}
		return ErrInjected
	}
	old, found := m.data[scope][name]
	next, err := fn(old, found)
	if err != nil {
		return err
	}
	m.put(scope, name, next)
	return nil
}

// Scopes lists scopes holding name, sorted.
func (m *MemoryKV) Scopes(_ context.Context, name string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scopes := []string{}
	for scope, opts := range m.data {
		if _, ok := opts[name]; ok {
			scopes = append(scopes, scope)
		}
	}
	sort.Strings(scopes)
	return scopes, nil
}

// Raw returns the stored bytes for inspection in assertions.
func (m *MemoryKV) Raw(scope, name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[scope][name]
	return string(v), ok
}

// Has reports whether scope holds name.
func (m *MemoryKV) Has(scope, name string) bool {
	_, ok := m.Raw(scope, name)
	return ok
}

func (m *MemoryKV) put(scope, name string, value []byte) {
	if m.data[scope] == nil {
		m.data[scope] = make(map[string][]byte)
	}
	m.data[scope][name] = append([]byte(nil), value...)
}
