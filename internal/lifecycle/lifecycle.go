// Package lifecycle implements the install-time hooks of the runner:
// activation creates empty status mappings, deactivation and uninstall
// remove them.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/ri/internal/ir"
	"github.com/roach88/ri/internal/status"
)

// KV is the status key-value contract plus scope enumeration.
type KV interface {
	status.KV
	Scopes(ctx context.Context, name string) ([]string, error)
}

// Manager runs lifecycle hooks against one store.
type Manager struct {
	KV        KV
	Multisite bool

	// Tenants lists the tenant scopes to act on when Multisite is set.
	// When empty, Deactivate falls back to every scope holding a mapping.
	Tenants []string

	// Tenant is the configured tenant. Activate uses it when Tenants is
	// empty.
	Tenant string

	Logger *slog.Logger
}

// ErrNoTenant is returned by Activate in multisite mode when neither
// Tenants nor Tenant names a scope.
var ErrNoTenant = errors.New("multisite is enabled: set tenants or tenant in the config, or pass --tenant")

// Result reports what a hook did to one scope.
type Result struct {
	Scope   string `json:"scope"`
	Changed bool   `json:"changed"`
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// Activate initializes an empty mapping in every target scope. Existing
// mappings are left untouched (Changed=false).
//
// In multisite mode with no Tenants, the configured Tenant is activated.
func (m *Manager) Activate(ctx context.Context) ([]Result, error) {
	scopes := m.targets()
	if m.Multisite && len(scopes) == 0 {
		if m.Tenant == "" {
			return nil, ErrNoTenant
		}
		scopes = []string{m.Tenant}
	}
	results := make([]Result, 0, len(scopes))
	for _, scope := range scopes {
		created, err := status.New(m.KV, scope).Init(ctx)
		if err != nil {
			return results, fmt.Errorf("activate scope %q: %w", scope, err)
		}
		m.logger().Debug("status mapping initialized", "scope", scope, "created", created)
		results = append(results, Result{Scope: scope, Changed: created})
	}
	return results, nil
}

// Deactivate deletes the mapping in every target scope.
func (m *Manager) Deactivate(ctx context.Context) ([]Result, error) {
	scopes := m.targets()
	if m.Multisite && len(m.Tenants) == 0 {
		found, err := m.KV.Scopes(ctx, ir.StatusOption)
		if err != nil {
			return nil, fmt.Errorf("deactivate: %w", err)
		}
		scopes = found
	}
	return m.reset(ctx, "deactivate", scopes)
}

// Uninstall deletes the global mapping only.
func (m *Manager) Uninstall(ctx context.Context) ([]Result, error) {
	return m.reset(ctx, "uninstall", []string{""})
}

func (m *Manager) reset(ctx context.Context, op string, scopes []string) ([]Result, error) {
	results := make([]Result, 0, len(scopes))
	for _, scope := range scopes {
		if err := status.New(m.KV, scope).Reset(ctx); err != nil {
			return results, fmt.Errorf("%s scope %q: %w", op, scope, err)
		}
		m.logger().Debug("status mapping deleted", "op", op, "scope", scope)
		results = append(results, Result{Scope: scope, Changed: true})
	}
	return results, nil
}

func (m *Manager) targets() []string {
	if !m.Multisite {
		return []string{""}
	}
	return m.Tenants
}
