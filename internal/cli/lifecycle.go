package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/lifecycle"
)

type hook func(m *lifecycle.Manager, ctx context.Context) ([]lifecycle.Result, error)

func newLifecycleCommand(rootOpts *RootOptions, use, short, long string, run hook) *cobra.Command {
	return &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				results, err := run(a.lifecycle(), ctx)
				if errors.Is(err, lifecycle.ErrNoTenant) {
					return commandError(ErrCodeConfig, "invalid configuration", err)
				}
				if err != nil {
					return commandError(ErrCodeStore, use+" failed", err)
				}
				if a.format.Format == "json" {
					return a.format.Success(results)
				}
				return a.format.Success(describeResults(use, results))
			})
		},
	}
}

func describeResults(op string, results []lifecycle.Result) string {
	if len(results) == 0 {
		return op + ": no scopes"
	}
	lines := make([]string, len(results))
	for i, r := range results {
		scope := r.Scope
		if scope == "" {
			scope = "(global)"
		}
		state := "unchanged"
		if r.Changed {
			state = "done"
		}
		lines[i] = fmt.Sprintf("%s %s: %s", op, scope, state)
	}
	return strings.Join(lines, "\n")
}

// NewActivateCommand creates the activate command.
func NewActivateCommand(rootOpts *RootOptions) *cobra.Command {
	return newLifecycleCommand(rootOpts, "activate",
		"Initialize empty status mappings",
		"Create an empty status mapping for every configured tenant (multisite)\nor globally. Existing mappings are kept.",
		(*lifecycle.Manager).Activate)
}

// NewDeactivateCommand creates the deactivate command.
func NewDeactivateCommand(rootOpts *RootOptions) *cobra.Command {
	return newLifecycleCommand(rootOpts, "deactivate",
		"Delete status mappings",
		"Delete the status mapping of every configured tenant (multisite; all\ntenants holding one when none are configured) or the global mapping.",
		(*lifecycle.Manager).Deactivate)
}

// NewUninstallCommand creates the uninstall command.
func NewUninstallCommand(rootOpts *RootOptions) *cobra.Command {
	return newLifecycleCommand(rootOpts, "uninstall",
		"Delete the global status mapping",
		"Delete the global status mapping. Tenant mappings are left in place.",
		(*lifecycle.Manager).Uninstall)
}
