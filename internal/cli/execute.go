package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewExecuteCommand creates the execute command.
func NewExecuteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "execute <name|pattern>",
		Short: "Run one release instruction, or every instruction matching a pattern",
		Long: `Run a release instruction by exact name, regardless of its status.

A name containing "*" is a pattern matched against the full name of every
discovered instruction, executed ones included. Matches run in owner and
version order.

Example:
  ri execute shop_ri_3
  ri execute 'shop_ri_*'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				eng, err := a.newEngine(rootOpts)
				if err != nil {
					return err
				}
				if _, err := eng.ExecuteOne(ctx, args[0]); err != nil {
					return runError(err)
				}
				return nil
			})
		},
	}
}

// NewRunCommand creates the run command (execute all pending).
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Aliases: []string{"execute-all"},
		Short:   "Run every pending release instruction",
		Long: `Run every release instruction not yet marked executed, grouped by
plugin and ordered by version.

A failing instruction stops the run; it is not marked executed and will be
retried next time. Exit code 1 reports such a failure.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				eng, err := a.newEngine(rootOpts)
				if err != nil {
					return err
				}
				if _, err := eng.ExecuteAll(ctx); err != nil {
					return runError(err)
				}
				return nil
			})
		},
	}
}
