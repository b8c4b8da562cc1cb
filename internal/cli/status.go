package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/engine"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <name> [flag]",
		Short: "Show or set the executed status of a release instruction",
		Long: `Without flag, print whether the instruction is marked executed.
With flag (0 or 1), set it. Setting 0 makes the instruction run again on the
next "ri run".`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if err := a.cfg.RequireTenant(); err != nil {
					return commandError(ErrCodeConfig, "invalid configuration", err)
				}
				st := a.statusStore()

				if len(args) == 2 {
					flag, err := parseFlag(args[1])
					if err != nil {
						return commandError(ErrCodeUsage, "invalid argument", err)
					}
					if err := st.Set(ctx, name, flag); err != nil {
						return commandError(ErrCodeStore, "failed to set status", err)
					}
					a.console.Emit(engine.SeveritySuccess, fmt.Sprintf("Status for %s() was set to \"%d\".", name, boolDigit(flag)))
					return nil
				}

				executed, err := st.Get(ctx, name)
				if err != nil {
					return commandError(ErrCodeStore, "failed to read status", err)
				}
				a.console.Emit(engine.SeveritySuccess, fmt.Sprintf("Status for %s() is \"%d\".", name, boolDigit(executed)))
				return nil
			})
		},
	}
}

func boolDigit(b bool) int {
	if b {
		return 1
	}
	return 0
}
