package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/ir"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded release instruction runs, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				execs, err := a.backend.ListExecutions(ctx, a.scope, opts.Limit)
				if err != nil {
					return commandError(ErrCodeStore, "failed to read history", err)
				}
				if a.format.Format == "json" {
					return a.format.Success(execs)
				}
				return a.format.Success(formatHistory(execs))
			})
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum records to show (0 = all)")
	return cmd
}

func formatHistory(execs []ir.Execution) string {
	if len(execs) == 0 {
		return "No history."
	}
	var b strings.Builder
	for i, e := range execs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s #%d %-11s %s()", e.RunID, e.Seq, e.Outcome, e.Name)
		if e.Message != "" {
			fmt.Fprintf(&b, " - %s", e.Message)
		}
	}
	return b.String()
}
