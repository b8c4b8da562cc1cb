package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview [all]",
		Short: "List pending release instructions, or all of them with status markers",
		Long: `List release instructions in the order they would run.

With all set to 1 (or true), every instruction is listed with an "x"
(executed) or " " (pending) marker. Nothing is executed.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := false
			if len(args) == 1 {
				v, err := parseFlag(args[0])
				if err != nil {
					return reportError(cmd, rootOpts, commandError(ErrCodeUsage, "invalid argument", err))
				}
				all = v
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				eng, err := a.newEngine(rootOpts)
				if err != nil {
					return err
				}
				if err := eng.Preview(ctx, all); err != nil {
					return runError(err)
				}
				return nil
			})
		},
	}
}

// parseFlag accepts 0/1 and the strconv boolean spellings.
func parseFlag(s string) (bool, error) {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean flag (use 0 or 1)", s)
	}
	return v, nil
}
