package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/engine"
	"github.com/roach88/ri/internal/ir"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	ConfigPath string
	Database   string
	Driver     string
	PluginsDir string
	Tenant     string

	// RunIDs overrides the run ID generator (for tests).
	RunIDs engine.RunIDGenerator

	// LogWriter overrides where the text log handler writes (for tests).
	LogWriter io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ri CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command bound to opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ri",
		Short:   "ri - release instruction runner",
		Version: ir.RunnerVersion,
		Long: `Run versioned, run-once release instructions contributed by plugins.

Each plugin with "ri: true" in its plugin.yaml may ship Starlark files under
ri/*.ri.inc. Top-level functions named <prefix>_ri_<N> are release
instructions; they run once, in version order, and their execution status
is persisted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return commandError(ErrCodeUsage, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to ri.cue (default ./ri.cue if present)")
	pf.StringVar(&opts.Database, "db", "", "database DSN or SQLite path (overrides database.dsn)")
	pf.StringVar(&opts.Driver, "driver", "", "database driver: sqlite|postgres (overrides database.driver)")
	pf.StringVar(&opts.PluginsDir, "plugins", "", "plugins directory (overrides plugins.dir)")
	pf.StringVar(&opts.Tenant, "tenant", "", "tenant scope for multisite installs (overrides tenant)")

	cmd.AddCommand(NewExecuteCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewActivateCommand(opts))
	cmd.AddCommand(NewDeactivateCommand(opts))
	cmd.AddCommand(NewUninstallCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}
