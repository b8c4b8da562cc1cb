package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/config"
	"github.com/roach88/ri/internal/discovery"
	"github.com/roach88/ri/internal/engine"
	"github.com/roach88/ri/internal/ir"
	"github.com/roach88/ri/internal/lifecycle"
	"github.com/roach88/ri/internal/logs"
	"github.com/roach88/ri/internal/pgstore"
	"github.com/roach88/ri/internal/status"
	"github.com/roach88/ri/internal/store"
)

// backend is what commands need from a key-value store.
// *store.Store and *pgstore.Store both satisfy it.
type backend interface {
	lifecycle.KV
	discovery.OptionStore
	engine.HistoryRecorder
	ListExecutions(ctx context.Context, scope string, limit int) ([]ir.Execution, error)
	Close() error
}

var (
	_ backend = (*store.Store)(nil)
	_ backend = (*pgstore.Store)(nil)
)

// app is the per-invocation wiring shared by all commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend backend
	scope   string
	console *Console
	format  *OutputFormatter

	closers []func() error
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	path, optional := opts.ConfigPath, false
	if path == "" {
		path, optional = config.DefaultPath, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, err
	}

	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if opts.Database != "" {
		cfg.Database.DSN = opts.Database
	}
	if opts.PluginsDir != "" {
		cfg.Plugins.Dir = opts.PluginsDir
	}
	if opts.Tenant != "" {
		cfg.Tenant = opts.Tenant
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration, installs the logger and opens the store.
func openApp(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, commandError(ErrCodeConfig, "invalid configuration", err)
	}

	logger, closeLog, err := logs.New(logs.Options{
		Level:   cfg.Log.Level,
		Stderr:  opts.LogWriter,
		File:    cfg.Log.File,
		Journal: cfg.Log.Journal,
	})
	if err != nil {
		return nil, commandError(ErrCodeConfig, "failed to set up logging", err)
	}
	slog.SetDefault(logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		scope:   status.ScopeFor(cfg.Multisite, cfg.Tenant),
		console: &Console{Format: opts.Format, Writer: cmd.OutOrStdout(), Logger: logger},
		format:  &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
		closers: []func() error{closeLog},
	}

	b, err := openBackend(ctx, cfg.Database)
	if err != nil {
		_ = a.Close()
		return nil, commandError(ErrCodeStore, "failed to open database", err)
	}
	a.backend = b
	a.closers = append(a.closers, b.Close)

	logger.Debug("store ready", "driver", cfg.Database.Driver, "scope", a.scope)
	return a, nil
}

func openBackend(ctx context.Context, db config.Database) (backend, error) {
	switch db.Driver {
	case config.DriverPostgres:
		return pgstore.Open(ctx, pgstore.DefaultConfig(db.DSN))
	case config.DriverSQLite:
		return store.Open(db.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

// Close releases the store and the log file, most recent first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// statusStore returns the status mapping of the configured scope.
func (a *app) statusStore() *status.Store {
	return status.New(a.backend, a.scope)
}

// lifecycle returns the lifecycle manager for the configured tenants.
func (a *app) lifecycle() *lifecycle.Manager {
	return &lifecycle.Manager{
		KV:        a.backend,
		Multisite: a.cfg.Multisite,
		Tenants:   a.cfg.Tenants,
		Tenant:    a.cfg.Tenant,
		Logger:    a.logger,
	}
}

// newEngine wires discovery, status and history into an engine.
func (a *app) newEngine(opts *RootOptions) (*engine.Engine, error) {
	if err := a.cfg.RequireTenant(); err != nil {
		return nil, commandError(ErrCodeConfig, "invalid configuration", err)
	}

	reg := discovery.NewRegistry()
	loader := discovery.NewLoader(reg, discovery.LoaderOptions{
		Options: a.backend,
		Scope:   a.scope,
		Logger:  a.logger,
		Log: func(msg string) {
			a.console.Emit(engine.SeverityInfo, msg)
		},
	})
	owners := &discovery.ManifestRegistry{
		Dir:           a.cfg.Plugins.Dir,
		Active:        a.cfg.Plugins.Active,
		NetworkActive: a.cfg.Plugins.NetworkActive,
		Multisite:     a.cfg.Multisite,
	}
	d := discovery.New(owners, discovery.Convention{Root: a.cfg.Plugins.Dir}, loader)

	eng, err := engine.New(d, reg, a.statusStore(),
		engine.WithOutput(a.console),
		engine.WithHistory(a.backend),
		engine.WithRunIDs(opts.RunIDs),
		engine.WithLogger(a.logger),
		engine.WithPersistRetries(a.cfg.PersistRetries),
	)
	if err != nil {
		return nil, commandError(ErrCodeConfig, "failed to create engine", err)
	}
	return eng, nil
}

// runError maps an engine error to an exit error.
func runError(err error) error {
	switch {
	case engine.IsExecutionError(err):
		return executionError(err)
	case ir.IsConflict(err):
		return commandError(ErrCodeDiscovery, "conflicting release instruction definitions", err)
	default:
		var le *discovery.LoadError
		var me *discovery.ManifestError
		if errors.As(err, &le) || errors.As(err, &me) {
			return commandError(ErrCodeDiscovery, "failed to load release instructions", err)
		}
		return commandError(ErrCodeStore, "command failed", err)
	}
}

// withApp opens the app, runs fn, and closes the app. Errors are reported
// as JSON envelopes under --format json.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	defer func() { err = reportError(cmd, opts, err) }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	// Ctrl-C cancels the running instruction; status stays unset for it.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Error("error closing store", "error", closeErr)
		}
	}()
	return fn(ctx, a)
}
