// Package config loads ri.cue, the runner's configuration file.
//
// The file is unified with an embedded CUE schema that closes the set of
// fields and supplies defaults, then decoded into Config. Command-line
// flags override decoded values afterwards (see internal/cli).
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "ri.cue"

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the decoded configuration.
type Config struct {
	Database       Database `json:"database"`
	Plugins        Plugins  `json:"plugins"`
	Multisite      bool     `json:"multisite"`
	Tenant         string   `json:"tenant"`
	Tenants        []string `json:"tenants"`
	PersistRetries int      `json:"persist_retries"`
	Log            Log      `json:"log"`
}

// Database selects the key-value backend.
type Database struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// Plugins locates owners and lists the active ones.
type Plugins struct {
	Dir           string   `json:"dir"`
	Active        []string `json:"active"`
	NetworkActive []string `json:"network_active"`
}

// Log configures the structured log sinks.
type Log struct {
	Level   string `json:"level"`
	File    string `json:"file"`
	Journal bool   `json:"journal"`
}

// Error reports an invalid configuration file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %s", e.Path, cueerrors.Details(e.Err, nil))
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the configuration an empty file produces.
func Default() *Config {
	cfg, err := Parse("default.cue", nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema defaults are invalid: %v", err))
	}
	return cfg
}

// Load reads and parses the file at path.
//
// When optional is true a missing file yields Default(). Relative plugin
// and SQLite paths are resolved against the file's directory.
func Load(path string, optional bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) && optional {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse validates CUE source against the schema and decodes it.
func Parse(filename string, data []byte) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, &Error{Path: filename, Err: err}
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Path: filename, Err: err}
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return nil, &Error{Path: filename, Err: err}
	}
	return &cfg, nil
}

func (c *Config) resolve(base string) {
	if c.Plugins.Dir != "" && !filepath.IsAbs(c.Plugins.Dir) {
		c.Plugins.Dir = filepath.Join(base, c.Plugins.Dir)
	}
	if c.Database.Driver == DriverSQLite && c.Database.DSN != "" &&
		c.Database.DSN != ":memory:" && !filepath.IsAbs(c.Database.DSN) {
		c.Database.DSN = filepath.Join(base, c.Database.DSN)
	}
	if c.Log.File != "" && !filepath.IsAbs(c.Log.File) {
		c.Log.File = filepath.Join(base, c.Log.File)
	}
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Plugins.Dir == "" {
		return errors.New("plugins.dir is required")
	}
	if c.PersistRetries < 0 {
		return fmt.Errorf("persist_retries must be >= 0, got %d", c.PersistRetries)
	}
	return nil
}

// RequireTenant reports an error when a multisite run has no tenant.
func (c *Config) RequireTenant() error {
	if c.Multisite && c.Tenant == "" {
		return errors.New("multisite is enabled: set tenant in the config or pass --tenant")
	}
	return nil
}
