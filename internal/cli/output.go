package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/ri/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A release instruction failed
	ExitCommandError = 2 // Command error (bad config, unreachable store, load error, etc.)
)

// Error codes used in JSON error responses.
const (
	ErrCodeConfig    = "E001" // bad config, flags or tenant
	ErrCodeStore     = "E002" // database open, read or write
	ErrCodeDiscovery = "E003" // manifest, load or conflict
	ErrCodeExecution = "E004" // a release instruction failed
	ErrCodeUsage     = "E005" // bad command-line argument
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	ErrCode string // JSON error code (ErrCode*)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error was written as a JSON envelope.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// commandError wraps err as an exit-2 error with a JSON error code.
// err may be nil.
func commandError(errCode, message string, err error) *ExitError {
	return &ExitError{Code: ExitCommandError, ErrCode: errCode, Message: message, Err: err}
}

// executionError wraps a release instruction failure (exit 1).
func executionError(err error) *ExitError {
	return &ExitError{Code: ExitFailure, ErrCode: ErrCodeExecution, Message: "release instruction failed", Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written to the operator as a
// JSON error envelope.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// reportError writes err as a CLIResponse error envelope when the output
// format is json, and returns it as an *ExitError.
func reportError(cmd *cobra.Command, opts *RootOptions, err error) error {
	if err == nil || opts.Format != "json" {
		return err
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = commandError(ErrCodeStore, "command failed", err)
	}
	code := exitErr.ErrCode
	if code == "" {
		code = ErrCodeStore
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if werr := f.Error(code, exitErr.Error()); werr != nil {
		slog.Debug("error envelope not written", "error", werr)
		return exitErr
	}
	exitErr.Reported = true
	return exitErr
}

// OutputFormatter handles JSON vs text output for structured results
// (history, lifecycle).
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	}
	_, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	return err
}

// Console renders engine output lines for an operator.
//
// Text format prefixes by severity:
//
//	success           Success: msg
//	notice, warning   Warning: msg
//	error             Error: msg
//	status, info, x   [status]: msg
//	plain             msg
//
// JSON format writes one {"severity":...,"message":...} object per line.
type Console struct {
	Format string
	Writer io.Writer

	// Logger receives write failures. Nil means slog.Default().
	Logger *slog.Logger
}

// Emit implements engine.Output. Write failures are logged at debug level;
// the run is not interrupted by a closed terminal.
func (c *Console) Emit(sev engine.Severity, msg string) {
	var err error
	if c.Format == "json" {
		err = json.NewEncoder(c.Writer).Encode(engine.Line{Severity: sev, Message: msg})
	} else {
		_, err = fmt.Fprintln(c.Writer, renderText(sev, msg))
	}
	if err != nil {
		logger := c.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Debug("operator output not written", "severity", string(sev), "error", err)
	}
}

func renderText(sev engine.Severity, msg string) string {
	switch sev {
	case engine.SeverityPlain:
		return msg
	case engine.SeveritySuccess:
		return "Success: " + msg
	case engine.SeverityNotice, engine.SeverityWarning:
		return "Warning: " + msg
	case engine.SeverityError:
		return "Error: " + msg
	default:
		return "[" + string(sev) + "]: " + msg
	}
}
