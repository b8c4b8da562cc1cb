// Package logs builds the process logger: a text handler on stderr fanned
// out with an optional JSON file sink and an optional systemd journal sink.
package logs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

// Options selects the sinks.
type Options struct {
	// Level is "debug", "info", "warn" or "error". Empty means info.
	Level string

	// Stderr receives the text handler. Nil means os.Stderr.
	Stderr io.Writer

	// File, when set, receives JSON records (appended).
	File string

	// Journal enables the systemd journal sink.
	Journal bool
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var l slog.Level
	if name == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, err)
	}
	return l, nil
}

// New builds the logger. The returned close func releases the log file.
//
// An unavailable journal socket is not an error: a warning is written to
// the text sink and the journal is skipped.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	closer := func() error { return nil }
	text := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	handlers := []slog.Handler{text}

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = f.Close
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	if opts.Journal {
		journal, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return journalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = journalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err)
			_ = text.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journal)
		}
	}

	if len(handlers) == 1 {
		return slog.New(text), closer, nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

// journalKey converts an attribute key to a journal field name:
// upper case, with anything outside [A-Z0-9] replaced by '_'.
func journalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}
