// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	slogmulti "github.com/samber/slog-multi"
)

// Options configures New
type Options struct {
	// Level: "debug", "info", "warn", "error" (defaults to info if invalid)
	Level string
	// Format: "json", "text" or "auto" (text on a terminal, JSON otherwise)
	Format string
	// File, when set, receives a JSON copy of every record
	File string
	// Writer overrides stdout. Used by tests.
	Writer io.Writer
}

// ParseLevel maps a level name to a slog.Level
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a structured logger. The returned closer releases the log
// file, if any, and is never nil.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}

	var console slog.Handler
	if useJSON(opts.Format, w) {
		console = slog.NewJSONHandler(w, handlerOpts)
	} else {
		console = slog.NewTextHandler(w, handlerOpts)
	}

	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	f, err := openFile(opts.File)
	if err != nil {
		return nil, nil, err
	}

	handler := slogmulti.Fanout(
		console,
		slog.NewJSONHandler(f, handlerOpts),
	)
	return slog.New(handler), f, nil
}

// NewFileLogger returns a JSON logger appending to path. An empty path
// yields a logger that discards everything.
func NewFileLogger(path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return slog.New(slog.NewJSONHandler(io.Discard, nil)), nopCloser{}, nil
	}
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(slog.NewJSONHandler(f, nil)), f, nil
}

func useJSON(format string, w io.Writer) bool {
	switch strings.ToLower(format) {
	case "json":
		return true
	case "text":
		return false
	}
	if f, ok := w.(*os.File); ok {
		return !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	return true
}

func openFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
