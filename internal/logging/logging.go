// Package logging builds the logr.Logger used across the advisor.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-logr/logr"
)

// Verbosity levels for logger.V(...).
const (
	// DEBUG carries per-course detail.
	DEBUG = 1
	// TRACE carries per-node solver detail.
	TRACE = 2
)

// Options selects the handler.
type Options struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a logr.Logger writing to w through a slog handler.
// Level is one of error, info, debug or trace; format is json or text.
func New(w io.Writer, opts Options) (logr.Logger, error) {
	level, err := slogLevel(opts.Level)
	if err != nil {
		return logr.Discard(), err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return logr.Discard(), fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	return logr.FromSlogHandler(handler), nil
}

// logr maps V(n) to slog level -n.
func slogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "error":
		return slog.LevelError, nil
	case "debug":
		return slog.Level(-DEBUG), nil
	case "trace":
		return slog.Level(-TRACE), nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", name)
	}
}
