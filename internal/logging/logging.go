// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Options selects the log level and handler.
type Options struct {
	// Level is "debug", "info", "warn" or "error".
	Level string

	// Format is "text", "json", or "auto" for text on a terminal and JSON
	// otherwise.
	Format string
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	handlerOptions := slog.HandlerOptions{Level: level}
	if level == slog.LevelDebug {
		handlerOptions.AddSource = true
	}

	var handler slog.Handler
	switch opts.Format {
	case "json":
		handler = slog.NewJSONHandler(w, &handlerOptions)
	case "text", "":
		handler = slog.NewTextHandler(w, &handlerOptions)
	case "auto":
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, &handlerOptions)
		} else {
			handler = slog.NewJSONHandler(w, &handlerOptions)
		}
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(handler), nil
}

// Setup installs a stderr logger as the slog default and returns it.
func Setup(opts Options) (*slog.Logger, error) {
	logger, err := New(os.Stderr, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	logger.Debug("debug logging enabled")
	return logger, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
