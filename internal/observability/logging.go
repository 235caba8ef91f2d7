package observability

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogConfig selects where and how the CLI logs.
type LogConfig struct {
	// Verbose lowers the level to debug.
	Verbose bool

	// File, when set, receives a copy of every record in addition to Writer.
	File string

	// Text switches from the JSON handler to the text handler.
	Text bool

	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// NewLogger builds the process logger. The returned close function releases
// the log file, if any, and is always safe to call.
func NewLogger(cfg LogConfig) (*slog.Logger, func() error, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	closeFn := func() error { return nil }
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closeFn, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(w, f)
		closeFn = f.Close
	}

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Text {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h), closeFn, nil
}
