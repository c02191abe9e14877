// Package logging sets up slog for the command line tools: text on the
// console and rotated JSON in a log file.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// multiHandler dispatches log records to multiple handlers based on level.
type multiHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.file.Enabled(ctx, r.Level) {
		if err := h.file.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	if h.console.Enabled(ctx, r.Level) {
		if err := h.console.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &multiHandler{
		console: h.console.WithAttrs(attrs),
		file:    h.file.WithAttrs(attrs),
	}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	return &multiHandler{
		console: h.console.WithGroup(name),
		file:    h.file.WithGroup(name),
	}
}

type Config struct {
	// Log file path. Empty disables the file handler.
	File string
	// Minimum console level.
	Console slog.Level
}

// Init installs the default logger and returns a cleanup function that
// closes the log file.
func Init(cfg Config) (*slog.Logger, func(), error) {
	consoleHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Console})
	if cfg.File == "" {
		l := slog.New(consoleHandler)
		slog.SetDefault(l)
		return l, func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, err
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    10, // MB
		MaxBackups: 3,
		LocalTime:  true,
	}
	fileHandler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	})

	l := slog.New(&multiHandler{console: consoleHandler, file: fileHandler})
	slog.SetDefault(l)

	cleanup := func() {
		if err := lj.Close(); err != nil {
			slog.Error("Failed to close log file", "error", err)
		}
	}
	return l, cleanup, nil
}
