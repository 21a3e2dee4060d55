// Package logging builds the zerolog logger used across snooze.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configure New.
type Options struct {
	Level  string    // zerolog level name; empty means info
	Path   string    // log file; ignored when Writer is set
	Writer io.Writer // optional explicit destination
}

// New returns a JSON logger plus a close function for the underlying file.
// With neither Path nor Writer set, logs are discarded.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), noop, err
	}

	w, closer := opts.Writer, noop
	if w == nil {
		if strings.TrimSpace(opts.Path) == "" {
			return zerolog.Nop(), noop, nil
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("create log dir: %w", err)
		}
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), noop, fmt.Errorf("open log: %w", err)
		}
		w, closer = file, file.Close
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Str("component", "snooze").Logger()
	return logger, closer, nil
}

// ParseLevel maps a level name onto a zerolog level, defaulting to info.
func ParseLevel(name string) (zerolog.Level, error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(trimmed)
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func noop() error { return nil }
