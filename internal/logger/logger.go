// internal/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls how the global logger is built.
type Options struct {
	Level      string
	File       string // optional path, rotated daily
	Production bool
}

// Init configures the global zerolog logger.
func Init(opts Options) error {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var console io.Writer = os.Stderr
	if !opts.Production {
		// Use ConsoleWriter for human-readable, colorized output in development
		console = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	out := console
	if opts.File != "" {
		rotating, err := newRotatingFile(opts.File)
		if err != nil {
			return err
		}
		out = zerolog.MultiLevelWriter(console, rotating)
	}

	// Add a hook to include the caller's file and line number
	log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	return nil
}

func newRotatingFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w, err := rotatelogs.New(
		path+".%Y%m%d",
		rotatelogs.WithLinkName(path),
		rotatelogs.WithRotationTime(24*time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open rotating log file: %w", err)
	}
	return w, nil
}
