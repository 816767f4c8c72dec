// Package obslog is the structured logging setup shared by every
// component: a zerolog logger with console and optional rotating-file
// output, plus module-tagged convenience helpers.
package obslog

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger instance, configured by Init.
var Logger zerolog.Logger

func init() {
	Logger = newConsoleLogger(zerolog.InfoLevel)
}

// Config controls console/file output and rotation, mirroring the
// teacher's log configuration shape.
type Config struct {
	Level      zerolog.Level
	Console    bool
	File       bool
	FilePath   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// DefaultConfig returns console-only logging at info level.
func DefaultConfig() Config {
	return Config{Level: zerolog.InfoLevel, Console: true, MaxSizeMB: 10, MaxAgeDays: 7, MaxBackups: 5, Compress: true}
}

// Init wires Logger according to cfg, attaching a rotating, gzip-compressed
// file writer when cfg.File is set. Rotation/retention is delegated to
// lumberjack rather than hand-rolled, so this package only adapts cfg into
// its knobs.
func Init(cfg Config) error {
	var writers []io.Writer

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	Logger = zerolog.New(multi).Level(cfg.Level).With().Timestamp().Caller().Logger()
	return nil
}

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}

// Module-tagged convenience helpers, matching the teacher's LogInfo/
// LogWarn/LogError/LogDebug(module) pattern.

func LogDebug(module string) *zerolog.Event { return Logger.Debug().Str("module", module) }
func LogInfo(module string) *zerolog.Event  { return Logger.Info().Str("module", module) }
func LogWarn(module string) *zerolog.Event  { return Logger.Warn().Str("module", module) }
func LogError(module string) *zerolog.Event { return Logger.Error().Str("module", module) }
