// Package log provides structured, colored logging for the ledger.
package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jrick/logrotate/rotator"
	"github.com/rs/zerolog"
)

// Log file rotation: roll at 10 MB, keep 3 old files.
const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Component loggers for different parts of the system.
var (
	Handler zerolog.Logger
	Storage zerolog.Logger
	CLI     zerolog.Logger
)

func init() {
	Logger = NewConsoleLogger(os.Stderr, "info")
	initComponentLoggers()
}

// fileSink is the rotating log file opened by Init, if any. console is
// the writer Close falls back to.
var (
	fileSink io.Closer
	console  io.Writer = consoleWriter(os.Stderr)
)

// Init initializes the logger with the given configuration.
// When file is non-empty, logs are written to both the console (colored or
// JSON depending on jsonOutput) and a size-rotated file (always JSON for
// machine parsing).
func Init(level string, jsonOutput bool, file string) error {
	lvl := parseLevel(level)

	if err := Close(); err != nil {
		return err
	}

	console = io.Writer(os.Stderr)
	if !jsonOutput {
		console = consoleWriter(os.Stderr)
	}

	out := console
	if file != "" {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
		r, err := rotator.New(file, rotateThresholdKB, false, rotateMaxRolls)
		if err != nil {
			return err
		}
		fileSink = r
		// The rotator tracks its size unsynchronised.
		out = zerolog.MultiLevelWriter(console, zerolog.SyncWriter(r))
	}

	Logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()

	initComponentLoggers()
	return nil
}

// Close closes the log file opened by Init. Logging continues on the
// console until the next Init.
func Close() error {
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	Logger = zerolog.New(console).Level(Logger.GetLevel()).With().Timestamp().Logger()
	initComponentLoggers()
	return err
}

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}
}

// NewConsoleLogger creates a colored console logger.
func NewConsoleLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(consoleWriter(w)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// NewJSONLogger creates a structured JSON logger.
func NewJSONLogger(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// parseLevel converts a string level to zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ValidLevel reports whether level is one Init understands.
func ValidLevel(level string) bool {
	switch level {
	case "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

// initComponentLoggers initializes loggers for each component.
func initComponentLoggers() {
	Handler = WithComponent("handler")
	Storage = WithComponent("storage")
	CLI = WithComponent("cli")
}

// WithComponent returns a logger with a component field.
func WithComponent(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// Benchmark helper for timing operations.
func Benchmark(name string) func() {
	start := time.Now()
	return func() {
		Logger.Debug().
			Str("operation", name).
			Dur("duration", time.Since(start)).
			Msg("benchmark")
	}
}
