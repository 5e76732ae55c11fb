package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a slog level.
type Level = slog.Level

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format selects the handler: key=value text for a terminal, JSON for
// journald or a log collector.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// clockLayout is the text-format timestamp. A bigbashview process lives as
// long as its window, so the date adds nothing.
const clockLayout = "15:04:05.000"

// Config describes the process logger.
type Config struct {
	Level  Level
	Format Format

	// Output receives log records. Nil means stderr: stdout is reserved for
	// the start URL and the --json start record that launchers parse.
	Output io.Writer

	AddSource bool

	// PID tags every record with the process id, which tells apart the logs
	// of several windows started from the same launcher.
	PID bool
}

// DefaultConfig is info-level text on stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatText, Output: os.Stderr}
}

// FromFlags builds a Config from the --log-level and --log-format values.
func FromFlags(level, format string, w io.Writer) Config {
	return Config{
		Level:  ParseLevel(level),
		Format: ParseFormat(format),
		Output: w,
		PID:    true,
	}
}

// New builds the logger described by cfg.
func New(cfg Config) *slog.Logger {
	w := cfg.Output
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var h slog.Handler
	if cfg.Format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		opts.ReplaceAttr = shortTime
		h = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(h)
	if cfg.PID {
		logger = logger.With("pid", os.Getpid())
	}
	return logger
}

func shortTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		return slog.String(slog.TimeKey, a.Value.Time().Format(clockLayout))
	}
	return a
}

// Nop discards everything. Packages fall back to it when no logger is passed.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Component tags logger with the subsystem name (server, executor, dispatch).
// A nil logger yields Nop.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = Nop()
	}
	return logger.With("component", name)
}

// ParseLevel maps a --log-level value. Unknown values mean info, so a typo
// in the config file never silences errors.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps a --log-format value; anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}
