// package shared defines shared helpers
package shared

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that writes to a size-rotated file at path.
//
// Used by the TUI so log output doesn't interfere with rendering.
func NewFileLogger(path string) (*log.Logger, error) {
	w, err := NewFileWriter(path)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true, Formatter: log.LogfmtFormatter}), nil
}

// NewFileWriter opens a size-rotated log file at path, creating its directory.
func NewFileWriter(path string) (io.WriteCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty log file path", ErrInvalidArgument)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    5, // megabytes
		MaxBackups: 3,
		MaxAge:     14,
	}, nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// SetLogLevelString parses level (debug, info, warn, error) and applies it.
// An empty level leaves the logger unchanged.
func SetLogLevelString(l *log.Logger, level string) error {
	if level == "" {
		return nil
	}
	ll, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("%w: log level %q", ErrInvalidConfig, level)
	}
	l.SetLevel(ll)
	return nil
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// FormatDuration renders milliseconds as m:ss, or "-" when unknown.
func FormatDuration(ms int) string {
	if ms <= 0 {
		return "-"
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// HomeDir returns the per-user tunemap directory (~/.tunemap).
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".tunemap"
	}
	return filepath.Join(home, ".tunemap")
}
