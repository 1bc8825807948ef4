package shared

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestFormatDuration(t *testing.T) {
	tc := []struct {
		name string
		ms   int
		want string
	}{
		{name: "unknown", ms: 0, want: "-"},
		{name: "under a minute", ms: 42_000, want: "0:42"},
		{name: "padded seconds", ms: 185_000, want: "3:05"},
		{name: "truncates millis", ms: 225_999, want: "3:45"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.ms); got != tt.want {
				t.Errorf("FormatDuration(%d) = %v, want %v", tt.ms, got, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	t.Run("SetLogLevelString", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf)

		if err := SetLogLevelString(logger, "warn"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") {
			t.Error("info message should be filtered at warn level")
		}
		if !strings.Contains(buf.String(), "shown") {
			t.Error("warn message should be written")
		}

		if err := SetLogLevelString(logger, "loud"); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
		if logger.GetLevel() != log.WarnLevel {
			t.Error("invalid level should leave logger unchanged")
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "tui.log")
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		logger.Info("written to file")

		if _, err := NewFileLogger(""); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for empty path, got %v", err)
		}
	})
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected unique ids")
	}
	if len(a) != 36 {
		t.Errorf("expected uuid string length 36, got %d", len(a))
	}
}
