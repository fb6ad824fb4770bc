package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Resonate-Protocol/pcmstream/internal/config"
)

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New(config.LoggingConfig{Level: "info", Console: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer closer.Close()

	logger.Debug().Msg("hidden")
	logger.Info().Str("seg", "3").Msg("Segment started")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "Segment started") || !strings.Contains(out, "seg=") {
		t.Errorf("expected console line with fields, got %q", out)
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "player.log")

	logger, closer, err := New(config.LoggingConfig{Level: "debug", File: path}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Debug().Int("buffered_ms", 500).Msg("Playback started")
	if err := closer.Close(); err != nil {
		t.Fatalf("failed to close log file: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log file should hold JSON lines: %v", err)
	}
	if entry["message"] != "Playback started" {
		t.Errorf("unexpected message %v", entry["message"])
	}
	if entry["level"] != "debug" {
		t.Errorf("unexpected level %v", entry["level"])
	}
	if entry["buffered_ms"] != float64(500) {
		t.Errorf("unexpected buffered_ms %v", entry["buffered_ms"])
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, _, err := New(config.LoggingConfig{Level: "loud", Console: true}, nil); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNewDiscard(t *testing.T) {
	logger, closer, err := New(config.LoggingConfig{Level: "info"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closer == nil {
		t.Fatal("closer should never be nil on success")
	}
	logger.Info().Msg("dropped")
}
