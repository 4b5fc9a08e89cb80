package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/funnyzak/reqwatch/internal/config"
)

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "debug"}, config.OutputJSON, &buf)

	log.With("session", "abc").Warn("dropped event",
		"event", "new",
		"count", 3,
		"error", errors.New("boom"),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["level"] != "warn" || entry["message"] != "dropped event" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if entry["session"] != "abc" || entry["event"] != "new" || entry["error"] != "boom" {
		t.Fatalf("missing fields in %v", entry)
	}
	if entry["count"] != float64(3) {
		t.Fatalf("expected numeric count, got %v", entry["count"])
	}
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "warn"}, config.OutputJSON, &buf)

	log.Info("hidden")
	log.Error("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestTUILoggerKeepsConsoleQuiet(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "debug"}, config.OutputTUI, &buf)

	log.Error("should not reach the screen")
	if buf.Len() != 0 {
		t.Fatalf("expected no console output in tui mode, got %q", buf.String())
	}
}

func TestPlainLoggerUsesConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&config.LogConfig{Level: "info"}, config.OutputPlain, &buf)

	log.Info("connected", "transport", "sse")
	out := buf.String()
	if !strings.Contains(out, "connected") || strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Fatalf("expected console formatted line, got %q", out)
	}
}
