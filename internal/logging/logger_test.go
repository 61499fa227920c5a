package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":  slog.LevelDebug,
		" WARN ": slog.LevelWarn,
		"error":  slog.LevelError,
		"":       slog.LevelInfo,
		"bogus":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONOutputWithRun(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	WithRun(logger, "bulk").Info("frame written", "frame", 3)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("non-terminal output should be json: %v", err)
	}
	if rec["stage"] != "bulk" || rec["frame"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
	if id, _ := rec["run_id"].(string); len(id) != 36 {
		t.Errorf("run_id = %v", rec["run_id"])
	}
}

func TestConsoleAndFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "xrdspot.log")
	logger, err := New(Options{Format: "console", File: path, Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	logger.Warn("dataset exists", "path", "entry/pattern")
	if !strings.Contains(buf.String(), "path=entry/pattern") {
		t.Errorf("console output = %q", buf.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dataset exists") {
		t.Errorf("log file = %q", data)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml", Output: &bytes.Buffer{}}); err == nil {
		t.Error("expected error")
	}
}
