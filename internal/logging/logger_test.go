// Package logging provides unit tests for the structured logger.
package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

// newTestLogger builds a logger writing into a buffer.
func newTestLogger(minLevel LogLevel) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Logger{out: buf, minLevel: minLevel}, buf
}

// TestStructuredOutput tests that entries are JSON with the expected
// fields.
func TestStructuredOutput(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	l.Info("engine started", map[string]interface{}{"data_dir": "/tmp/x"})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry.Level != "INFO" {
		t.Errorf("Expected level INFO, got %s", entry.Level)
	}
	if entry.Message != "engine started" {
		t.Errorf("Expected message, got %q", entry.Message)
	}
	if entry.Context["data_dir"] != "/tmp/x" {
		t.Errorf("Expected context field, got %v", entry.Context)
	}
	if entry.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
}

// TestMinLevelFilters tests level filtering.
func TestMinLevelFilters(t *testing.T) {
	l, buf := newTestLogger(LevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown", errors.New("boom"))

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if lines != 2 {
		t.Errorf("Expected 2 log lines, got %d: %s", lines, buf.String())
	}
}

// TestErrorField tests that the error string is carried.
func TestErrorField(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	l.Error("write failed", errors.New("disk full"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry.Error != "disk full" {
		t.Errorf("Expected error field, got %q", entry.Error)
	}
}

// TestWithComponent tests component tagging on child loggers.
func TestWithComponent(t *testing.T) {
	l, buf := newTestLogger(LevelDebug)

	l.WithComponent("queue").Info("drained")

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry.Component != "queue" {
		t.Errorf("Expected component queue, got %q", entry.Component)
	}
}

// TestMergeContext tests merging multiple context maps.
func TestMergeContext(t *testing.T) {
	merged := mergeContext(
		map[string]interface{}{"a": 1},
		map[string]interface{}{"b": 2},
	)
	if merged["a"] != 1 || merged["b"] != 2 {
		t.Errorf("Expected merged maps, got %v", merged)
	}
	if mergeContext() != nil {
		t.Error("Expected nil for no context")
	}
}
