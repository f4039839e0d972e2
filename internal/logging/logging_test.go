package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Info("hidden")
	log.Warn("candidate fetch failed", zap.String("aspect", "Id"))
	_ = log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "candidate fetch failed" || entry["aspect"] != "Id" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestOffLevelAndErrors(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "off", Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Error("nothing")
	if buf.Len() != 0 {
		t.Fatalf("off logger wrote output")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
	if Or(nil) == nil {
		t.Fatalf("Or must never return nil")
	}
}
