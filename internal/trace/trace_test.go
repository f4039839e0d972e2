package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeSession, false},
		{LevelPhase, ScopeSession, true},
		{LevelPhase, ScopeCompiler, false},
		{LevelDetail, ScopeCompiler, true},
		{LevelDetail, ScopeRequest, false},
		{LevelDebug, ScopeRequest, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Fatalf("%v/%v: got %v want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelDebug, Mode: ModeStream, Format: FormatNDJSON, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	root := Begin(tr, ScopeCompiler, "compiler", 0)
	req := Begin(tr, ScopeRequest, "compile", root.ID())
	req.WithExtra("seq", "1").End("applied")
	root.End("")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 events, got %d", len(lines))
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[2]), &ev); err != nil {
		t.Fatalf("bad json: %v", err)
	}
	if ev["kind"] != "end" || ev["detail"] != "applied" || ev["extra"].(map[string]any)["seq"] != "1" {
		t.Fatalf("unexpected end event %v", ev)
	}
}

func TestRingTracerKeepsNewest(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeRequest, name, "", 0)
	}
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatText); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !strings.Contains(buf.String(), "[request]") {
		t.Fatalf("unexpected dump %q", buf.String())
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer should be Nop")
	}
	r := NewRingTracer(4, LevelPhase)
	ctx := WithTracer(context.Background(), r)
	if FromContext(ctx) != Tracer(r) {
		t.Fatalf("tracer not propagated")
	}
	span := Begin(FromContext(ctx), ScopeRequest, "filtered", 0)
	if span.End("") != 0 || len(r.Snapshot()) != 0 {
		t.Fatalf("filtered span should be inert")
	}
}

func TestParsers(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected level error")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("mode: %v %v", m, err)
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("format: %v %v", f, err)
	}
}
