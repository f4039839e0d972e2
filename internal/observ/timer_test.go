package observ

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestTimingsRecordSteps(t *testing.T) {
	clock := time.Unix(0, 0)
	tm := New()
	tm.now = func() time.Time { return clock }

	stop := tm.Start(StepDetect)
	clock = clock.Add(2 * time.Millisecond)
	stop("c++")
	stop("ignored")
	stop = tm.Start(StepRequest)
	clock = clock.Add(6 * time.Millisecond)
	stop("clang_trunk")

	steps := tm.Steps()
	if len(steps) != 2 || steps[0].Step != StepDetect || steps[0].Detail != "c++" {
		t.Fatalf("unexpected steps %+v", steps)
	}
	if steps[1].Elapsed != 6*time.Millisecond || tm.Total() != 8*time.Millisecond {
		t.Fatalf("unexpected durations %+v total %v", steps, tm.Total())
	}

	var buf bytes.Buffer
	if err := tm.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"detect-language", "25.0%", "75.0%", "clang_trunk", "total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestEmptyTimingsTable(t *testing.T) {
	var buf bytes.Buffer
	tm := New()
	if err := tm.WriteTable(&buf); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	if tm.Total() != 0 || !strings.Contains(buf.String(), "total") {
		t.Fatalf("unexpected empty table %q", buf.String())
	}
}
