package aspect

import (
	"context"
	"errors"
	"testing"
)

type manualExec struct {
	pending []func() func()
}

func (m *manualExec) Go(work func() func()) { m.pending = append(m.pending, work) }

func (m *manualExec) finish(i int) {
	if cont := m.pending[i](); cont != nil {
		cont()
	}
}

func opts(keys ...string) []Option {
	out := make([]Option, len(keys))
	for i, k := range keys {
		out[i] = Option{Key: k, Display: k}
	}
	return out
}

func TestSelectionRederivesOnEveryCandidateChange(t *testing.T) {
	tests := []struct {
		name string
		next []string
		want string
	}{
		{name: "prior value gone", next: []string{"D", "E"}, want: "D"},
		{name: "prior value kept", next: []string{"X", "B", "Y"}, want: "B"},
		{name: "empty candidates", next: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Container{}
			s := NewSelection(c, "Id", nil)
			s.SetCandidates(opts("A", "B", "C"))
			s.Edit("B")
			s.SetCandidates(opts(tt.next...))
			if got := s.VolatileValue(); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			wantIndex := s.IndexOf(tt.want)
			if s.CurrentIndex() != wantIndex {
				t.Fatalf("ui tier at %d, want %d", s.CurrentIndex(), wantIndex)
			}
		})
	}
}

func TestSelectionToleratesStaleValueBeforePopulation(t *testing.T) {
	c := &Container{}
	s := NewSelection(c, "Id", nil)
	if err := c.FromMap(Store{"Id": "g132"}); err != nil {
		t.Fatalf("from map: %v", err)
	}
	if s.VolatileValue() != "g132" || s.CurrentIndex() != -1 {
		t.Fatalf("unpopulated selection must keep its buffer")
	}
	notified := 0
	s.OnVolatileChanged(func() { notified++ })
	s.SetCandidates(opts("clang_trunk", "g132"))
	if s.VolatileValue() != "g132" || s.CurrentIndex() != 1 || notified != 0 {
		t.Fatalf("value should survive population: %q idx=%d", s.VolatileValue(), s.CurrentIndex())
	}
	s.SetVolatileValue("gone")
	if s.VolatileValue() != "clang_trunk" {
		t.Fatalf("stale value should fall back to first candidate, got %q", s.VolatileValue())
	}
}

func TestSelectionRefreshLastIssuedWins(t *testing.T) {
	exec := &manualExec{}
	c := &Container{}
	c.SetExecutor(exec)
	results := [][]Option{opts("A1", "A2"), opts("B1", "B2")}
	call := 0
	s := NewSelection(c, "LanguageId", func(context.Context) ([]Option, error) {
		r := results[call]
		call++
		return r, nil
	})
	s.Refresh(context.Background())
	s.Refresh(context.Background())
	if !s.Refreshing() {
		t.Fatalf("refresh should be outstanding")
	}
	// A runs first but completes after B has been issued; only B may apply.
	exec.finish(0)
	if s.Populated() {
		t.Fatalf("stale fetch was applied")
	}
	exec.finish(1)
	if got := s.Candidates(); len(got) != 2 || got[0].Key != "B1" {
		t.Fatalf("expected B candidates, got %v", got)
	}
	if s.VolatileValue() != "B1" || s.Refreshing() {
		t.Fatalf("unexpected state after refresh: %q", s.VolatileValue())
	}
}

func TestSelectionRefreshLateFirstCompletionDiscarded(t *testing.T) {
	exec := &manualExec{}
	c := &Container{}
	c.SetExecutor(exec)
	results := map[int][]Option{0: opts("A"), 1: opts("B")}
	call := 0
	s := NewSelection(c, "Id", func(context.Context) ([]Option, error) {
		r := results[call]
		call++
		return r, nil
	})
	s.Refresh(context.Background())
	s.Refresh(context.Background())
	// run the fetches in issue order, then apply B's continuation before A's
	contA := exec.pending[0]()
	contB := exec.pending[1]()
	contB()
	contA()
	if s.VolatileValue() != "B" {
		t.Fatalf("late stale completion overwrote newer result: %q", s.VolatileValue())
	}
}

func TestSelectionFetchFailureKeepsCandidates(t *testing.T) {
	c := &Container{}
	fail := false
	s := NewSelection(c, "Id", func(context.Context) ([]Option, error) {
		if fail {
			return nil, errors.New("service unavailable")
		}
		return opts("A", "B"), nil
	})
	s.Refresh(context.Background())
	s.Select(1)
	fail = true
	s.Refresh(context.Background())
	if len(s.Candidates()) != 2 || s.VolatileValue() != "B" {
		t.Fatalf("failure must keep prior candidates")
	}
	if s.LastError() == nil {
		t.Fatalf("failure should be recorded")
	}
}

func TestSelectionFilter(t *testing.T) {
	c := &Container{}
	s := NewSelection(c, "Id", nil)
	s.SetCandidates([]Option{
		{Key: "g132", Display: "x86-64 GCC 13.2"},
		{Key: "clang_trunk", Display: "x86-64 Clang (trunk)"},
		{Key: "cafe", Display: "Café compiler"},
	})
	if got := s.Filter("gcc"); len(got) != 1 || got[0].Key != "g132" {
		t.Fatalf("case-insensitive filter failed: %v", got)
	}
	if got := s.Filter("CAFÉ"); len(got) != 1 || got[0].Key != "cafe" {
		t.Fatalf("normalised filter failed: %v", got)
	}
	if got := s.Filter(""); len(got) != 3 {
		t.Fatalf("empty filter should return all")
	}
}
