package aspect

import (
	"context"
	"slices"

	"go.uber.org/zap"
)

// Option is one selectable candidate.
type Option struct {
	Key     string
	Display string
	Payload any
}

// FillFunc fetches candidates. It runs off the state thread.
type FillFunc func(ctx context.Context) ([]Option, error)

// Selection is a string aspect whose valid values are populated at runtime.
// The UI tier is the index of the current candidate, or -1 for none.
//
// A buffer that is not among the candidates is tolerated: once candidates are
// known the selection falls back to the first one, or to "" when there are
// none.
type Selection struct {
	Typed[string]
	candidates []Option
	current    int
	populated  bool

	fill       FillFunc
	refreshSeq uint64
	appliedSeq uint64
	lastErr    error

	candidatesChanged Signal
}

func NewSelection(c *Container, key string, fill FillFunc) *Selection {
	s := &Selection{current: -1, fill: fill}
	s.init(key, KindSelection, "", comparableCodec(asString))
	s.toGUI = func() { s.sync() }
	s.fromGUI = s.fromCurrent
	c.register(s)
	return s
}

// SetFillFunc replaces the fetch used by Refresh.
func (s *Selection) SetFillFunc(fill FillFunc) { s.fill = fill }

// Candidates returns a copy of the current candidate set.
func (s *Selection) Candidates() []Option { return slices.Clone(s.candidates) }

// Populated reports whether candidates have been set at least once.
func (s *Selection) Populated() bool { return s.populated }

// CurrentIndex is the UI-visible tier: the selected candidate, or -1.
func (s *Selection) CurrentIndex() int { return s.current }

// Current returns the selected candidate.
func (s *Selection) Current() (Option, bool) {
	if s.current < 0 || s.current >= len(s.candidates) {
		return Option{}, false
	}
	return s.candidates[s.current], true
}

// Refreshing reports whether a fetch is outstanding.
func (s *Selection) Refreshing() bool { return s.appliedSeq != s.refreshSeq }

// LastError returns the error of the last applied fetch, if it failed.
func (s *Selection) LastError() error { return s.lastErr }

// OnCandidatesChanged fires after every candidate replacement.
func (s *Selection) OnCandidatesChanged(fn func()) func() {
	return s.candidatesChanged.Connect(fn)
}

// SetCandidates replaces the candidate set wholesale and re-derives the
// selection: the buffer is kept when still offered, otherwise the first
// candidate is selected, or none.
func (s *Selection) SetCandidates(opts []Option) {
	s.candidates = slices.Clone(opts)
	s.populated = true
	changed := s.sync()
	s.candidatesChanged.Emit()
	if changed {
		s.volatileChanged.Emit()
		if s.autoApply() {
			s.Apply()
		}
	}
}

// Refresh fetches new candidates through the container's executor. Only the
// most recently issued refresh is applied; a failed fetch keeps the current
// candidates.
func (s *Selection) Refresh(ctx context.Context) {
	if s.fill == nil {
		return
	}
	s.refreshSeq++
	seq := s.refreshSeq
	fill := s.fill
	s.executor().Go(func() func() {
		opts, err := fill(ctx)
		return func() { s.finishRefresh(seq, opts, err) }
	})
}

func (s *Selection) finishRefresh(seq uint64, opts []Option, err error) {
	log := s.logger().With(zap.String("aspect", s.key), zap.Uint64("seq", seq))
	if seq != s.refreshSeq {
		log.Debug("discarding stale candidates", zap.Uint64("latest", s.refreshSeq))
		return
	}
	s.appliedSeq = seq
	s.lastErr = err
	if err != nil {
		log.Warn("candidate fetch failed", zap.Error(err))
		return
	}
	s.SetCandidates(opts)
}

// Select chooses the candidate at index as a user edit.
func (s *Selection) Select(index int) bool {
	if index < 0 || index >= len(s.candidates) {
		return false
	}
	s.Edit(s.candidates[index].Key)
	return true
}

// IndexOf returns the index of the candidate with key, or -1.
func (s *Selection) IndexOf(key string) int {
	return slices.IndexFunc(s.candidates, func(o Option) bool { return o.Key == key })
}

// DisplayOf returns the display text for key, falling back to the key.
func (s *Selection) DisplayOf(key string) string {
	if i := s.IndexOf(key); i >= 0 && s.candidates[i].Display != "" {
		return s.candidates[i].Display
	}
	return key
}

// sync pushes the buffer into the UI tier, falling back when the buffer is
// not offered. It reports whether the buffer changed.
func (s *Selection) sync() bool {
	if !s.populated {
		return false
	}
	if idx := s.IndexOf(s.buffer); idx >= 0 {
		s.current = idx
		return false
	}
	s.current = -1
	if len(s.candidates) > 0 {
		s.current = 0
	}
	return s.fromCurrent()
}

func (s *Selection) fromCurrent() bool {
	next := ""
	if o, ok := s.Current(); ok {
		next = o.Key
	}
	if next == s.buffer {
		return false
	}
	s.buffer = next
	return true
}
