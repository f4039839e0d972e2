package aspect

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// NoneVersion is the version choice that deselects a library.
const NoneVersion = "--"

// NoLibraries is the display text of an empty selection.
const NoLibraries = "No libraries selected"

// VersionOption is one version of a library candidate.
type VersionOption struct {
	ID      string
	Version string
}

// LibraryOption is one library candidate with its versions.
type LibraryOption struct {
	ID       string
	Name     string
	Versions []VersionOption
}

// LibraryFillFunc fetches library candidates. It runs off the state thread.
type LibraryFillFunc func(ctx context.Context) ([]LibraryOption, error)

// LibrarySelection maps library ids to selected version ids. A library absent
// from the map is not selected.
type LibrarySelection struct {
	Typed[map[string]string]
	candidates []LibraryOption
	populated  bool

	fill       LibraryFillFunc
	refreshSeq uint64
	appliedSeq uint64
	lastErr    error

	candidatesChanged Signal
	displayChanged    Signal
	display           string
}

func NewLibrarySelection(c *Container, key string, fill LibraryFillFunc) *LibrarySelection {
	s := &LibrarySelection{fill: fill}
	s.init(key, KindLibrarySelection, map[string]string{}, codec[map[string]string]{
		equal: func(a, b map[string]string) bool { return maps.Equal(a, b) },
		clone: func(m map[string]string) map[string]string {
			out := make(map[string]string, len(m))
			maps.Copy(out, m)
			return out
		},
		encode: func(m map[string]string) any {
			out := make(Store, len(m))
			for k, v := range m {
				out[k] = v
			}
			return out
		},
		decode: decodeVersionMap,
	})
	s.toGUI = func() { s.sync() }
	s.fromGUI = func() bool { return false }
	s.display = NoLibraries
	s.OnVolatileChanged(s.updateDisplay)
	c.register(s)
	return s
}

func decodeVersionMap(raw any) (map[string]string, error) {
	st, err := AsStore(raw)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(st))
	for k, v := range st {
		ver, err := asString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = ver
	}
	return out, nil
}

func (s *LibrarySelection) SetFillFunc(fill LibraryFillFunc) { s.fill = fill }

func (s *LibrarySelection) Candidates() []LibraryOption { return slices.Clone(s.candidates) }

func (s *LibrarySelection) Populated() bool { return s.populated }

func (s *LibrarySelection) Refreshing() bool { return s.appliedSeq != s.refreshSeq }

// LastError returns the error of the last applied fetch, if it failed.
func (s *LibrarySelection) LastError() error { return s.lastErr }

// SelectedVersion returns the version id chosen for lib in the buffer.
func (s *LibrarySelection) SelectedVersion(lib string) (string, bool) {
	v, ok := s.buffer[lib]
	return v, ok
}

// SelectVersion chooses version for lib as a user edit. NoneVersion or ""
// removes the library.
func (s *LibrarySelection) SelectVersion(lib, version string) {
	next := s.codec.clone(s.buffer)
	if version == NoneVersion || version == "" {
		delete(next, lib)
	} else {
		next[lib] = version
	}
	s.Edit(next)
}

// ClearAll deselects every library as a single user edit.
func (s *LibrarySelection) ClearAll() {
	s.Edit(map[string]string{})
}

// Display lists the selection in candidate order as "name version" pairs.
func (s *LibrarySelection) Display() string { return s.display }

// OnDisplayChanged fires whenever Display changes.
func (s *LibrarySelection) OnDisplayChanged(fn func()) func() {
	return s.displayChanged.Connect(fn)
}

func (s *LibrarySelection) OnCandidatesChanged(fn func()) func() {
	return s.candidatesChanged.Connect(fn)
}

// SetCandidates replaces the candidates wholesale. Selected libraries that are
// no longer offered are dropped.
func (s *LibrarySelection) SetCandidates(opts []LibraryOption) {
	s.candidates = slices.Clone(opts)
	s.populated = true
	changed := s.sync()
	s.candidatesChanged.Emit()
	if changed {
		s.volatileChanged.Emit()
		if s.autoApply() {
			s.Apply()
		}
	} else {
		s.updateDisplay()
	}
}

// Refresh fetches candidates through the container's executor; only the most
// recently issued refresh is applied.
func (s *LibrarySelection) Refresh(ctx context.Context) {
	if s.fill == nil {
		return
	}
	s.refreshSeq++
	seq := s.refreshSeq
	fill := s.fill
	s.executor().Go(func() func() {
		opts, err := fill(ctx)
		return func() {
			log := s.logger().With(zap.String("aspect", s.key), zap.Uint64("seq", seq))
			if seq != s.refreshSeq {
				log.Debug("discarding stale libraries", zap.Uint64("latest", s.refreshSeq))
				return
			}
			s.appliedSeq = seq
			s.lastErr = err
			if err != nil {
				log.Warn("library fetch failed", zap.Error(err))
				return
			}
			s.SetCandidates(opts)
		}
	})
}

func (s *LibrarySelection) sync() bool {
	if !s.populated {
		return false
	}
	changed := false
	for lib := range s.buffer {
		if !slices.ContainsFunc(s.candidates, func(o LibraryOption) bool { return o.ID == lib }) {
			delete(s.buffer, lib)
			changed = true
		}
	}
	return changed
}

func (s *LibrarySelection) updateDisplay() {
	next := s.render()
	if next == s.display {
		return
	}
	s.display = next
	s.displayChanged.Emit()
}

func (s *LibrarySelection) render() string {
	if len(s.buffer) == 0 {
		return NoLibraries
	}
	var parts []string
	seen := make(map[string]bool, len(s.buffer))
	for _, lib := range s.candidates {
		ver, ok := s.buffer[lib.ID]
		if !ok {
			continue
		}
		seen[lib.ID] = true
		parts = append(parts, libraryLabel(lib.Name, lib.ID)+" "+versionLabel(lib.Versions, ver))
	}
	// not yet populated: fall back to id order
	rest := slices.Sorted(maps.Keys(s.buffer))
	for _, id := range rest {
		if !seen[id] {
			parts = append(parts, id+" "+s.buffer[id])
		}
	}
	return strings.Join(parts, ", ")
}

func libraryLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func versionLabel(versions []VersionOption, id string) string {
	for _, v := range versions {
		if v.ID == id && v.Version != "" {
			return v.Version
		}
	}
	return id
}
