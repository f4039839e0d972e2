package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cexplorer/internal/compilepipeline"
	"cexplorer/internal/render"
	"cexplorer/internal/session"
)

// CompilerUpdate is a snapshot of one compiler, taken on the loop.
type CompilerUpdate struct {
	Target   string
	Title    string
	Status   compilepipeline.Status
	State    compilepipeline.State
	Seq      uint64
	Err      error
	Elapsed  time.Duration
	Model    render.Model
	HasModel bool
}

// SourceUpdate carries the edited source after undo, redo or a load.
type SourceUpdate struct {
	Text     string
	Language string
}

// StatusUpdate is a one-line message for the status bar.
type StatusUpdate struct {
	Text string
	Err  error
}

// Feed carries session state from the loop to the UI goroutine. It is the
// session's progress sink.
//
// Messages coalesce: each compiler target, the source and the status line
// keep only their newest update, so a slow reader sees the latest state of
// everything and the loop never blocks.
type Feed struct {
	sess *session.Session

	mu      sync.Mutex
	order   []string
	pending map[string]tea.Msg
	closed  bool
	wake    chan struct{}
}

func NewFeed() *Feed {
	return &Feed{pending: make(map[string]tea.Msg), wake: make(chan struct{}, 1)}
}

// Bind sets the session compiler snapshots are read from.
func (f *Feed) Bind(s *session.Session) { f.sess = s }

// OnEvent runs on the loop.
func (f *Feed) OnEvent(e compilepipeline.Event) {
	if f.sess == nil {
		return
	}
	cc := f.sess.ByTarget(e.Target)
	if cc == nil {
		return
	}
	m, ok := cc.View().Model()
	f.Send(CompilerUpdate{
		Target:   e.Target,
		Title:    cc.Compiler.Title(),
		Status:   e.Status,
		State:    e.State,
		Seq:      e.Seq,
		Err:      e.Err,
		Elapsed:  e.Elapsed,
		Model:    m,
		HasModel: ok,
	})
}

// Send queues msg for the UI, replacing an unread message of the same kind.
// It never blocks.
func (f *Feed) Send(msg tea.Msg) {
	key := feedKey(msg)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if _, ok := f.pending[key]; !ok {
		f.order = append(f.order, key)
	}
	f.pending[key] = msg
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// TryNext returns the oldest unread message without waiting.
func (f *Feed) TryNext() (tea.Msg, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.popLocked()
}

// Next waits for a message. It reports false once the feed is closed and
// drained, or when ctx is done.
func (f *Feed) Next(ctx context.Context) (tea.Msg, bool) {
	for {
		f.mu.Lock()
		msg, ok := f.popLocked()
		closed := f.closed
		f.mu.Unlock()
		if ok {
			return msg, true
		}
		if closed {
			return nil, false
		}
		select {
		case <-f.wake:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close ends the stream; readers get what is queued, then false.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *Feed) popLocked() (tea.Msg, bool) {
	if len(f.order) == 0 {
		return nil, false
	}
	key := f.order[0]
	f.order = f.order[1:]
	msg := f.pending[key]
	delete(f.pending, key)
	return msg, true
}

func feedKey(msg tea.Msg) string {
	switch m := msg.(type) {
	case CompilerUpdate:
		return "compiler:" + m.Target
	case SourceUpdate:
		return "source"
	case StatusUpdate:
		return "status"
	default:
		return fmt.Sprintf("%T", msg)
	}
}
