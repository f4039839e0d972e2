// Package eventloop provides the single logical thread on which all session
// state is mutated.
//
// Work reaches the loop in three ways: Post queues a task, AfterFunc schedules
// one against the loop's clock, and Go runs blocking work on a goroutine and
// posts the continuation it returns. Tasks never interleave: each runs to
// completion before the next starts.
//
// A loop driven by RealClock is normally served by Run. Tests drive a loop
// built on a VirtualClock by hand with RunPending, Advance and Next.
package eventloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Run and Next once the loop has been closed.
var ErrClosed = errors.New("eventloop: closed")

// Loop is a task queue plus a timer heap.
type Loop struct {
	mu        sync.Mutex
	clock     Clock
	queue     []func()
	timers    timerHeap
	timerByID map[TimerID]*timer
	nextTimer TimerID
	closed    bool

	wake     chan struct{}
	inflight atomic.Int64
}

// New creates a loop on the given clock. A nil clock means RealClock.
func New(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock{}
	}
	return &Loop{
		clock:     clock,
		timerByID: make(map[TimerID]*timer),
		wake:      make(chan struct{}, 1),
	}
}

// Clock returns the loop's clock.
func (l *Loop) Clock() Clock { return l.clock }

// Now returns the loop's current time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// Post queues fn to run on the loop. Safe from any goroutine.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Go runs work on a new goroutine and posts the continuation it returns.
// A nil continuation posts nothing.
func (l *Loop) Go(work func() func()) {
	if work == nil {
		return
	}
	l.inflight.Add(1)
	go func() {
		defer l.inflight.Add(-1)
		if cont := work(); cont != nil {
			l.Post(cont)
		}
	}()
}

// InFlight reports how many Go work functions have not yet returned.
func (l *Loop) InFlight() int {
	return int(l.inflight.Load())
}

// RunPending runs every queued task and every timer that is due, including
// ones those tasks schedule, and returns how many ran. It never blocks.
func (l *Loop) RunPending() int {
	ran := 0
	for {
		fn := l.nextReady()
		if fn == nil {
			return ran
		}
		fn()
		ran++
	}
}

func (l *Loop) nextReady() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	if len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		return fn
	}
	if t := l.popDueLocked(l.clock.Now()); t != nil {
		return t.fn
	}
	return nil
}

// Advance moves a settable clock forward by d, firing timers in deadline
// order with the clock set to each timer's deadline. It reports false when the
// loop's clock cannot be moved.
func (l *Loop) Advance(d time.Duration) bool {
	clock, ok := l.clock.(SettableClock)
	if !ok {
		return false
	}
	target := clock.Now().Add(d)
	l.RunPending()
	for {
		l.mu.Lock()
		deadline, has := l.nextDeadlineLocked()
		l.mu.Unlock()
		if !has || deadline.After(target) {
			break
		}
		clock.Set(deadline)
		l.RunPending()
	}
	clock.Set(target)
	l.RunPending()
	return true
}

// Next blocks until at least one task has run, then returns. Timers on a
// virtual clock do not wake Next; use Advance for those.
func (l *Loop) Next(ctx context.Context) error {
	for {
		if l.isClosed() {
			return ErrClosed
		}
		if l.RunPending() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Run serves the loop until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if l.isClosed() {
			return ErrClosed
		}
		l.RunPending()

		l.mu.Lock()
		deadline, has := l.nextDeadlineLocked()
		l.mu.Unlock()

		var timerC <-chan time.Time
		var t *time.Timer
		if has {
			wait := deadline.Sub(l.clock.Now())
			if wait < 0 {
				wait = 0
			}
			t = time.NewTimer(wait)
			timerC = t.C
		}
		select {
		case <-ctx.Done():
			if t != nil {
				t.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timerC:
		}
		if t != nil {
			t.Stop()
		}
	}
}

// Close drops queued tasks and timers. Posts after Close are ignored.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.queue = nil
	l.timers = nil
	l.timerByID = make(map[TimerID]*timer)
	l.mu.Unlock()
	l.signal()
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
