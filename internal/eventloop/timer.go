package eventloop

import (
	"container/heap"
	"time"
)

// TimerID identifies a scheduled timer. Zero is never a valid id.
type TimerID uint64

type timer struct {
	id        TimerID
	deadline  time.Time
	fn        func()
	cancelled bool
}

type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].id < h[j].id
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	t, ok := x.(*timer)
	if !ok || t == nil {
		return
	}
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*timer)(nil)
	}
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// AfterFunc schedules fn to run on the loop once d has elapsed on the loop's
// clock. It is safe to call from any goroutine.
func (l *Loop) AfterFunc(d time.Duration, fn func()) TimerID {
	if fn == nil {
		return 0
	}
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.nextTimer++
	id := l.nextTimer
	t := &timer{id: id, deadline: l.clock.Now().Add(d), fn: fn}
	l.timerByID[id] = t
	heap.Push(&l.timers, t)
	l.mu.Unlock()
	l.signal()
	return id
}

// Cancel stops a pending timer. Cancelling a fired or unknown timer is a no-op.
func (l *Loop) Cancel(id TimerID) {
	if id == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.timerByID[id]
	if t == nil {
		return
	}
	t.cancelled = true
	delete(l.timerByID, id)
}

// TimerActive reports whether a timer is still waiting to fire.
func (l *Loop) TimerActive(id TimerID) bool {
	if id == 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.timerByID[id]
	return t != nil && !t.cancelled
}

// popDueLocked removes and returns the earliest live timer whose deadline is
// not after now.
func (l *Loop) popDueLocked(now time.Time) *timer {
	for len(l.timers) > 0 {
		next := l.timers[0]
		if next.cancelled {
			heap.Pop(&l.timers)
			continue
		}
		if next.deadline.After(now) {
			return nil
		}
		heap.Pop(&l.timers)
		delete(l.timerByID, next.id)
		return next
	}
	return nil
}

// nextDeadlineLocked returns the earliest live deadline.
func (l *Loop) nextDeadlineLocked() (time.Time, bool) {
	for len(l.timers) > 0 {
		next := l.timers[0]
		if next.cancelled {
			heap.Pop(&l.timers)
			continue
		}
		return next.deadline, true
	}
	return time.Time{}, false
}
