package eventloop

import (
	"context"
	"testing"
	"time"
)

func newVirtualLoop() (*Loop, *VirtualClock) {
	clock := NewVirtualClock(time.Unix(1_700_000_000, 0))
	return New(clock), clock
}

func TestPostRunsInOrder(t *testing.T) {
	loop, _ := newVirtualLoop()
	var got []int
	for i := 1; i <= 3; i++ {
		loop.Post(func() { got = append(got, i) })
	}
	if n := loop.RunPending(); n != 3 {
		t.Fatalf("expected 3 tasks, ran %d", n)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected order: %v", got)
	}
}

func TestAdvanceFiresTimersInDeadlineOrder(t *testing.T) {
	loop, clock := newVirtualLoop()
	start := clock.Now()
	var fired []string
	var firedAt []time.Duration
	record := func(name string) func() {
		return func() {
			fired = append(fired, name)
			firedAt = append(firedAt, clock.Now().Sub(start))
		}
	}
	loop.AfterFunc(300*time.Millisecond, record("b"))
	loop.AfterFunc(100*time.Millisecond, record("a"))
	loop.AfterFunc(900*time.Millisecond, record("late"))

	if !loop.Advance(500 * time.Millisecond) {
		t.Fatalf("virtual clock should be settable")
	}
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("unexpected timers fired: %v", fired)
	}
	if firedAt[0] != 100*time.Millisecond || firedAt[1] != 300*time.Millisecond {
		t.Fatalf("timers observed wrong clock: %v", firedAt)
	}
	if got := clock.Now().Sub(start); got != 500*time.Millisecond {
		t.Fatalf("clock should end at target, got %v", got)
	}
}

func TestCancelledTimerNeverFires(t *testing.T) {
	loop, _ := newVirtualLoop()
	fired := false
	id := loop.AfterFunc(50*time.Millisecond, func() { fired = true })
	if !loop.TimerActive(id) {
		t.Fatalf("timer should be active")
	}
	loop.Cancel(id)
	if loop.TimerActive(id) {
		t.Fatalf("timer should be inactive after cancel")
	}
	loop.Advance(time.Second)
	if fired {
		t.Fatalf("cancelled timer fired")
	}
}

func TestTimerScheduledByTimerFiresWithinAdvance(t *testing.T) {
	loop, _ := newVirtualLoop()
	count := 0
	loop.AfterFunc(10*time.Millisecond, func() {
		count++
		loop.AfterFunc(10*time.Millisecond, func() { count++ })
	})
	loop.Advance(25 * time.Millisecond)
	if count != 2 {
		t.Fatalf("expected chained timers to fire, count=%d", count)
	}
}

func TestGoPostsContinuation(t *testing.T) {
	loop, _ := newVirtualLoop()
	release := make(chan struct{})
	result := 0
	loop.Go(func() func() {
		<-release
		return func() { result = 42 }
	})
	if result != 0 {
		t.Fatalf("continuation ran before work finished")
	}
	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if result != 42 {
		t.Fatalf("continuation did not run on loop")
	}
}

func TestRunServesRealTimers(t *testing.T) {
	loop := New(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan struct{})
	loop.AfterFunc(5*time.Millisecond, func() { close(done) })
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("timer never fired")
	}
	loop.Close()
	if err := <-errCh; err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestClosedLoopIgnoresPosts(t *testing.T) {
	loop, _ := newVirtualLoop()
	loop.Close()
	ran := false
	loop.Post(func() { ran = true })
	if loop.RunPending() != 0 || ran {
		t.Fatalf("closed loop ran a task")
	}
}
