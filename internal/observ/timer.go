// Package observ times the steps of a one-shot compile.
package observ

import (
	"fmt"
	"io"
	"time"
)

// Step names one stage of a one-shot compile.
type Step string

const (
	StepRead     Step = "read"
	StepDetect   Step = "detect-language"
	StepSnapshot Step = "snapshot"
	StepRequest  Step = "request"
	StepRender   Step = "render"
)

// StepTiming is one finished step.
type StepTiming struct {
	Step    Step          `json:"step"`
	Elapsed time.Duration `json:"elapsed_ns"`
	Detail  string        `json:"detail,omitempty"`
}

// Timings records steps in the order they finish.
type Timings struct {
	steps []StepTiming
	now   func() time.Time
}

func New() *Timings { return &Timings{now: time.Now} }

// Start begins step. The returned stop records it with detail; only the
// first call counts.
func (t *Timings) Start(step Step) func(detail string) {
	began := t.now()
	done := false
	return func(detail string) {
		if done {
			return
		}
		done = true
		t.steps = append(t.steps, StepTiming{Step: step, Elapsed: t.now().Sub(began), Detail: detail})
	}
}

// Steps returns the finished steps.
func (t *Timings) Steps() []StepTiming { return append([]StepTiming(nil), t.steps...) }

// Total sums every finished step.
func (t *Timings) Total() time.Duration {
	var total time.Duration
	for _, s := range t.steps {
		total += s.Elapsed
	}
	return total
}

// WriteTable writes one line per step with its share of the total.
func (t *Timings) WriteTable(w io.Writer) error {
	total := t.Total()
	if _, err := fmt.Fprintln(w, "timings:"); err != nil {
		return err
	}
	for _, s := range t.steps {
		share := 0.0
		if total > 0 {
			share = 100 * float64(s.Elapsed) / float64(total)
		}
		line := fmt.Sprintf("  %-16s %9.2f ms %5.1f%%", s.Step, millis(s.Elapsed), share)
		if s.Detail != "" {
			line += "  " + s.Detail
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-16s %9.2f ms\n", "total", millis(total))
	return err
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
