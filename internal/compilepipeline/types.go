package compilepipeline

import (
	"context"
	"time"

	"cexplorer/internal/api"
)

// State is where an orchestrator is in its edit/compile cycle.
type State uint8

const (
	// StateIdle means the shown result matches the last edit.
	StateIdle State = iota
	// StatePendingDebounce means an edit arrived and the debounce timer runs.
	StatePendingDebounce
	// StateRequesting means the latest request is in flight.
	StateRequesting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePendingDebounce:
		return "pending"
	case StateRequesting:
		return "requesting"
	default:
		return "unknown"
	}
}

// Status is what happened to a request.
type Status string

const (
	// StatusScheduled reports a (re)started debounce.
	StatusScheduled Status = "scheduled"
	// StatusIssued reports a request sent to the service.
	StatusIssued Status = "issued"
	// StatusApplied reports a current result shown in the view.
	StatusApplied Status = "applied"
	// StatusFailed reports a current request that failed; its synthetic
	// failure result was shown.
	StatusFailed Status = "failed"
	// StatusDiscarded reports a superseded result that was dropped.
	StatusDiscarded Status = "discarded"
)

// Event reports progress of one orchestrator.
type Event struct {
	Target  string
	Status  Status
	State   State
	Seq     uint64
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent runs on the loop.
type ProgressSink interface {
	OnEvent(Event)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) { f(evt) }

// ChannelSink forwards events into a channel. Events are dropped while the
// channel is full so a slow reader never stalls the loop.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	select {
	case s.Ch <- evt:
	default:
	}
}

// Compiler performs one compile request. *api.Client satisfies it.
type Compiler interface {
	Compile(ctx context.Context, req api.CompileRequest) (api.CompileResult, error)
}
