// Package compilepipeline turns edits into compile requests for one compiler.
//
// Every edit restarts a debounce timer. When it fires, the orchestrator
// snapshots the request, gives it the next sequence number and issues it.
// Only the result of the most recently issued request reaches the view;
// results of superseded requests are dropped on arrival.
package compilepipeline

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"cexplorer/internal/api"
	"cexplorer/internal/eventloop"
	"cexplorer/internal/render"
	"cexplorer/internal/trace"
)

// DefaultDebounce is the quiet period after the last edit.
const DefaultDebounce = 500 * time.Millisecond

// Options tune an orchestrator.
type Options struct {
	// Target names the compiler in events and logs.
	Target string
	// Debounce <= 0 means DefaultDebounce.
	Debounce time.Duration
	// CancelSuperseded cancels the context of a request as soon as a newer
	// one is issued.
	CancelSuperseded bool
	Sink             ProgressSink
	Logger           *zap.Logger
	// Ctx is the parent of every request context; nil means Background.
	Ctx context.Context
	// ParentSpan groups request spans under a compiler span.
	ParentSpan uint64
}

// Orchestrator schedules the compiles of one compiler. All methods must be
// called on the loop.
type Orchestrator struct {
	loop     *eventloop.Loop
	client   Compiler
	snapshot func() api.CompileRequest
	view     *render.View
	opts     Options
	log      *zap.Logger

	state    State
	issued   uint64
	timer    eventloop.TimerID
	inflight map[uint64]context.CancelFunc
	closed   bool
}

// New returns an idle orchestrator. snapshot is called on the loop at issue
// time and must return an independent copy of the request state.
func New(loop *eventloop.Loop, client Compiler, snapshot func() api.CompileRequest, view *render.View, opts Options) *Orchestrator {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if view == nil {
		view = render.NewView(log)
	}
	return &Orchestrator{
		loop:     loop,
		client:   client,
		snapshot: snapshot,
		view:     view,
		opts:     opts,
		log:      log.With(zap.String("compiler", opts.Target)),
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Issued returns the sequence number of the latest issued request.
func (o *Orchestrator) Issued() uint64 { return o.issued }

// View returns the view results are applied to.
func (o *Orchestrator) View() *render.View { return o.view }

// InFlight reports how many requests have not completed yet.
func (o *Orchestrator) InFlight() int { return len(o.inflight) }

// Touch records an edit and restarts the debounce timer.
func (o *Orchestrator) Touch() {
	if o.closed {
		return
	}
	o.loop.Cancel(o.timer)
	o.timer = o.loop.AfterFunc(o.opts.Debounce, o.fire)
	o.state = StatePendingDebounce
	o.emit(Event{Status: StatusScheduled, Seq: o.issued})
}

// CompileNow skips the debounce and issues a request immediately.
func (o *Orchestrator) CompileNow() {
	if o.closed {
		return
	}
	o.loop.Cancel(o.timer)
	o.fire()
}

func (o *Orchestrator) fire() {
	o.timer = 0
	if o.closed {
		return
	}
	req := o.snapshot().Clone()
	o.issued++
	seq := o.issued
	o.state = StateRequesting

	if o.opts.CancelSuperseded {
		for old, cancel := range o.inflight {
			cancel()
			delete(o.inflight, old)
		}
	}
	ctx, cancel := context.WithCancel(o.opts.Ctx)
	o.inflight[seq] = cancel

	span := trace.Begin(trace.FromContext(o.opts.Ctx), trace.ScopeRequest, "compile", o.opts.ParentSpan).
		WithExtra("seq", strconv.FormatUint(seq, 10)).
		WithExtra("compiler", req.Compiler())
	o.log.Debug("issuing compile request", zap.Uint64("seq", seq), zap.String("compilerId", req.Compiler()))
	o.emit(Event{Status: StatusIssued, Seq: seq})

	client := o.client
	started := o.loop.Now()
	o.loop.Go(func() func() {
		res, err := client.Compile(ctx, req)
		return func() { o.complete(seq, res, err, o.loop.Now().Sub(started), span) }
	})
}

func (o *Orchestrator) complete(seq uint64, res api.CompileResult, err error, elapsed time.Duration, span *trace.Span) {
	if cancel, ok := o.inflight[seq]; ok {
		cancel()
		delete(o.inflight, seq)
	}
	if o.closed {
		span.End("closed")
		return
	}
	if seq != o.issued {
		span.End("discarded")
		o.log.Debug("discarding superseded result", zap.Uint64("seq", seq), zap.Uint64("latest", o.issued))
		o.emit(Event{Status: StatusDiscarded, Seq: seq, Err: err, Elapsed: elapsed})
		return
	}

	status := StatusApplied
	if err != nil {
		status = StatusFailed
		o.log.Warn("compile request failed", zap.Uint64("seq", seq), zap.Error(err))
		res = api.FailedResult(err)
	}
	// render failures are logged by the view, which keeps its last model
	_ = o.view.Apply(res)
	if o.state == StateRequesting {
		o.state = StateIdle
	}
	span.End(string(status))
	o.emit(Event{Status: status, Seq: seq, Err: err, Elapsed: elapsed})
}

// Close stops the timer and cancels every in-flight request. Results that
// still arrive are ignored.
func (o *Orchestrator) Close() {
	if o.closed {
		return
	}
	o.closed = true
	o.loop.Cancel(o.timer)
	o.timer = 0
	for seq, cancel := range o.inflight {
		cancel()
		delete(o.inflight, seq)
	}
	o.state = StateIdle
}

func (o *Orchestrator) emit(evt Event) {
	if o.opts.Sink == nil {
		return
	}
	evt.Target = o.opts.Target
	evt.State = o.state
	o.opts.Sink.OnEvent(evt)
}
