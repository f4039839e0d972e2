// Package trace records spans and instant events of a live session.
//
// A tracer is chosen at startup and travels through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeRequest, "compile", parent)
//	defer span.End("")
//
// Stream tracers write each event as it happens, ring tracers keep the last
// events in memory for a dump on exit, and both can be combined. Verbosity is
// set by Level: phase shows session events, detail adds per-compiler events,
// debug adds individual requests and candidate fetches.
package trace
