// Package session runs one live-compile document: it owns the settings
// document and its undo history, and keeps one compile orchestrator per
// compiler in step with the document's sources and compilers.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"cexplorer/internal/api"
	"cexplorer/internal/aspect"
	"cexplorer/internal/compilepipeline"
	"cexplorer/internal/config"
	"cexplorer/internal/document"
	"cexplorer/internal/eventloop"
	"cexplorer/internal/render"
	"cexplorer/internal/settings"
	"cexplorer/internal/trace"
	"cexplorer/internal/undo"
)

// Options configure a session.
type Options struct {
	Loop   *eventloop.Loop
	Client compilepipeline.Compiler
	Fill   settings.Fillers
	// Config supplies the debounce, the superseded-request policy and the
	// default document. May be nil.
	Config *config.Plugin
	Logger *zap.Logger
	// Ctx bounds every fetch and request; its tracer records the session.
	Ctx  context.Context
	Sink compilepipeline.ProgressSink
}

// Compiled is a compiler with the orchestrator that compiles it.
type Compiled struct {
	// Target is a short stable name used in events and logs.
	Target       string
	Source       *settings.Source
	Compiler     *settings.Compiler
	Orchestrator *compilepipeline.Orchestrator

	off  func()
	span *trace.Span
}

// View returns the compiler's result view.
func (c *Compiled) View() *render.View { return c.Orchestrator.View() }

type sourceHooks struct {
	off []func()
}

// Session is not safe for concurrent use; call it on the loop.
type Session struct {
	opts Options
	log  *zap.Logger
	undo *undo.Stack

	doc       *settings.Document
	docOff    []func()
	sources   map[*settings.Source]*sourceHooks
	compilers map[*settings.Compiler]*Compiled
	path      string
	span      *trace.Span

	changed []func()
}

// New returns a session holding an empty document.
func New(opts Options) *Session {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.Loop == nil {
		opts.Loop = eventloop.New(nil)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		opts:      opts,
		log:       log,
		undo:      undo.New(),
		sources:   make(map[*settings.Source]*sourceHooks),
		compilers: make(map[*settings.Compiler]*Compiled),
		span:      trace.Begin(trace.FromContext(opts.Ctx), trace.ScopeSession, "session", 0),
	}
	s.doc = s.newDocument()
	s.attach(s.doc)
	return s
}

// Document returns the current document.
func (s *Session) Document() *settings.Document { return s.doc }

// UndoStack returns the session's undo history.
func (s *Session) UndoStack() *undo.Stack { return s.undo }

// Path returns the file the document was loaded from or last saved to.
func (s *Session) Path() string { return s.path }

// Loop returns the loop the session runs on.
func (s *Session) Loop() *eventloop.Loop { return s.opts.Loop }

// OnStructureChanged registers fn to run after sources or compilers were
// added or removed, or a new document was loaded.
func (s *Session) OnStructureChanged(fn func()) {
	if fn != nil {
		s.changed = append(s.changed, fn)
	}
}

// Empty reports whether the document has no sources.
func (s *Session) Empty() bool { return s.doc.Sources.Size() == 0 }

// IsModified reports whether the document differs from what was loaded or
// saved.
func (s *Session) IsModified() bool { return s.doc.IsDirty() || !s.undo.IsClean() }

// Compiled returns the orchestration of c, or nil if c is not part of the
// document.
func (s *Session) Compiled(c *settings.Compiler) *Compiled { return s.compilers[c] }

// CompiledFor returns the compilers of src in list order.
func (s *Session) CompiledFor(src *settings.Source) []*Compiled {
	var out []*Compiled
	src.Compilers.ForEachItem(func(c *settings.Compiler, _ int) {
		if cc := s.compilers[c]; cc != nil {
			out = append(out, cc)
		}
	})
	return out
}

// All returns every compiler of every source in document order.
func (s *Session) All() []*Compiled {
	var out []*Compiled
	s.doc.Sources.ForEachItem(func(src *settings.Source, _ int) {
		out = append(out, s.CompiledFor(src)...)
	})
	return out
}

// AddSource appends a source with default settings and fetches its
// language candidates.
func (s *Session) AddSource() *settings.Source {
	src := s.doc.NewSource()
	s.doc.Sources.AddItem(src)
	src.Refresh()
	return src
}

// RemoveSource removes src and its compilers as one undo step.
func (s *Session) RemoveSource(src *settings.Source) bool {
	if s.doc.Sources.IndexOf(src) < 0 {
		return false
	}
	s.undo.BeginMacro("Remove source")
	src.Compilers.Clear()
	s.doc.Sources.RemoveItem(src)
	s.undo.EndMacro()
	return true
}

// AddCompiler appends a compiler for src's language. Its first compile is
// scheduled right away.
func (s *Session) AddCompiler(src *settings.Source) *settings.Compiler {
	c := src.NewCompiler()
	src.Compilers.AddItem(c)
	return c
}

// RemoveCompiler removes c from src.
func (s *Session) RemoveCompiler(src *settings.Source, c *settings.Compiler) bool {
	return src.Compilers.RemoveItem(c)
}

func (s *Session) Undo() bool { return s.undo.Undo() }

func (s *Session) Redo() bool { return s.undo.Redo() }

// LoadFile replaces the document with the one stored at path.
func (s *Session) LoadFile(path string) error {
	store, err := document.ReadFile(path)
	if err != nil {
		return err
	}
	if err := s.Load(store); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	s.path = path
	return nil
}

// Load replaces the document with one read from store. The new document is
// built first, so a store that fails to load leaves the session untouched.
func (s *Session) Load(store aspect.Store) error {
	fresh := s.newDocument()
	if err := fresh.FromMap(store); err != nil {
		return err
	}
	s.detach()
	s.doc = fresh
	s.undo.Clear()
	s.attach(fresh)
	fresh.Refresh()
	s.log.Info("document loaded", zap.Int("sources", fresh.Sources.Size()))
	s.notify()
	return nil
}

// LoadDefault loads the configured default document, falling back to the
// built-in one when none is configured or it no longer loads.
func (s *Session) LoadDefault() error {
	if cfg := s.opts.Config; cfg != nil && cfg.DefaultDocument.Value() != "" {
		store, err := document.Decode(document.FormatJSON, []byte(cfg.DefaultDocument.Value()))
		if err == nil {
			err = s.Load(store)
		}
		if err == nil {
			return nil
		}
		s.log.Warn("ignoring stored default document", zap.Error(err))
	}
	return s.Load(BuiltinDocument())
}

// Save applies every pending edit and writes the document to path; an empty
// path reuses the current one.
func (s *Session) Save(path string) error {
	if path == "" {
		path = s.path
	}
	if path == "" {
		return fmt.Errorf("save: no file name")
	}
	s.doc.Apply()
	if err := document.WriteFile(path, s.doc.Map()); err != nil {
		return err
	}
	s.path = path
	s.undo.SetClean()
	return nil
}

// AutoSave writes the live edit state to path without applying it.
func (s *Session) AutoSave(path string) error {
	return document.WriteFile(path, s.doc.VolatileMap())
}

// Close shuts every orchestrator down. A modified document is applied and
// kept in the config as the next default document.
func (s *Session) Close() error {
	var err error
	if s.doc.IsDirty() && s.opts.Config != nil {
		s.doc.Apply()
		var data []byte
		data, err = json.MarshalIndent(s.doc.Map(), "", "    ")
		if err == nil {
			s.opts.Config.DefaultDocument.SetValue(string(data))
		}
	}
	s.detach()
	s.span.End("")
	return err
}

func (s *Session) newDocument() *settings.Document {
	d := settings.NewDocument(&settings.Env{Fill: s.opts.Fill, Ctx: s.opts.Ctx})
	d.SetAutoApply(false)
	d.SetUndoStack(s.undo)
	d.SetExecutor(s.opts.Loop)
	d.SetLogger(s.log)
	return d
}

func (s *Session) attach(d *settings.Document) {
	d.Sources.ForEachItem(func(src *settings.Source, _ int) { s.attachSource(src) })
	s.docOff = []func(){
		d.Sources.OnItemAdded(func(src *settings.Source) {
			s.attachSource(src)
			s.notify()
		}),
		d.Sources.OnItemRemoved(func(src *settings.Source) {
			s.detachSource(src)
			s.notify()
		}),
	}
}

func (s *Session) detach() {
	for _, off := range s.docOff {
		off()
	}
	s.docOff = nil
	s.doc.Sources.ForEachItem(func(src *settings.Source, _ int) { s.detachSource(src) })
}

func (s *Session) attachSource(src *settings.Source) {
	if _, ok := s.sources[src]; ok {
		return
	}
	src.Compilers.ForEachItem(func(c *settings.Compiler, _ int) { s.attachCompiler(src, c) })
	touch := func() {
		for _, cc := range s.CompiledFor(src) {
			cc.Orchestrator.Touch()
		}
	}
	s.sources[src] = &sourceHooks{off: []func(){
		src.Compilers.OnItemAdded(func(c *settings.Compiler) {
			s.attachCompiler(src, c)
			s.notify()
		}),
		src.Compilers.OnItemRemoved(func(c *settings.Compiler) {
			s.detachCompiler(c)
			s.notify()
		}),
		src.Text.OnVolatileChanged(touch),
		src.Language.OnVolatileChanged(touch),
	}}
}

func (s *Session) detachSource(src *settings.Source) {
	h, ok := s.sources[src]
	if !ok {
		return
	}
	for _, off := range h.off {
		off()
	}
	delete(s.sources, src)
	src.Compilers.ForEachItem(func(c *settings.Compiler, _ int) { s.detachCompiler(c) })
}

func (s *Session) attachCompiler(src *settings.Source, c *settings.Compiler) {
	if _, ok := s.compilers[c]; ok {
		return
	}
	target := c.UID.String()[:8]
	span := trace.Begin(trace.FromContext(s.opts.Ctx), trace.ScopeCompiler, "compiler", s.span.ID()).
		WithExtra("target", target)
	opts := compilepipeline.Options{
		Target:     target,
		Sink:       s.opts.Sink,
		Logger:     s.log,
		Ctx:        s.opts.Ctx,
		ParentSpan: span.ID(),
	}
	if cfg := s.opts.Config; cfg != nil {
		opts.Debounce = cfg.Debounce()
		opts.CancelSuperseded = cfg.CancelSuperseded.Value()
	}
	orch := compilepipeline.New(s.opts.Loop, s.opts.Client, func() api.CompileRequest { return c.Request(src) }, nil, opts)
	cc := &Compiled{Target: target, Source: src, Compiler: c, Orchestrator: orch, span: span}
	cc.off = c.OnVolatileChanged(orch.Touch)
	s.compilers[c] = cc
	orch.Touch()
}

func (s *Session) detachCompiler(c *settings.Compiler) {
	cc, ok := s.compilers[c]
	if !ok {
		return
	}
	cc.off()
	cc.Orchestrator.Close()
	cc.span.End("")
	delete(s.compilers, c)
}

func (s *Session) notify() {
	for _, fn := range slices.Clone(s.changed) {
		fn()
	}
}

// ByTarget returns the compiler orchestrated under target, or nil.
func (s *Session) ByTarget(target string) *Compiled {
	for _, cc := range s.compilers {
		if cc.Target == target {
			return cc
		}
	}
	return nil
}
