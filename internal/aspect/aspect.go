// Package aspect implements reactive settings state.
//
// An aspect holds one settings field in three tiers: the stored value (last
// committed), the volatile buffer (the live edit) and an optional bound view
// (what the user sees). Aspects belong to exactly one Container, which gives
// them their undo stack, executor and logger, and serializes them into a
// Store keyed by each aspect's settings key.
//
// Nothing in this package is safe for concurrent use. All mutation happens on
// the session's state thread; asynchronous candidate fetches run through the
// container's Executor and land back on that thread.
package aspect

import (
	"go.uber.org/zap"

	"cexplorer/internal/undo"
)

// Kind tags the closed set of aspect variants.
type Kind uint8

const (
	KindString Kind = iota
	KindBool
	KindInt
	KindStore
	KindSelection
	KindLibrarySelection
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindStore:
		return "store"
	case KindSelection:
		return "selection"
	case KindLibrarySelection:
		return "library-selection"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Aspect is the capability set every variant implements.
type Aspect interface {
	SettingsKey() string
	DisplayName() string
	Kind() Kind
	IsDirty() bool
	// Apply commits the volatile buffer and reports whether the stored value changed.
	Apply() bool
	// Revert drops uncommitted edits and reports whether the buffer changed.
	Revert() bool
	BufferToGUI()
	GUIToBuffer() bool
	ToMap(Store)
	VolatileToMap(Store)
	FromMap(Store) error
	OnChanged(func()) func()
	OnVolatileChanged(func()) func()

	aspectBase() *base
}

// Executor runs work off the state thread and posts the returned
// continuation back onto it. eventloop.Loop satisfies it.
type Executor interface {
	Go(work func() func())
}

type inlineExecutor struct{}

func (inlineExecutor) Go(work func() func()) {
	if cont := work(); cont != nil {
		cont()
	}
}

// View is the UI-visible tier of a typed aspect.
type View[T any] interface {
	Show(T)
	Read() T
}

type base struct {
	container   *Container
	key         string
	displayName string
	enabler     *Bool
	id          int
}

func (b *base) aspectBase() *base { return b }

func (b *base) SettingsKey() string { return b.key }

func (b *base) DisplayName() string {
	if b.displayName != "" {
		return b.displayName
	}
	return b.key
}

func (b *base) SetDisplayName(name string) { b.displayName = name }

// SetEnabler gates Enabled on the stored value of another bool aspect.
func (b *base) SetEnabler(e *Bool) { b.enabler = e }

// Enabled reports whether the enabler, if any, is on.
func (b *base) Enabled() bool {
	return b.enabler == nil || b.enabler.Value()
}

func (b *base) logger() *zap.Logger {
	if b.container == nil {
		return zap.NewNop()
	}
	return b.container.Logger()
}

func (b *base) autoApply() bool {
	return b.container != nil && b.container.AutoApply()
}

func (b *base) undoStack() *undo.Stack {
	if b.container == nil {
		return nil
	}
	return b.container.undo
}

func (b *base) executor() Executor {
	if b.container == nil || b.container.exec == nil {
		return inlineExecutor{}
	}
	return b.container.exec
}
