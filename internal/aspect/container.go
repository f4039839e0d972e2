package aspect

import (
	"errors"

	"go.uber.org/zap"

	"cexplorer/internal/undo"
)

// Container is an ordered set of owned aspects forming one settings unit.
// The zero value is usable; domain types embed it and register their aspects
// through the New* constructors.
type Container struct {
	aspects   []Aspect
	undo      *undo.Stack
	autoApply bool
	exec      Executor
	log       *zap.Logger

	changed         Signal
	volatileChanged Signal
}

func (c *Container) register(a Aspect) {
	if c == nil {
		return
	}
	a.aspectBase().container = c
	c.aspects = append(c.aspects, a)
	a.OnChanged(c.changed.Emit)
	a.OnVolatileChanged(c.volatileChanged.Emit)
}

// Aspects returns the owned aspects in registration order.
func (c *Container) Aspects() []Aspect {
	return append([]Aspect(nil), c.aspects...)
}

// Aspect looks up an owned aspect by settings key.
func (c *Container) Aspect(key string) Aspect {
	for _, a := range c.aspects {
		if a.SettingsKey() == key {
			return a
		}
	}
	return nil
}

func (c *Container) IsDirty() bool {
	for _, a := range c.aspects {
		if a.IsDirty() {
			return true
		}
	}
	return false
}

// Apply commits every aspect and reports whether any stored value changed.
func (c *Container) Apply() bool {
	changed := false
	for _, a := range c.aspects {
		if a.Apply() {
			changed = true
		}
	}
	return changed
}

// Revert discards every uncommitted edit.
func (c *Container) Revert() {
	for _, a := range c.aspects {
		a.Revert()
	}
}

func (c *Container) ToMap(s Store) {
	for _, a := range c.aspects {
		a.ToMap(s)
	}
}

func (c *Container) VolatileToMap(s Store) {
	for _, a := range c.aspects {
		a.VolatileToMap(s)
	}
}

// FromMap loads every aspect present in s. Unknown keys are ignored and
// missing ones leave their aspect untouched. Errors from all aspects are
// joined.
func (c *Container) FromMap(s Store) error {
	var errs []error
	for _, a := range c.aspects {
		if err := a.FromMap(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SetUndoStack attaches st to this container and every nested list item.
func (c *Container) SetUndoStack(st *undo.Stack) {
	c.undo = st
	c.propagate()
}

func (c *Container) UndoStack() *undo.Stack { return c.undo }

// SetAutoApply makes edits commit immediately. Propagates to list items.
func (c *Container) SetAutoApply(on bool) {
	c.autoApply = on
	c.propagate()
}

func (c *Container) AutoApply() bool { return c.autoApply }

// SetExecutor sets where selection fetches run. Propagates to list items.
func (c *Container) SetExecutor(e Executor) {
	c.exec = e
	c.propagate()
}

func (c *Container) Executor() Executor { return c.exec }

// SetLogger sets the logger aspects report through. Propagates to list items.
func (c *Container) SetLogger(l *zap.Logger) {
	c.log = l
	c.propagate()
}

func (c *Container) Logger() *zap.Logger {
	if c.log == nil {
		return zap.NewNop()
	}
	return c.log
}

// OnChanged fires after any owned aspect's stored value changed.
func (c *Container) OnChanged(fn func()) func() { return c.changed.Connect(fn) }

// OnVolatileChanged fires after any owned aspect's buffer changed.
func (c *Container) OnVolatileChanged(fn func()) func() { return c.volatileChanged.Connect(fn) }

// AspectContainer returns c; it lets embedding types be list items.
func (c *Container) AspectContainer() *Container { return c }

// inherit copies the environment of parent into c and its nested lists.
func (c *Container) inherit(parent *Container) {
	if parent == nil {
		return
	}
	c.undo, c.autoApply, c.exec, c.log = parent.undo, parent.autoApply, parent.exec, parent.log
	c.propagate()
}

func (c *Container) propagate() {
	for _, a := range c.aspects {
		if p, ok := a.(propagator); ok {
			p.propagate()
		}
	}
}

type propagator interface {
	propagate()
}
