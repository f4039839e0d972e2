package aspect

import (
	"errors"
	"fmt"
	"slices"
)

// Item is a sub-container that can live in a List. Types embedding
// Container satisfy it through AspectContainer.
type Item interface {
	comparable
	AspectContainer() *Container
}

// List is an ordered, mutable list of sub-containers, such as the compilers
// of a source. Like scalar aspects it keeps a stored and a volatile list.
type List[T Item] struct {
	base
	items  []T
	stored []T
	create func() T

	added   observers[T]
	removed observers[T]
	conns   map[T][]func()

	changed         Signal
	volatileChanged Signal
}

// NewList registers a list aspect in c. create builds an empty item when
// loading from a map.
func NewList[T Item](c *Container, key string, create func() T) *List[T] {
	l := &List[T]{create: create, conns: make(map[T][]func())}
	l.key = key
	l.id = int(nextAspectID.Add(1))
	c.register(l)
	return l
}

func (l *List[T]) Kind() Kind { return KindList }

// Items returns the volatile list.
func (l *List[T]) Items() []T { return slices.Clone(l.items) }

// StoredItems returns the committed list.
func (l *List[T]) StoredItems() []T { return slices.Clone(l.stored) }

func (l *List[T]) Size() int { return len(l.items) }

func (l *List[T]) IndexOf(item T) int { return slices.Index(l.items, item) }

// ForEachItem visits the volatile list in order.
func (l *List[T]) ForEachItem(fn func(item T, index int)) {
	for i, it := range slices.Clone(l.items) {
		fn(it, i)
	}
}

// OnItemAdded registers fn to run synchronously whenever an item enters the
// list. It returns a function that removes the observer.
func (l *List[T]) OnItemAdded(fn func(T)) func() { return l.added.connect(fn) }

// OnItemRemoved registers fn to run synchronously whenever an item leaves
// the list.
func (l *List[T]) OnItemRemoved(fn func(T)) func() { return l.removed.connect(fn) }

// AddItem appends item and records an undo step.
func (l *List[T]) AddItem(item T) {
	l.insert(len(l.items), item, true)
}

// RemoveItem removes item and records an undo step. It reports whether the
// item was present.
func (l *List[T]) RemoveItem(item T) bool {
	idx := slices.Index(l.items, item)
	if idx < 0 {
		return false
	}
	l.removeAt(idx, true)
	return true
}

// Clear removes every item, last first.
func (l *List[T]) Clear() {
	for len(l.items) > 0 {
		l.removeAt(len(l.items)-1, true)
	}
}

func (l *List[T]) insert(idx int, item T, record bool) {
	idx = max(0, min(idx, len(l.items)))
	l.items = slices.Insert(l.items, idx, item)
	l.attach(item)
	l.added.emit(item)
	l.volatileChanged.Emit()
	if record {
		l.undoStack().Push(&listCommand[T]{l: l, item: item, index: idx, add: true})
	}
	if l.autoApply() {
		l.Apply()
	}
}

func (l *List[T]) removeAt(idx int, record bool) {
	item := l.items[idx]
	l.items = slices.Delete(l.items, idx, idx+1)
	l.detach(item)
	l.removed.emit(item)
	l.volatileChanged.Emit()
	if record {
		l.undoStack().Push(&listCommand[T]{l: l, item: item, index: idx})
	}
	if l.autoApply() {
		l.Apply()
	}
}

func (l *List[T]) attach(item T) {
	ic := item.AspectContainer()
	ic.inherit(l.container)
	l.conns[item] = []func(){
		ic.OnChanged(l.changed.Emit),
		ic.OnVolatileChanged(l.volatileChanged.Emit),
	}
}

func (l *List[T]) detach(item T) {
	for _, off := range l.conns[item] {
		off()
	}
	delete(l.conns, item)
}

func (l *List[T]) propagate() {
	for _, it := range l.items {
		it.AspectContainer().inherit(l.container)
	}
	for _, it := range l.stored {
		if !slices.Contains(l.items, it) {
			it.AspectContainer().inherit(l.container)
		}
	}
}

func (l *List[T]) IsDirty() bool {
	if !slices.Equal(l.items, l.stored) {
		return true
	}
	for _, it := range l.items {
		if it.AspectContainer().IsDirty() {
			return true
		}
	}
	return false
}

// Apply commits the list membership and every item.
func (l *List[T]) Apply() bool {
	listChanged := !slices.Equal(l.items, l.stored)
	l.stored = slices.Clone(l.items)
	itemsChanged := false
	for _, it := range l.items {
		if it.AspectContainer().Apply() {
			itemsChanged = true
		}
	}
	if listChanged {
		l.changed.Emit()
	}
	return listChanged || itemsChanged
}

// Revert restores the committed membership and reverts every item.
func (l *List[T]) Revert() bool {
	changed := false
	if !slices.Equal(l.items, l.stored) {
		changed = true
		old := l.items
		l.items = slices.Clone(l.stored)
		for _, it := range old {
			if !slices.Contains(l.items, it) {
				l.detach(it)
				l.removed.emit(it)
			}
		}
		for _, it := range l.items {
			if !slices.Contains(old, it) {
				l.attach(it)
				l.added.emit(it)
			}
		}
	}
	for _, it := range l.items {
		ic := it.AspectContainer()
		if ic.IsDirty() {
			ic.Revert()
			changed = true
		}
	}
	if changed {
		l.volatileChanged.Emit()
	}
	return changed
}

func (l *List[T]) BufferToGUI() {
	for _, it := range l.items {
		for _, a := range it.AspectContainer().aspects {
			a.BufferToGUI()
		}
	}
}

func (l *List[T]) GUIToBuffer() bool { return false }

func (l *List[T]) ToMap(s Store) {
	out := make([]any, 0, len(l.stored))
	for _, it := range l.stored {
		m := Store{}
		it.AspectContainer().ToMap(m)
		out = append(out, m)
	}
	s[l.key] = out
}

func (l *List[T]) VolatileToMap(s Store) {
	out := make([]any, 0, len(l.items))
	for _, it := range l.items {
		m := Store{}
		it.AspectContainer().VolatileToMap(m)
		out = append(out, m)
	}
	s[l.key] = out
}

// FromMap replaces the list with freshly created items loaded from s. On any
// error the current list is left untouched.
func (l *List[T]) FromMap(s Store) error {
	raw, ok := s[l.key]
	if !ok {
		return nil
	}
	entries, err := asList(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", l.key, err)
	}
	next := make([]T, 0, len(entries))
	var errs []error
	for i, e := range entries {
		st, err := AsStore(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", l.key, i, err))
			continue
		}
		it := l.create()
		// nested lists created while loading must already see the executor
		it.AspectContainer().inherit(l.container)
		if err := it.AspectContainer().FromMap(st); err != nil {
			errs = append(errs, fmt.Errorf("%s[%d]: %w", l.key, i, err))
			continue
		}
		next = append(next, it)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for len(l.items) > 0 {
		l.removeAt(len(l.items)-1, false)
	}
	for _, it := range next {
		l.items = append(l.items, it)
		l.attach(it)
		l.added.emit(it)
	}
	l.stored = slices.Clone(l.items)
	l.volatileChanged.Emit()
	l.changed.Emit()
	return nil
}

func (l *List[T]) OnChanged(fn func()) func() { return l.changed.Connect(fn) }

func (l *List[T]) OnVolatileChanged(fn func()) func() { return l.volatileChanged.Connect(fn) }

type listCommand[T Item] struct {
	l     *List[T]
	item  T
	index int
	add   bool
}

func (c *listCommand[T]) Undo() {
	if c.add {
		c.drop()
		return
	}
	c.l.insert(c.index, c.item, false)
}

func (c *listCommand[T]) Redo() {
	if c.add {
		c.l.insert(c.index, c.item, false)
		return
	}
	c.drop()
}

func (c *listCommand[T]) drop() {
	if idx := slices.Index(c.l.items, c.item); idx >= 0 {
		c.l.removeAt(idx, false)
	}
}

func (c *listCommand[T]) Text() string {
	if c.add {
		return "Add " + c.l.DisplayName()
	}
	return "Remove " + c.l.DisplayName()
}

type observers[T any] struct {
	nextID int
	fns    []observer[T]
}

type observer[T any] struct {
	id int
	fn func(T)
}

func (o *observers[T]) connect(fn func(T)) func() {
	if fn == nil {
		return func() {}
	}
	o.nextID++
	id := o.nextID
	o.fns = append(o.fns, observer[T]{id: id, fn: fn})
	return func() {
		o.fns = slices.DeleteFunc(o.fns, func(x observer[T]) bool { return x.id == id })
	}
}

func (o *observers[T]) emit(v T) {
	for _, x := range slices.Clone(o.fns) {
		x.fn(v)
	}
}
