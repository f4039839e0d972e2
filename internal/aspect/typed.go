package aspect

import (
	"fmt"
	"sync/atomic"

	"cexplorer/internal/undo"
)

var nextAspectID atomic.Int64

type codec[T any] struct {
	equal  func(a, b T) bool
	clone  func(T) T
	encode func(T) any
	decode func(any) (T, error)
}

func comparableCodec[T comparable](decode func(any) (T, error)) codec[T] {
	return codec[T]{
		equal:  func(a, b T) bool { return a == b },
		clone:  func(v T) T { return v },
		encode: func(v T) any { return v },
		decode: decode,
	}
}

// Typed is the generic three-tier aspect every variant builds on.
type Typed[T any] struct {
	base
	kind      Kind
	value     T
	buffer    T
	def       T
	codec     codec[T]
	normalize func(T) T
	view      View[T]
	merge     bool

	// variants with a richer UI tier replace the view round trip
	toGUI   func()
	fromGUI func() bool

	changed         Signal
	volatileChanged Signal
}

func (t *Typed[T]) init(key string, kind Kind, def T, cd codec[T]) {
	t.key = key
	t.kind = kind
	t.codec = cd
	t.def = cd.clone(def)
	t.value = cd.clone(def)
	t.buffer = cd.clone(def)
	t.id = int(nextAspectID.Add(1))
}

func (t *Typed[T]) Kind() Kind { return t.kind }

// Value returns the stored value.
func (t *Typed[T]) Value() T { return t.codec.clone(t.value) }

// VolatileValue returns the live edit buffer.
func (t *Typed[T]) VolatileValue() T { return t.codec.clone(t.buffer) }

func (t *Typed[T]) DefaultValue() T { return t.codec.clone(t.def) }

// SetDefaultValue replaces the default and resets both tiers to it.
func (t *Typed[T]) SetDefaultValue(v T) {
	t.def = t.norm(v)
	t.SetValue(t.def)
}

func (t *Typed[T]) IsDirty() bool { return !t.codec.equal(t.value, t.buffer) }

func (t *Typed[T]) Apply() bool {
	if !t.IsDirty() {
		return false
	}
	t.value = t.codec.clone(t.buffer)
	t.changed.Emit()
	return true
}

func (t *Typed[T]) Revert() bool {
	if !t.IsDirty() {
		return false
	}
	t.buffer = t.codec.clone(t.value)
	t.BufferToGUI()
	t.volatileChanged.Emit()
	return true
}

// SetVolatileValue replaces the edit buffer, updates the view and notifies
// volatile observers. It never fails.
func (t *Typed[T]) SetVolatileValue(v T) {
	t.buffer = t.norm(v)
	t.BufferToGUI()
	t.volatileChanged.Emit()
}

// SetValue sets both tiers at once.
func (t *Typed[T]) SetValue(v T) {
	v = t.norm(v)
	bufChanged := !t.codec.equal(t.buffer, v)
	valChanged := !t.codec.equal(t.value, v)
	t.buffer = v
	t.value = t.codec.clone(v)
	t.BufferToGUI()
	if bufChanged {
		t.volatileChanged.Emit()
	}
	if valChanged {
		t.changed.Emit()
	}
}

// Edit is the user-originated path: it records an undo step, then behaves
// like SetVolatileValue and applies when the container auto-applies.
func (t *Typed[T]) Edit(v T) {
	v = t.norm(v)
	if t.codec.equal(t.buffer, v) {
		return
	}
	old := t.codec.clone(t.buffer)
	t.SetVolatileValue(v)
	t.record(old)
	if t.autoApply() {
		t.Apply()
	}
}

// HandleGUIChanged pulls the view into the buffer after the user touched it.
func (t *Typed[T]) HandleGUIChanged() {
	old := t.codec.clone(t.buffer)
	if !t.GUIToBuffer() {
		return
	}
	t.record(old)
	t.volatileChanged.Emit()
	if t.autoApply() {
		t.Apply()
	}
}

func (t *Typed[T]) record(old T) {
	st := t.undoStack()
	if st == nil {
		return
	}
	st.Push(&editCommand[T]{t: t, old: old, new: t.codec.clone(t.buffer)})
}

func (t *Typed[T]) restore(v T) {
	t.SetVolatileValue(v)
	if t.autoApply() {
		t.Apply()
	}
}

// Bind attaches the UI tier and pushes the buffer into it.
func (t *Typed[T]) Bind(v View[T]) {
	t.view = v
	t.BufferToGUI()
}

func (t *Typed[T]) Unbind() { t.view = nil }

func (t *Typed[T]) BufferToGUI() {
	if t.toGUI != nil {
		t.toGUI()
		return
	}
	if t.view != nil {
		t.view.Show(t.codec.clone(t.buffer))
	}
}

func (t *Typed[T]) GUIToBuffer() bool {
	if t.fromGUI != nil {
		return t.fromGUI()
	}
	if t.view == nil {
		return false
	}
	v := t.norm(t.view.Read())
	if t.codec.equal(t.buffer, v) {
		return false
	}
	t.buffer = v
	return true
}

func (t *Typed[T]) ToMap(s Store) {
	if t.key == "" {
		return
	}
	s[t.key] = t.codec.encode(t.value)
}

func (t *Typed[T]) VolatileToMap(s Store) {
	if t.key == "" {
		return
	}
	s[t.key] = t.codec.encode(t.buffer)
}

// FromMap loads the stored value from s. A missing key leaves the value
// untouched; a value of the wrong shape is an error naming the key.
func (t *Typed[T]) FromMap(s Store) error {
	if t.key == "" {
		return nil
	}
	raw, ok := s[t.key]
	if !ok {
		return nil
	}
	v, err := t.codec.decode(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", t.key, err)
	}
	t.SetValue(v)
	return nil
}

func (t *Typed[T]) OnChanged(fn func()) func() { return t.changed.Connect(fn) }

func (t *Typed[T]) OnVolatileChanged(fn func()) func() { return t.volatileChanged.Connect(fn) }

func (t *Typed[T]) norm(v T) T {
	v = t.codec.clone(v)
	if t.normalize != nil {
		v = t.normalize(v)
	}
	return v
}

type editCommand[T any] struct {
	t        *Typed[T]
	old, new T
}

func (c *editCommand[T]) Undo() { c.t.restore(c.old) }
func (c *editCommand[T]) Redo() { c.t.restore(c.new) }

func (c *editCommand[T]) Text() string { return "Change " + c.t.DisplayName() }

func (c *editCommand[T]) MergeID() int {
	if !c.t.merge {
		return -1
	}
	return c.t.id
}

func (c *editCommand[T]) MergeWith(next undo.Command) bool {
	n, ok := next.(*editCommand[T])
	if !ok || n.t != c.t {
		return false
	}
	c.new = n.new
	return true
}
