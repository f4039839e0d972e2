package aspect

import (
	"reflect"
)

// String holds free text such as source code or compiler options.
type String struct {
	Typed[string]
}

// NewString registers a string aspect in c. Consecutive edits merge into a
// single undo step.
func NewString(c *Container, key string) *String {
	a := &String{}
	a.init(key, KindString, "", comparableCodec(asString))
	a.merge = true
	c.register(a)
	return a
}

// Bool holds a flag.
type Bool struct {
	Typed[bool]
}

func NewBool(c *Container, key string, def bool) *Bool {
	a := &Bool{}
	a.init(key, KindBool, def, comparableCodec(asBool))
	c.register(a)
	return a
}

// Int holds an integer, optionally clamped to a range.
type Int struct {
	Typed[int64]
	min, max int64
	ranged   bool
}

func NewInt(c *Container, key string, def int64) *Int {
	a := &Int{}
	a.init(key, KindInt, def, comparableCodec(asInt64))
	a.normalize = a.clamp
	c.register(a)
	return a
}

// SetRange clamps the aspect to [lo, hi]. Values outside the range,
// including ones already stored, are clamped rather than rejected.
func (a *Int) SetRange(lo, hi int64) {
	if lo > hi {
		lo, hi = hi, lo
	}
	a.min, a.max, a.ranged = lo, hi, true
	a.def = a.clamp(a.def)
	value, buffer := a.clamp(a.value), a.clamp(a.buffer)
	if value != a.value {
		a.value = value
		a.changed.Emit()
	}
	if buffer != a.buffer {
		a.buffer = buffer
		a.BufferToGUI()
		a.volatileChanged.Emit()
	}
}

// Range returns the clamp bounds and whether one is set.
func (a *Int) Range() (lo, hi int64, ok bool) { return a.min, a.max, a.ranged }

func (a *Int) clamp(v int64) int64 {
	if !a.ranged {
		return v
	}
	return max(a.min, min(a.max, v))
}

// StoreAspect holds an opaque structured map, such as window layout state.
type StoreAspect struct {
	Typed[Store]
}

func NewStore(c *Container, key string) *StoreAspect {
	a := &StoreAspect{}
	a.init(key, KindStore, nil, codec[Store]{
		equal: func(x, y Store) bool {
			if len(x) == 0 && len(y) == 0 {
				return true
			}
			return reflect.DeepEqual(x, y)
		},
		clone:  CloneStore,
		encode: func(v Store) any { return CloneStore(v) },
		decode: func(raw any) (Store, error) {
			s, err := AsStore(raw)
			if err != nil {
				return nil, err
			}
			return CloneStore(s), nil
		},
	})
	c.register(a)
	return a
}
