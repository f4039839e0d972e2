package aspect

// Signal is an ordered list of observers invoked synchronously by Emit.
// The zero value is ready to use.
type Signal struct {
	slots  []slot
	nextID int
}

type slot struct {
	id int
	fn func()
}

// Connect registers fn and returns a function that removes it again.
func (s *Signal) Connect(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.slots = append(s.slots, slot{id: id, fn: fn})
	return func() { s.disconnect(id) }
}

func (s *Signal) disconnect(id int) {
	for i, sl := range s.slots {
		if sl.id == id {
			s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
			return
		}
	}
}

// Emit calls every observer in registration order. Observers connected or
// removed during Emit take effect from the next Emit.
func (s *Signal) Emit() {
	if len(s.slots) == 0 {
		return
	}
	snapshot := append([]slot(nil), s.slots...)
	for _, sl := range snapshot {
		sl.fn()
	}
}

// Len reports the number of connected observers.
func (s *Signal) Len() int { return len(s.slots) }
