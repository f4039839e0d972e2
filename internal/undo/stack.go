// Package undo keeps an undo/redo history of state edits.
//
// Commands are recorded after the edit has already happened, so Push does
// not execute them. Consecutive commands that implement Merger may collapse
// into one entry, and BeginMacro/EndMacro group several commands into a
// single step.
package undo

// Command is one reversible edit.
type Command interface {
	Undo()
	Redo()
	Text() string
}

// Merger is implemented by commands that can absorb a following command
// with the same MergeID.
type Merger interface {
	MergeID() int
	MergeWith(next Command) bool
}

type macro struct {
	text     string
	children []Command
}

func (m *macro) Undo() {
	for i := len(m.children) - 1; i >= 0; i-- {
		m.children[i].Undo()
	}
}

func (m *macro) Redo() {
	for _, c := range m.children {
		c.Redo()
	}
}

func (m *macro) Text() string { return m.text }

// Stack is an undo history. It is not safe for concurrent use; it lives on
// the session's state thread with the aspects that feed it.
type Stack struct {
	commands []Command
	index    int
	clean    int
	macros   []*macro
	replay   bool
	// suppress merging across an explicit boundary
	sealed bool

	listeners []func()
}

// New returns an empty stack.
func New() *Stack { return &Stack{} }

// Push records a command that has already been applied. While the stack is
// replaying an undo or redo, pushes are ignored.
func (s *Stack) Push(c Command) {
	if s == nil || c == nil || s.replay {
		return
	}
	if n := len(s.macros); n > 0 {
		m := s.macros[n-1]
		m.children = append(m.children, c)
		return
	}
	if s.index < len(s.commands) {
		s.commands = s.commands[:s.index]
		if s.clean > s.index {
			s.clean = -1
		}
	}
	if !s.sealed && s.index > 0 && s.index != s.clean {
		if prev, ok := s.commands[s.index-1].(Merger); ok {
			if next, ok := c.(Merger); ok && prev.MergeID() >= 0 && prev.MergeID() == next.MergeID() {
				if prev.MergeWith(c) {
					s.notify()
					return
				}
			}
		}
	}
	s.sealed = false
	s.commands = append(s.commands, c)
	s.index++
	s.notify()
}

// BeginMacro starts grouping pushes into a single command. Macros nest.
func (s *Stack) BeginMacro(text string) {
	if s == nil {
		return
	}
	s.macros = append(s.macros, &macro{text: text})
}

// EndMacro closes the innermost macro. An empty macro records nothing.
func (s *Stack) EndMacro() {
	if s == nil || len(s.macros) == 0 {
		return
	}
	n := len(s.macros)
	m := s.macros[n-1]
	s.macros = s.macros[:n-1]
	if len(m.children) == 0 {
		return
	}
	s.sealed = true
	s.Push(m)
	s.sealed = true
}

// Seal prevents the next push from merging into the current top command.
func (s *Stack) Seal() {
	if s != nil {
		s.sealed = true
	}
}

// CanUndo reports whether there is a command to undo.
func (s *Stack) CanUndo() bool { return s != nil && s.index > 0 && len(s.macros) == 0 }

// CanRedo reports whether there is a command to redo.
func (s *Stack) CanRedo() bool {
	return s != nil && s.index < len(s.commands) && len(s.macros) == 0
}

// Undo reverts the most recent command.
func (s *Stack) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.index--
	s.run(s.commands[s.index].Undo)
	s.sealed = true
	s.notify()
	return true
}

// Redo re-applies the most recently undone command.
func (s *Stack) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	c := s.commands[s.index]
	s.index++
	s.run(c.Redo)
	s.sealed = true
	s.notify()
	return true
}

// UndoText describes the command Undo would revert.
func (s *Stack) UndoText() string {
	if !s.CanUndo() {
		return ""
	}
	return s.commands[s.index-1].Text()
}

// RedoText describes the command Redo would re-apply.
func (s *Stack) RedoText() string {
	if !s.CanRedo() {
		return ""
	}
	return s.commands[s.index].Text()
}

// Count returns the number of recorded commands.
func (s *Stack) Count() int {
	if s == nil {
		return 0
	}
	return len(s.commands)
}

// SetClean marks the current position as matching the persisted state.
func (s *Stack) SetClean() {
	if s == nil {
		return
	}
	s.clean = s.index
	s.sealed = true
	s.notify()
}

// IsClean reports whether the stack is at the clean position.
func (s *Stack) IsClean() bool { return s == nil || s.index == s.clean }

// Clear drops the whole history.
func (s *Stack) Clear() {
	if s == nil {
		return
	}
	s.commands = nil
	s.index = 0
	s.clean = 0
	s.macros = nil
	s.sealed = false
	s.notify()
}

// Replaying reports whether an undo or redo is being applied right now.
func (s *Stack) Replaying() bool { return s != nil && s.replay }

// OnChanged registers fn to run whenever the undo/redo availability may have
// changed. It returns a function that removes the listener.
func (s *Stack) OnChanged(fn func()) func() {
	if s == nil || fn == nil {
		return func() {}
	}
	s.listeners = append(s.listeners, fn)
	idx := len(s.listeners) - 1
	return func() {
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

func (s *Stack) run(fn func()) {
	s.replay = true
	defer func() { s.replay = false }()
	fn()
}

func (s *Stack) notify() {
	for _, fn := range s.listeners {
		if fn != nil {
			fn()
		}
	}
}
