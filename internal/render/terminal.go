package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	statusColor = color.New(color.Bold)
	errorColor  = color.New(color.FgRed)
)

// WriteTerminal writes the model's output lines to w. A blank line follows
// every compiler status line and every program stderr line.
func WriteTerminal(w io.Writer, m Model, colored bool) error {
	for _, l := range m.Output {
		text := l.Text
		switch l.Style {
		case StyleStatus:
			if colored {
				text = statusColor.Sprint(text)
			}
		case StyleError:
			text = "  " + text
			if colored {
				text = errorColor.Sprint(text)
			}
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
		if l.Style == StyleError || (l.Style == StyleStatus && !isProgramStatus(l.Text)) {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteAssembly writes the assembly text with opcode bytes in a right-hand
// column.
func WriteAssembly(w io.Writer, m Model, colored bool) error {
	notes := make(map[int32]string, len(m.Annotations))
	for _, a := range m.Annotations {
		notes[a.Line] = a.Text
	}
	line := int32(0)
	start := 0
	for i := 0; i < len(m.Text); i++ {
		if m.Text[i] != '\n' {
			continue
		}
		line++
		text := m.Text[start:i]
		start = i + 1
		if note, ok := notes[line]; ok {
			if colored {
				note = color.New(color.Faint).Sprint(note)
			}
			text = fmt.Sprintf("%-40s ; %s", text, note)
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return err
		}
	}
	return nil
}

func isProgramStatus(s string) bool {
	return strings.HasPrefix(s, "Program returned:")
}
