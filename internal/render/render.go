// Package render turns compile results into what a session shows: the
// assembly text, per-line opcode annotations and the output terminal lines.
package render

import (
	"fmt"
	"strings"

	"cexplorer/internal/api"

	"fortio.org/safecast"
)

// CategoryBytes marks annotations carrying instruction bytes.
const CategoryBytes = "Bytes"

// Style selects how an output line is shown.
type Style uint8

const (
	StylePlain Style = iota
	// StyleStatus is used for "... returned: N" lines.
	StyleStatus
	StyleError
)

// Annotation is attached to one 1-based assembly line.
type Annotation struct {
	Line     int32
	Category string
	Text     string
}

// OutputLine is one line of the result terminal.
type OutputLine struct {
	Text  string
	Style Style
}

// Model is the rendered form of a result.
type Model struct {
	Text        string
	Annotations []Annotation
	Output      []OutputLine
}

// Render builds the model for res.
func Render(res api.CompileResult) (Model, error) {
	var m Model

	m.Output = appendLines(m.Output, res.StdErr, StylePlain)
	m.Output = appendLines(m.Output, res.StdOut, StylePlain)
	m.Output = append(m.Output, status("ASM generation compiler returned: %d", res.ExitCode))

	if ex := res.Exec; ex != nil {
		if b := ex.Build; b != nil {
			m.Output = appendLines(m.Output, b.StdErr, StylePlain)
			m.Output = appendLines(m.Output, b.StdOut, StylePlain)
			m.Output = append(m.Output, status("Execution build compiler returned: %d", b.ExitCode))
		}
		if ex.DidExecute {
			m.Output = append(m.Output, status("Program returned: %d", ex.ExitCode))
			m.Output = appendLines(m.Output, ex.StdErr, StyleError)
			m.Output = appendLines(m.Output, ex.StdOut, StylePlain)
		}
	}

	var sb strings.Builder
	for i, l := range res.Assembly {
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
		if len(l.Opcodes) == 0 {
			continue
		}
		line, err := safecast.Conv[int32](i + 1)
		if err != nil {
			return Model{}, fmt.Errorf("assembly line %d: %w", i+1, err)
		}
		m.Annotations = append(m.Annotations, Annotation{
			Line:     line,
			Category: CategoryBytes,
			Text:     strings.Join(l.Opcodes, " "),
		})
	}
	m.Text = sb.String()
	return m, nil
}

func appendLines(out []OutputLine, lines []string, style Style) []OutputLine {
	for _, l := range lines {
		out = append(out, OutputLine{Text: l, Style: style})
	}
	return out
}

func status(format string, code int) OutputLine {
	return OutputLine{Text: fmt.Sprintf(format, code), Style: StyleStatus}
}
