package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"cexplorer/internal/api"
)

func TestRenderAssemblyAndAnnotations(t *testing.T) {
	m, err := Render(api.CompileResult{
		Assembly: []api.AsmLine{
			{Text: "mov eax,1", Opcodes: []string{"b8", "01", "00", "00", "00"}},
			{Text: "ret"},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if m.Text != "mov eax,1\nret\n" {
		t.Fatalf("unexpected text %q", m.Text)
	}
	if len(m.Annotations) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(m.Annotations))
	}
	a := m.Annotations[0]
	if a.Line != 1 || a.Category != CategoryBytes || a.Text != "b8 01 00 00 00" {
		t.Fatalf("unexpected annotation %+v", a)
	}
}

func TestRenderOutputOrder(t *testing.T) {
	m, err := Render(api.CompileResult{
		ExitCode: 0,
		StdErr:   []string{"warn"},
		StdOut:   []string{"note"},
		Exec: &api.ExecResult{
			Build:      &api.BuildResult{ExitCode: 0, StdErr: []string{"link"}},
			DidExecute: true,
			ExitCode:   3,
			StdErr:     []string{"boom"},
			StdOut:     []string{"hello"},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := []OutputLine{
		{"warn", StylePlain},
		{"note", StylePlain},
		{"ASM generation compiler returned: 0", StyleStatus},
		{"link", StylePlain},
		{"Execution build compiler returned: 0", StyleStatus},
		{"Program returned: 3", StyleStatus},
		{"boom", StyleError},
		{"hello", StylePlain},
	}
	if len(m.Output) != len(want) {
		t.Fatalf("got %d lines, want %d: %+v", len(m.Output), len(want), m.Output)
	}
	for i := range want {
		if m.Output[i] != want[i] {
			t.Fatalf("line %d: got %+v want %+v", i, m.Output[i], want[i])
		}
	}
}

func TestRenderWithoutExecution(t *testing.T) {
	m, _ := Render(api.CompileResult{
		ExitCode: 1,
		Exec:     &api.ExecResult{Build: &api.BuildResult{ExitCode: 1}},
	})
	last := m.Output[len(m.Output)-1]
	if last.Text != "Execution build compiler returned: 1" {
		t.Fatalf("program lines must be omitted when nothing ran, last=%q", last.Text)
	}
}

func TestFailedResultRenders(t *testing.T) {
	m, err := Render(api.FailedResult(errors.New("connection refused")))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if m.Text != "" || len(m.Output) != 2 || m.Output[1].Text != "ASM generation compiler returned: -1" {
		t.Fatalf("unexpected model %+v", m)
	}
}

func TestViewKeepsLastGoodModel(t *testing.T) {
	v := NewView(nil)
	updates := 0
	v.OnUpdated(func(Model) { updates++ })
	if err := v.Apply(api.CompileResult{Assembly: []api.AsmLine{{Text: "nop", Opcodes: []string{"90"}}}}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	v.render = func(api.CompileResult) (Model, error) { panic("bad result") }
	if err := v.Apply(api.CompileResult{}); err == nil {
		t.Fatalf("expected render failure")
	}
	v.render = func(api.CompileResult) (Model, error) { return Model{}, errors.New("bad") }
	if err := v.Apply(api.CompileResult{}); err == nil {
		t.Fatalf("expected render failure")
	}
	m, ok := v.Model()
	if !ok || m.Text != "nop\n" || len(m.Annotations) != 1 {
		t.Fatalf("last good model lost: %+v", m)
	}
	if updates != 1 {
		t.Fatalf("expected 1 update, got %d", updates)
	}
}

func TestWriteTerminal(t *testing.T) {
	m, _ := Render(api.CompileResult{
		StdOut: []string{"out"},
		Exec:   &api.ExecResult{DidExecute: true, ExitCode: 0, StdErr: []string{"err"}},
	})
	var buf bytes.Buffer
	if err := WriteTerminal(&buf, m, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "out\nASM generation compiler returned: 0\n\nProgram returned: 0\n  err\n\n"
	if buf.String() != want {
		t.Fatalf("got %q want %q", buf.String(), want)
	}
}

func TestWriteAssembly(t *testing.T) {
	m, _ := Render(api.CompileResult{Assembly: []api.AsmLine{
		{Text: "main:"},
		{Text: "ret", Opcodes: []string{"c3"}},
	}})
	var buf bytes.Buffer
	if err := WriteAssembly(&buf, m, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 || lines[0] != "main:" || !strings.HasSuffix(lines[1], "; c3") {
		t.Fatalf("unexpected assembly %q", buf.String())
	}
}
