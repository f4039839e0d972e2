package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"cexplorer/internal/compilepipeline"
	"cexplorer/internal/eventloop"
	"cexplorer/internal/render"
	"cexplorer/internal/session"
	"cexplorer/internal/settings"
)

var (
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusError = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

const liveHelp = "tab next compiler • ctrl+r recompile • ctrl+z/ctrl+y undo/redo • ctrl+s save • esc quit"

// LiveModel edits the first source of a session and shows the results of
// its compilers. Session state is only touched through loop posts.
type LiveModel struct {
	loop *eventloop.Loop
	sess *session.Session
	feed *Feed

	editor  textarea.Model
	output  viewport.Model
	spinner spinner.Model

	compilers map[string]CompilerUpdate
	order     []string
	focus     int
	status    StatusUpdate
	width     int
	height    int
	savePath  string
}

// NewLiveModel builds the view. text is the source as the session holds it
// at startup; savePath is used by ctrl+s.
func NewLiveModel(loop *eventloop.Loop, sess *session.Session, feed *Feed, text, savePath string) *LiveModel {
	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.SetValue(text)
	ed.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	m := &LiveModel{
		loop:      loop,
		sess:      sess,
		feed:      feed,
		editor:    ed,
		output:    viewport.New(40, 20),
		spinner:   sp,
		compilers: make(map[string]CompilerUpdate),
		savePath:  savePath,
	}
	m.resize(100, 30)
	return m
}

func (m *LiveModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.listen())
}

func (m *LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case CompilerUpdate:
		m.applyCompiler(msg)
		return m, m.listen()
	case SourceUpdate:
		if m.editor.Value() != msg.Text {
			m.editor.SetValue(msg.Text)
		}
		return m, m.listen()
	case StatusUpdate:
		m.status = msg
		return m, m.listen()
	case doneMsg:
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			if len(m.order) > 0 {
				m.focus = (m.focus + 1) % len(m.order)
				m.refreshOutput()
			}
			return m, nil
		case "ctrl+r":
			m.recompile()
			return m, nil
		case "ctrl+z":
			m.replay(m.sess.Undo)
			return m, nil
		case "ctrl+y":
			m.replay(m.sess.Redo)
			return m, nil
		case "ctrl+s":
			m.save()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}
		before := m.editor.Value()
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		if after := m.editor.Value(); after != before {
			m.edit(after)
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m *LiveModel) View() string {
	left := paneStyle.Render(titleStyle.Render("source") + "\n" + m.editor.View())
	right := paneStyle.Render(titleStyle.Render(m.outputTitle()) + "\n" + m.output.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return body + "\n" + m.statusLine() + "\n" + helpStyle.Render(truncate(liveHelp, m.width))
}

// Focused returns the compiler currently shown, if any.
func (m *LiveModel) Focused() (CompilerUpdate, bool) {
	if len(m.order) == 0 {
		return CompilerUpdate{}, false
	}
	u, ok := m.compilers[m.order[m.focus]]
	return u, ok
}

func (m *LiveModel) applyCompiler(u CompilerUpdate) {
	if _, ok := m.compilers[u.Target]; !ok {
		m.order = append(m.order, u.Target)
	}
	prev := m.compilers[u.Target]
	if !u.HasModel && prev.HasModel {
		u.Model, u.HasModel = prev.Model, true
	}
	m.compilers[u.Target] = u
	if f, ok := m.Focused(); ok && f.Target == u.Target {
		m.refreshOutput()
	}
}

func (m *LiveModel) refreshOutput() {
	u, ok := m.Focused()
	if !ok || !u.HasModel {
		m.output.SetContent("")
		return
	}
	m.output.SetContent(outputText(u.Model))
}

func outputText(model render.Model) string {
	var b strings.Builder
	// writes to a strings.Builder do not fail
	_ = render.WriteAssembly(&b, model, false)
	b.WriteString("\n")
	_ = render.WriteTerminal(&b, model, false)
	return b.String()
}

func (m *LiveModel) outputTitle() string {
	u, ok := m.Focused()
	if !ok {
		return "waiting for first result"
	}
	title := fmt.Sprintf("%s [%d/%d]", u.Title, m.focus+1, len(m.order))
	if u.State != compilepipeline.StateIdle {
		title = m.spinner.View() + " " + title
	}
	return truncate(title, m.output.Width)
}

func (m *LiveModel) statusLine() string {
	if m.status.Err != nil {
		return statusError.Render(truncate(m.status.Err.Error(), m.width))
	}
	if m.status.Text != "" {
		return truncate(m.status.Text, m.width)
	}
	u, ok := m.Focused()
	if !ok {
		return ""
	}
	status := string(u.Status)
	line := fmt.Sprintf("%s seq %d", styleStatus(u.State.String()).Render(status), u.Seq)
	if u.Elapsed > 0 {
		line += fmt.Sprintf(" in %d ms", u.Elapsed.Milliseconds())
	}
	return line
}

func (m *LiveModel) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	paneWidth := max(width/2-2, 20)
	paneHeight := max(height-5, 5)
	m.editor.SetWidth(paneWidth)
	m.editor.SetHeight(paneHeight)
	m.output.Width = paneWidth
	m.output.Height = paneHeight
	m.refreshOutput()
}

func (m *LiveModel) listen() tea.Cmd {
	feed := m.feed
	return func() tea.Msg {
		msg, ok := feed.Next(context.Background())
		if !ok {
			return doneMsg{}
		}
		return msg
	}
}

// edit applies text to the first source, creating it when the session has
// none.
func (m *LiveModel) edit(text string) {
	sess := m.sess
	m.loop.Post(func() {
		firstSource(sess).Text.Edit(text)
	})
}

func (m *LiveModel) recompile() {
	target := ""
	if u, ok := m.Focused(); ok {
		target = u.Target
	}
	sess := m.sess
	m.loop.Post(func() {
		if cc := sess.ByTarget(target); cc != nil {
			cc.Orchestrator.CompileNow()
		}
	})
}

func (m *LiveModel) replay(step func() bool) {
	sess, feed := m.sess, m.feed
	m.loop.Post(func() {
		if !step() || sess.Empty() {
			return
		}
		src := firstSource(sess)
		feed.Send(SourceUpdate{Text: src.Text.VolatileValue(), Language: src.Language.VolatileValue()})
	})
}

func (m *LiveModel) save() {
	sess, feed, path := m.sess, m.feed, m.savePath
	m.loop.Post(func() {
		if err := sess.Save(path); err != nil {
			feed.Send(StatusUpdate{Err: err})
			return
		}
		feed.Send(StatusUpdate{Text: "saved " + sess.Path()})
	})
}

func firstSource(sess *session.Session) *settings.Source {
	if sess.Empty() {
		src := sess.AddSource()
		sess.AddCompiler(src)
		return src
	}
	return sess.Document().Sources.Items()[0]
}
