package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"cexplorer/internal/catalog"
)

type progressModel struct {
	title   string
	events  <-chan catalog.PrefetchEvent
	spinner spinner.Model
	prog    progress.Model
	items   []languageItem
	index   map[string]int
	width   int
	done    bool
}

type languageItem struct {
	language string
	fetched  int
	failed   bool
}

type prefetchMsg catalog.PrefetchEvent
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders catalog prefetch
// progress. It quits when events is closed.
func NewProgressModel(title string, languages []string, events <-chan catalog.PrefetchEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]languageItem, 0, len(languages))
	index := make(map[string]int, len(languages))
	for i, lang := range languages {
		items = append(items, languageItem{language: lang})
		index[lang] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case prefetchMsg:
		cmd := m.applyEvent(catalog.PrefetchEvent(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16, 20)
	for _, item := range m.items {
		status := item.status()
		statusStyled := styleStatus(status).Render(fmt.Sprintf("%12s", status))
		b.WriteString(fmt.Sprintf("  %s %s\n", statusStyled, truncate(item.language, nameWidth)))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return prefetchMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev catalog.PrefetchEvent) tea.Cmd {
	idx, ok := m.index[ev.Language]
	if !ok {
		return nil
	}
	m.items[idx].fetched++
	if ev.Err != nil {
		m.items[idx].failed = true
	}
	total := 0
	for _, item := range m.items {
		total += item.fetched
	}
	return m.prog.SetPercent(float64(total) / float64(2*len(m.items)))
}

// each language has a compiler and a library listing
func (it languageItem) status() string {
	switch {
	case it.failed:
		return "error"
	case it.fetched >= 2:
		return "done"
	case it.fetched > 0:
		return "fetching"
	default:
		return "queued"
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done", "idle":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error", "failed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "fetching", "requesting", "pending":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
