package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/codescope/codescope/internal/ui"
)

// RunInteractive launches a scrollable terminal browser over results: one
// result's snippet at a time in a viewport, moved between with j/k or the
// arrow keys, q/esc/ctrl+c to quit.
func RunInteractive(results []Result, noColor bool) error {
	if len(results) == 0 {
		return nil
	}
	p := tea.NewProgram(newBrowserModel(results, noColor), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type browserModel struct {
	results  []Result
	styles   ui.Styles
	selected int
	viewport viewport.Model
	ready    bool
}

func newBrowserModel(results []Result, noColor bool) *browserModel {
	return &browserModel{
		results: results,
		styles:  ui.GetStyles(noColor),
	}
}

func (m *browserModel) Init() tea.Cmd { return nil }

const browserChromeHeight = 4 // rows kept out of the viewport; View draws a one-line title and a one-line footer

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h := msg.Height - browserChromeHeight
		if h < 1 {
			h = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.viewport.SetContent(m.renderSnippet())
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "down", "j":
			if m.selected < len(m.results)-1 {
				m.selected++
				m.viewport.SetContent(m.renderSnippet())
				m.viewport.GotoTop()
			}
			return m, nil
		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.viewport.SetContent(m.renderSnippet())
				m.viewport.GotoTop()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browserModel) renderSnippet() string {
	r := m.results[m.selected]
	var b strings.Builder
	if r.HeaderText != "" {
		b.WriteString(m.styles.Dim.Render(r.HeaderText))
		b.WriteString("\n")
	}
	b.WriteString(r.Snippet)
	if r.Warn != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.Warning.Render("warn: " + r.Warn))
	}
	return b.String()
}

func (m *browserModel) View() string {
	if !m.ready {
		return "loading…\n"
	}
	r := m.results[m.selected]
	loc := fmt.Sprintf("%s:%d", r.FilePath, r.LineStart)
	title := fmt.Sprintf("%d/%d  %s (score %.3f)", m.selected+1, len(m.results), loc, r.Score)
	footer := m.styles.Dim.Render("j/k ↑/↓ move   q quit")
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.viewport.View(),
		footer,
	)
}
