package output

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoResults() []Result {
	return []Result{
		{FilePath: "a.go", LineStart: 1, Score: 0.9, Snippet: "func a() {}"},
		{FilePath: "b.go", LineStart: 5, Score: 0.5, Snippet: "func b() {}"},
	}
}

func TestBrowserModelNavigatesBetweenResults(t *testing.T) {
	m := newBrowserModel(twoResults(), true)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = next.(*browserModel)
	require.Equal(t, 0, m.selected)
	assert.Contains(t, m.View(), "1/2")
	assert.Contains(t, m.View(), "a.go:1")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(*browserModel)
	assert.Equal(t, 1, m.selected)
	assert.Contains(t, m.View(), "2/2")
	assert.Contains(t, m.View(), "b.go:5")

	// Does not run past the last result.
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(*browserModel)
	assert.Equal(t, 1, m.selected)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(*browserModel)
	assert.Equal(t, 0, m.selected)
}

func TestBrowserModelQuitsOnQ(t *testing.T) {
	m := newBrowserModel(twoResults(), true)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.Quit(), cmd())
}

func TestRunInteractiveNoopOnEmptyResults(t *testing.T) {
	require.NoError(t, RunInteractive(nil, true))
}

func TestBrowserSnippetIncludesHeaderAndWarning(t *testing.T) {
	results := []Result{{
		FilePath:   "c.go",
		LineStart:  1,
		HeaderText: "func c() {",
		Snippet:    "  return 1",
		Warn:       "truncated",
	}}
	m := newBrowserModel(results, true)
	snippet := m.renderSnippet()
	assert.True(t, strings.Contains(snippet, "func c() {"))
	assert.True(t, strings.Contains(snippet, "return 1"))
	assert.True(t, strings.Contains(snippet, "truncated"))
}
