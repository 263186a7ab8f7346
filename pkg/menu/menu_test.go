package menu

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to create a tea.KeyMsg for testing
func keyMsg(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func specialKeyMsg(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

var testItems = []Item{
	{ID: "install", Title: "Install components"},
	{ID: "mirror", Title: "Apply mirrors"},
	{ID: "vm-start", Title: "Start VM", Description: "docker compose up -d"},
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, key.Matches(keyMsg("q"), km.Quit))
	assert.True(t, key.Matches(specialKeyMsg(tea.KeyCtrlC), km.Quit))
	assert.True(t, key.Matches(keyMsg("k"), km.Up))
	assert.True(t, key.Matches(specialKeyMsg(tea.KeyUp), km.Up))
	assert.True(t, key.Matches(keyMsg("j"), km.Down))
	assert.True(t, key.Matches(specialKeyMsg(tea.KeyDown), km.Down))
	assert.True(t, key.Matches(keyMsg("7"), km.Digits))
	assert.False(t, key.Matches(keyMsg("0"), km.Digits))
	assert.True(t, key.Matches(specialKeyMsg(tea.KeyEnter), km.Enter))
	assert.Len(t, km.FullHelp(), 2)
}

func TestModel_Navigation(t *testing.T) {
	m := New("devbox", testItems)

	m, _ = update(t, m, keyMsg("j"))
	assert.Equal(t, 1, m.Cursor())
	m, _ = update(t, m, specialKeyMsg(tea.KeyDown))
	assert.Equal(t, 2, m.Cursor())
	m, _ = update(t, m, keyMsg("j"))
	assert.Equal(t, 0, m.Cursor(), "wraps to the top")
	m, _ = update(t, m, keyMsg("k"))
	assert.Equal(t, 2, m.Cursor(), "wraps to the bottom")
}

func TestModel_DigitsJump(t *testing.T) {
	m := New("devbox", testItems)

	m, _ = update(t, m, keyMsg("2"))
	assert.Equal(t, 1, m.Cursor())

	m, _ = update(t, m, keyMsg("9"))
	assert.Equal(t, 1, m.Cursor(), "out of range digits are ignored")
}

func TestModel_EnterSelects(t *testing.T) {
	m := New("devbox", testItems)
	m, _ = update(t, m, keyMsg("3"))

	m, cmd := update(t, m, specialKeyMsg(tea.KeyEnter))
	assert.Equal(t, "vm-start", m.Chosen())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestModel_Quit(t *testing.T) {
	m := New("devbox", testItems)

	m, cmd := update(t, m, keyMsg("q"))
	assert.Empty(t, m.Chosen())
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_View(t *testing.T) {
	m := New("devbox", testItems)
	view := m.View()

	assert.Contains(t, view, "devbox")
	assert.Contains(t, view, " 1. ")
	assert.Contains(t, view, "Install components")
	assert.Contains(t, view, "docker compose up -d")
	assert.Contains(t, view, "quit")
}

func TestModel_EmptyMenu(t *testing.T) {
	m := New("devbox", nil)
	m, cmd := update(t, m, specialKeyMsg(tea.KeyEnter))
	assert.Nil(t, cmd)
	assert.Empty(t, m.Chosen())
}
