// Package menu is the interactive numbered menu shown when devbox runs
// without a subcommand on a terminal.
package menu

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jaspreet-dot-casa/devbox/pkg/ui"
)

// ErrQuit is returned by Run when the user leaves without choosing.
var ErrQuit = errors.New("menu closed")

// Item is one menu entry.
type Item struct {
	ID          string
	Title       string
	Description string
}

// Model is the bubbletea model for the menu.
type Model struct {
	title    string
	items    []Item
	cursor   int
	chosen   string
	quitting bool
	keys     KeyMap
	help     help.Model
	width    int
}

// New creates a menu model.
func New(title string, items []Item) Model {
	return Model{
		title: title,
		items: items,
		keys:  DefaultKeyMap(),
		help:  help.New(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if len(m.items) > 0 {
				m.cursor = (m.cursor - 1 + len(m.items)) % len(m.items)
			}
		case key.Matches(msg, m.keys.Down):
			if len(m.items) > 0 {
				m.cursor = (m.cursor + 1) % len(m.items)
			}
		case key.Matches(msg, m.keys.Digits):
			if idx := int(msg.String()[0] - '1'); idx < len(m.items) {
				m.cursor = idx
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Enter):
			if len(m.items) > 0 {
				m.chosen = m.items[m.cursor].ID
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting || m.chosen != "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(ui.TitleStyle.Render(m.title))
	b.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		title := item.Title
		if i == m.cursor {
			cursor = "▸ "
			title = ui.SelectedStyle.Render(title)
		}
		fmt.Fprintf(&b, "%s%2d. %s", cursor, i+1, title)
		if item.Description != "" {
			b.WriteString("  " + ui.DimStyle.Render(item.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Cursor returns the highlighted index.
func (m Model) Cursor() int {
	return m.cursor
}

// Chosen returns the selected item ID, or "" when nothing was chosen.
func (m Model) Chosen() string {
	return m.chosen
}

// Run shows the menu and returns the chosen item ID, or ErrQuit.
func Run(title string, items []Item, opts ...tea.ProgramOption) (string, error) {
	final, err := tea.NewProgram(New(title, items), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("menu: %w", err)
	}
	m, ok := final.(Model)
	if !ok || m.chosen == "" {
		return "", ErrQuit
	}
	return m.chosen, nil
}
