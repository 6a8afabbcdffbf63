// Package confirm asks a yes/no question before a destructive action.
package confirm

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
)

// Action identifies what is being confirmed.
type Action struct {
	Kind   string
	TaskID string
}

// ResultMsg reports the answer for Action.
type ResultMsg struct {
	Action    Action
	Confirmed bool
}

// Model wraps a huh confirm field.
type Model struct {
	form   *huh.Form
	answer *bool
	action Action
	width  int
	height int
}

// New creates an idle confirm model.
func New(width, height int) Model {
	return Model{answer: new(bool), width: width, height: height}
}

// Ask starts a new question for action.
func (m *Model) Ask(title, description string, action Action) tea.Cmd {
	*m.answer = false
	m.action = action
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(m.answer),
		),
	).WithWidth(max(30, min(70, m.width-8))).WithShowHelp(false).WithKeyMap(keys.FormKeyMap())
	return m.form.Init()
}

// Action returns the pending action.
func (m Model) Action() Action {
	return m.action
}

// Update handles messages for the confirm prompt.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		res := ResultMsg{Action: m.action, Confirmed: *m.answer}
		m.form = nil
		return m, func() tea.Msg { return res }
	case huh.StateAborted:
		res := ResultMsg{Action: m.action}
		m.form = nil
		return m, func() tea.Msg { return res }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return theme.DetailPanelStyle.
		BorderForeground(theme.ColorRed).
		Width(max(34, min(74, m.width-4))).
		Render(lipgloss.JoinVertical(lipgloss.Left, m.form.View()))
}

// SetSize updates the prompt dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
