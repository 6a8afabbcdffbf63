package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui/kanban"
	"github.com/nhle/taskboard/internal/ui/taskform"
)

// BackMsg signals the parent to navigate back to the board.
type BackMsg struct{}

// Model is the task detail view component.
type Model struct {
	task     *model.Task
	viewport viewport.Model
	keys     *keys.KeyMap
	now      func() time.Time
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		now:      time.Now,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view. Edit, delete and toggle keys
// are re-emitted as the board's messages so the parent handles them the
// same way from either view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Edit):
			if m.task != nil {
				id := m.task.ID
				return m, func() tea.Msg { return kanban.EditTaskMsg{TaskID: id} }
			}

		case key.Matches(msg, m.keys.Delete):
			if m.task != nil {
				id := m.task.ID
				return m, func() tea.Msg { return kanban.DeleteTaskMsg{TaskID: id} }
			}

		case key.Matches(msg, m.keys.ToggleDone):
			if m.task != nil {
				id := m.task.ID
				return m, func() tea.Msg { return kanban.ToggleDoneMsg{TaskID: id} }
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.task == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No task selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := m.task
	now := m.now()
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badgeLine := theme.StatusStyle(task.Status).Render(task.Status.Label())
	if task.IsOverdue(now) {
		badgeLine += "  " + theme.DueStyle(true, false).Render("OVERDUE")
	}
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(10)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		sections = append(sections, metaStyle.Render(label)+valStyle.Render(value))
	}

	if due, ok := task.Due(now.Location()); ok {
		text := due.Format("Mon 2 Jan 2006")
		if task.DueTime != "" {
			text += " " + task.DueTime
		}
		row("Due:", text)
	} else {
		row("Due:", "none")
	}
	if task.Reminder > 0 {
		text := taskform.ReminderLabel(task.Reminder)
		if at, ok := task.ReminderAt(now.Location()); ok {
			text += fmt.Sprintf(" (%s)", at.Format("Jan 2 15:04"))
		}
		row("Reminder:", text)
	}
	if !task.CreatedAt.IsZero() {
		row("Created:", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		row("Updated:", fmt.Sprintf("%s (%s)",
			task.UpdatedAt.Local().Format("2006-01-02 15:04"),
			kanban.RelativeTime(task.UpdatedAt, now)))
	}
	row("ID:", task.ID)

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(0, min(m.width-4, 80))))
	sections = append(sections, "", separator, "")

	descHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite)
	sections = append(sections, descHeaderStyle.Render("Description"))

	body := RenderMarkdown(task.Description, m.width-4)
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description")
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// RenderMarkdown renders a description as terminal markdown, falling back
// to the plain text when rendering fails.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(20, width)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// SetTask updates the task being displayed and re-renders the content.
func (m *Model) SetTask(t model.Task) {
	m.task = &t
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// TaskID returns the ID of the displayed task, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.ID
}

// Clear drops the displayed task.
func (m *Model) Clear() {
	m.task = nil
	m.viewport.SetContent("")
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.task != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
