// Package toast shows a one-line notification that clears itself.
package toast

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// Kind selects the toast styling.
type Kind int

const (
	Info Kind = iota
	Error
)

// ShowMsg asks the toast to display Text.
type ShowMsg struct {
	Text string
	Kind Kind
}

// expireMsg clears the toast it was scheduled for, unless a newer one replaced it.
type expireMsg struct {
	seq int
}

// Model is the toast line.
type Model struct {
	text     string
	kind     Kind
	seq      int
	duration time.Duration
	width    int
}

// New creates a toast that stays visible for d.
func New(d time.Duration, width int) Model {
	if d <= 0 {
		d = 3 * time.Second
	}
	return Model{duration: d, width: width}
}

// Show returns a command that displays an info toast.
func Show(text string) tea.Cmd {
	return func() tea.Msg { return ShowMsg{Text: text, Kind: Info} }
}

// ShowError returns a command that displays an error toast.
func ShowError(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	text := err.Error()
	return func() tea.Msg { return ShowMsg{Text: text, Kind: Error} }
}

// Update handles ShowMsg and expiry ticks.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ShowMsg:
		m.seq++
		m.text = msg.Text
		m.kind = msg.Kind
		seq := m.seq
		return m, tea.Tick(m.duration, func(time.Time) tea.Msg {
			return expireMsg{seq: seq}
		})

	case expireMsg:
		if msg.seq == m.seq {
			m.text = ""
		}
	}
	return m, nil
}

// Visible reports whether a toast is showing.
func (m Model) Visible() bool {
	return m.text != ""
}

// Text returns the current toast text.
func (m Model) Text() string {
	return m.text
}

// Kind returns the current toast kind.
func (m Model) Kind() Kind {
	return m.kind
}

// View renders the toast line, or an empty line.
func (m Model) View() string {
	if m.text == "" {
		return lipgloss.NewStyle().Width(m.width).Render("")
	}
	style := theme.ToastInfoStyle
	prefix := "✓ "
	if m.kind == Error {
		style = theme.ToastErrorStyle
		prefix = "✗ "
	}
	return style.Width(m.width).MaxHeight(1).Render(prefix + m.text)
}

// SetWidth updates the toast width.
func (m *Model) SetWidth(width int) {
	m.width = width
}
