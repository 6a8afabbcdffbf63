package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	aiservice "github.com/nhle/taskboard/internal/ai"
	"github.com/nhle/taskboard/internal/credential"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// CloseMsg signals the parent to close the AI panel.
type CloseMsg struct{}

// SuggestionsMsg carries the outcome of one suggestion request.
type SuggestionsMsg struct {
	Goal   string
	Result aiservice.Result
	Err    error
}

// AcceptMsg asks the parent to add the suggested drafts to the board.
type AcceptMsg struct {
	Drafts   []model.Draft
	Fallback bool
}

type phase int

const (
	phaseInput phase = iota
	phaseLoading
	phaseReview
)

// Model is the AI panel: a goal input, a spinner while the request runs, and
// a review list of the suggested tasks.
type Model struct {
	suggester *aiservice.Suggester
	input     textarea.Model
	spinner   spinner.Model
	viewport  viewport.Model
	phase     phase
	goal      string
	result    aiservice.Result
	err       error
	keys      *keys.KeyMap
	width     int
	height    int
}

// New creates a new AI panel model. A nil or key-less suggester makes the
// panel show configuration instructions instead.
func New(s *aiservice.Suggester, k *keys.KeyMap, width, height int) Model {
	ta := textarea.New()
	ta.Placeholder = "Describe a goal, e.g. \"plan a team offsite\""
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.SetWidth(width - 6)
	ta.SetHeight(3)
	ta.CharLimit = 500
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	vp := viewport.New(width-6, max(4, height-10))
	vp.Style = lipgloss.NewStyle()

	return Model{
		suggester: s,
		input:     ta,
		spinner:   sp,
		viewport:  vp,
		keys:      k,
		width:     width,
		height:    height,
	}
}

// Enabled reports whether suggestions can be requested.
func (m Model) Enabled() bool {
	return m.suggester != nil && m.suggester.Enabled()
}

// Init returns the initial command for the AI panel.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// Loading reports whether a request is in flight.
func (m Model) Loading() bool {
	return m.phase == phaseLoading
}

// Start submits goal directly, as the palette's generate command does.
func (m *Model) Start(goal string) tea.Cmd {
	goal = strings.TrimSpace(goal)
	if goal == "" || !m.Enabled() {
		return nil
	}
	m.input.SetValue(goal)
	return m.submit(goal)
}

// Reset returns the panel to an empty goal input.
func (m *Model) Reset() tea.Cmd {
	m.phase = phaseInput
	m.goal = ""
	m.result = aiservice.Result{}
	m.err = nil
	m.input.Reset()
	return m.input.Focus()
}

// Update handles messages for the AI panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SuggestionsMsg:
		if msg.Goal != m.goal || m.phase != phaseLoading {
			return m, nil
		}
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err != nil {
			m.phase = phaseInput
			cmd := m.input.Focus()
			return m, cmd
		}
		m.phase = phaseReview
		m.refreshViewport()
		return m, nil

	case spinner.TickMsg:
		if m.phase != phaseLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKeyMsg processes keyboard input for the AI panel.
func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch m.phase {
	case phaseLoading:
		if msg.String() == "esc" {
			m.phase = phaseInput
			m.goal = ""
			cmd := m.input.Focus()
			return m, cmd
		}
		return m, nil

	case phaseReview:
		switch msg.String() {
		case "enter", "a", "y":
			drafts := m.result.Drafts()
			fallback := m.result.Fallback
			return m, func() tea.Msg {
				return AcceptMsg{Drafts: drafts, Fallback: fallback}
			}
		case "r":
			m.phase = phaseInput
			cmd := m.input.Focus()
			return m, cmd
		case "esc":
			return m, func() tea.Msg { return CloseMsg{} }
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc":
		return m, func() tea.Msg { return CloseMsg{} }

	case "enter":
		if !m.Enabled() {
			return m, nil
		}
		goal := strings.TrimSpace(m.input.Value())
		if goal == "" {
			return m, nil
		}
		cmd := m.submit(goal)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit(goal string) tea.Cmd {
	m.phase = phaseLoading
	m.goal = goal
	m.err = nil
	m.input.Blur()
	return tea.Batch(m.spinner.Tick, suggest(m.suggester, goal))
}

// suggest returns a command that runs one suggestion request.
func suggest(s *aiservice.Suggester, goal string) tea.Cmd {
	return func() tea.Msg {
		res, err := s.Suggest(context.Background(), goal, 0)
		return SuggestionsMsg{Goal: goal, Result: res, Err: err}
	}
}

func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderSuggestions())
	m.viewport.GotoTop()
}

func (m Model) renderSuggestions() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	descStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(max(20, m.width-10))

	var lines []string
	if m.result.Fallback {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render("The reply was not a task list; it will be added as a single task."), "")
	}
	for i, s := range m.result.Suggestions {
		lines = append(lines, titleStyle.Render(fmt.Sprintf("%d. %s", i+1, s.Title)))
		if s.Description != "" {
			lines = append(lines, descStyle.Render("   "+s.Description))
		}
	}
	return strings.Join(lines, "\n")
}

// View renders the AI panel.
func (m Model) View() string {
	if !m.Enabled() {
		return m.renderNoAPIKey()
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	var body string
	switch m.phase {
	case phaseLoading:
		body = m.spinner.View() + " Asking for tasks toward: " + m.goal

	case phaseReview:
		hint := theme.HelpStyle.Render(fmt.Sprintf(
			"enter add %d task(s) to To Do • r edit goal • esc cancel",
			len(m.result.Suggestions)))
		body = lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), "", hint)

	default:
		parts := []string{m.input.View(), ""}
		if m.err != nil {
			parts = append(parts, theme.ToastErrorStyle.Render(describeError(m.err)), "")
		}
		parts = append(parts, theme.HelpStyle.Render("enter generate • esc close"))
		body = lipgloss.JoinVertical(lipgloss.Left, parts...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Generate Tasks"),
		body,
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

func describeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out. Try again."
	}
	return "Generation failed: " + err.Error()
}

// renderNoAPIKey shows how to configure the API key.
func (m Model) renderNoAPIKey() string {
	style := lipgloss.NewStyle().
		Width(m.width - 8).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	msg := "Task generation needs an OpenAI API key.\n\n" +
		"Set the " + credential.OpenAIKeyEnv + " environment variable (a .env file works),\n" +
		"or store it in the system keyring:\n" +
		"  taskboard key set\n\n" +
		"Press Esc to go back."

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(max(6, m.height-4)).
		Render(style.Render(msg))
}

// SetSize updates the AI panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 6)
	m.viewport.Width = width - 6
	m.viewport.Height = max(4, height-10)
	if m.phase == phaseReview {
		m.refreshViewport()
	}
}
