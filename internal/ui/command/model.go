package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// CommandMsg is emitted when the user executes a command. Name is the first
// word, Arg the rest of the line.
type CommandMsg struct {
	Name string
	Arg  string
}

// CancelMsg is emitted when the palette is dismissed.
type CancelMsg struct{}

// Command describes one palette entry.
type Command struct {
	Name  string
	Usage string
	Help  string
}

var commands = []Command{
	{"export", "export <path>", "write the board as JSON"},
	{"export-csv", "export-csv <path>", "write the board as CSV"},
	{"import", "import <path>", "replace the board from a .json or .csv file"},
	{"clear-done", "clear-done", "delete every Done card"},
	{"clear", "clear", "delete every card"},
	{"filter", "filter <today|tomorrow|week|overdue|nodate|all>", "set the date filter"},
	{"search", "search <text>", "filter by title or description"},
	{"generate", "generate <goal>", "ask the AI for tasks toward a goal"},
	{"quit", "quit", "exit"},
}

// Commands returns the palette entries.
func Commands() []Command {
	out := make([]Command, len(commands))
	copy(out, commands)
	return out
}

// Parse splits a palette line into a CommandMsg.
func Parse(line string) CommandMsg {
	line = strings.TrimSpace(line)
	name, arg, _ := strings.Cut(line, " ")
	return CommandMsg{Name: strings.ToLower(name), Arg: strings.TrimSpace(arg)}
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.Name
	}
	ti.SetSuggestions(names)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if line != "" {
				return m, func() tea.Msg {
					return Parse(line)
				}
			}
			return m, nil

		case "esc":
			m.input.Reset()
			return m, func() tea.Msg { return CancelMsg{} }
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	title := titleStyle.Render("Command Palette")
	input := m.input.View()

	var hints []string
	typed, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(m.input.Value())), " ")
	for _, c := range commands {
		if strings.HasPrefix(c.Name, typed) {
			hints = append(hints, theme.HelpStyle.Render(c.Usage+"  "+c.Help))
		}
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, input, "", strings.Join(hints, "\n"))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
