package taskform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// TaskCreatedMsg is dispatched when the create form is submitted.
type TaskCreatedMsg struct {
	Draft model.Draft
}

// TaskUpdatedMsg is dispatched when the edit form is submitted.
type TaskUpdatedMsg struct {
	TaskID string
	Draft  model.Draft
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// reminderChoices are the offsets offered in the form, in minutes.
var reminderChoices = []int{0, 5, 15, 30, 60, 120, 24 * 60}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	status      model.Status
	dueDate     string
	dueTime     string
	reminder    int
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editID   string
	width    int
	height   int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{status: model.StatusTodo},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new task in the given column.
func (m *Model) StartCreate(status model.Status) tea.Cmd {
	if !status.IsValid() {
		status = model.StatusTodo
	}
	m.editMode = false
	m.editID = ""
	*m.fb = formBindings{status: status}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form with an existing task.
func (m *Model) StartEdit(t model.Task) tea.Cmd {
	m.editMode = true
	m.editID = t.ID
	*m.fb = formBindings{
		title:       t.Title,
		description: t.Description,
		status:      t.Status,
		dueDate:     t.DueDate,
		dueTime:     t.DueTime,
		reminder:    t.Reminder,
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Editing reports whether the form edits an existing task.
func (m Model) Editing() bool {
	return m.editMode
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editMode {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	statusOpts := make([]huh.Option[model.Status], 0, 3)
	for _, st := range model.Statuses() {
		statusOpts = append(statusOpts, huh.NewOption(st.Label(), st))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			huh.NewSelect[model.Status]().
				Title("Column").
				Options(statusOpts...).
				Value(&m.fb.status),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Due Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.dueDate).
				Validate(validateOptionalDate),
			huh.NewInput().
				Title("Due Time").
				Placeholder("HH:MM (optional, needs a date)").
				Value(&m.fb.dueTime).
				Validate(m.validateOptionalTime),
			huh.NewSelect[int]().
				Title("Reminder").
				Options(reminderOptions(m.fb.reminder)...).
				Value(&m.fb.reminder),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight()).WithKeyMap(keys.FormKeyMap())
}

// reminderOptions lists the preset offsets plus current when it is custom.
func reminderOptions(current int) []huh.Option[int] {
	choices := reminderChoices
	custom := current > 0
	for _, c := range choices {
		if c == current {
			custom = false
		}
	}
	opts := make([]huh.Option[int], 0, len(choices)+1)
	for _, c := range choices {
		opts = append(opts, huh.NewOption(ReminderLabel(c), c))
	}
	if custom {
		opts = append(opts, huh.NewOption(ReminderLabel(current), current))
	}
	return opts
}

// ReminderLabel describes a reminder offset in minutes.
func ReminderLabel(minutes int) string {
	switch {
	case minutes <= 0:
		return "None"
	case minutes%(24*60) == 0:
		return fmt.Sprintf("%dd before", minutes/(24*60))
	case minutes%60 == 0:
		return fmt.Sprintf("%dh before", minutes/60)
	default:
		return fmt.Sprintf("%dm before", minutes)
	}
}

func (m Model) handleSubmit() tea.Cmd {
	d := model.Draft{
		Title:       m.fb.title,
		Description: m.fb.description,
		Status:      m.fb.status,
		DueDate:     strings.TrimSpace(m.fb.dueDate),
		DueTime:     strings.TrimSpace(m.fb.dueTime),
		Reminder:    m.fb.reminder,
	}

	if m.editMode {
		id := m.editID
		return func() tea.Msg { return TaskUpdatedMsg{TaskID: id, Draft: d} }
	}
	return func() tea.Msg { return TaskCreatedMsg{Draft: d} }
}

func (m Model) formWidth() int {
	return max(40, min(100, m.width-4))
}

func (m Model) formHeight() int {
	return max(10, m.height-4)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}

func (m *Model) validateOptionalTime(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := time.Parse(model.TimeLayout, s); err != nil {
		return fmt.Errorf("invalid time format, use HH:MM")
	}
	if strings.TrimSpace(m.fb.dueDate) == "" {
		return fmt.Errorf("set a due date first")
	}
	return nil
}
