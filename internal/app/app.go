package app

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	aiservice "github.com/nhle/taskboard/internal/ai"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reminder"
	"github.com/nhle/taskboard/internal/ui"
	aiview "github.com/nhle/taskboard/internal/ui/ai"
	"github.com/nhle/taskboard/internal/ui/command"
	"github.com/nhle/taskboard/internal/ui/confirm"
	"github.com/nhle/taskboard/internal/ui/detail"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/kanban"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/ui/toast"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewForm
	ViewAI
	ViewHelp
	ViewCommand
	ViewConfirm
)

// Confirm action kinds.
const (
	actionDelete    = "delete"
	actionClear     = "clear"
	actionClearDone = "clear-done"
)

// Model is the root Bubble Tea model that manages view routing, layout and
// the toast line.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	board        *board.Board
	keys         *keys.KeyMap
	kanban       kanban.Model
	detail       detail.Model
	formView     taskform.Model
	helpView     helpview.Model
	commandView  command.Model
	aiView       aiview.Model
	confirmView  confirm.Model
	toast        toast.Model
	reminders    *reminder.Scheduler
	ready        bool
}

// New creates the root model. s may be nil or key-less, in which case the AI
// panel explains how to configure a key.
func New(b *board.Board, s *aiservice.Suggester, cfg *model.AppConfig) Model {
	if cfg == nil {
		cfg = model.DefaultAppConfig()
	}
	k := keys.DefaultKeyMap()

	var sched *reminder.Scheduler
	if cfg.Reminders.Enabled {
		sched = reminder.New(b, time.Duration(cfg.Reminders.IntervalSec)*time.Second)
	}

	return Model{
		currentView: ViewBoard,
		board:       b,
		keys:        k,
		kanban:      kanban.New(b, k, 80, 24),
		detail:      detail.New(k, 80, 24),
		formView:    taskform.New(80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		aiView:      aiview.New(s, k, 80, 24),
		confirmView: confirm.New(80, 24),
		toast:       toast.New(time.Duration(cfg.Display.ToastSec)*time.Second, 80),
		reminders:   sched,
	}
}

// Init starts the reminder scheduler.
func (m Model) Init() tea.Cmd {
	if m.reminders == nil {
		return nil
	}
	return m.reminders.Start()
}

// Update feeds every message to the toast line, then routes it.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var toastCmd tea.Cmd
	m.toast, toastCmd = m.toast.Update(msg)

	next, cmd := m.update(msg)
	return next, tea.Batch(toastCmd, cmd)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.kanban.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.formView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		m.aiView.SetSize(contentWidth, contentHeight)
		m.confirmView.SetSize(contentWidth, contentHeight)
		m.toast.SetWidth(msg.Width)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case reminder.DueMsg:
		log.Printf("reminder fired for task %s", msg.TaskID)
		return m, tea.Batch(toast.Show(msg.Message), m.reminders.WaitForNext())

	case taskResultMsg:
		if msg.err != nil {
			return m, toast.ShowError(msg.err)
		}
		m.afterChange(msg.selectID)
		if msg.text == "" {
			return m, nil
		}
		return m, toast.Show(msg.text)

	// Board requests
	case kanban.SelectedTaskMsg:
		t, ok := m.board.Get(msg.TaskID)
		if !ok {
			return m, toast.ShowError(board.ErrNotFound)
		}
		m.detail.SetTask(t)
		m.currentView = ViewDetail
		return m, nil

	case kanban.NewTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewForm
		cmd := m.formView.StartCreate(msg.Status)
		return m, cmd

	case kanban.EditTaskMsg:
		t, ok := m.board.Get(msg.TaskID)
		if !ok {
			return m, toast.ShowError(board.ErrNotFound)
		}
		m.previousView = m.currentView
		m.currentView = ViewForm
		cmd := m.formView.StartEdit(t)
		return m, cmd

	case kanban.DeleteTaskMsg:
		t, ok := m.board.Get(msg.TaskID)
		if !ok {
			return m, toast.ShowError(board.ErrNotFound)
		}
		return m.ask("Delete this task?", t.Title, confirm.Action{Kind: actionDelete, TaskID: t.ID})

	case kanban.ToggleDoneMsg:
		return m, m.toggleDone(msg.TaskID)

	case kanban.MoveTaskMsg:
		return m, m.moveTask(msg.TaskID, msg.Status)

	case kanban.ShiftTaskMsg:
		return m, m.shiftTask(msg.TaskID, msg.Delta)

	case kanban.DropTaskMsg:
		return m, m.dropTask(msg.TaskID, msg.Status, msg.BeforeID)

	case kanban.FilterChangedMsg:
		return m, toast.Show(msg.Summary)

	// Form
	case taskform.TaskCreatedMsg:
		m.currentView = m.previousView
		return m, m.createTask(msg.Draft)

	case taskform.TaskUpdatedMsg:
		m.currentView = m.previousView
		return m, m.updateTask(msg.TaskID, msg.Draft)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	// Detail
	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	// Confirm
	case confirm.ResultMsg:
		m.currentView = m.previousView
		if !msg.Confirmed {
			return m, nil
		}
		switch msg.Action.Kind {
		case actionDelete:
			return m, m.deleteTask(msg.Action.TaskID)
		case actionClear:
			return m, m.clearAll()
		case actionClearDone:
			return m, m.clearDone()
		}
		return m, nil

	// Command palette
	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	// AI panel
	case aiview.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case aiview.AcceptMsg:
		m.currentView = ViewBoard
		return m, m.addDrafts(msg.Drafts)

	case aiview.SuggestionsMsg:
		waiting := m.aiView.Loading()
		var cmd tea.Cmd
		m.aiView, cmd = m.aiView.Update(msg)
		if waiting && msg.Err != nil {
			return m, tea.Batch(cmd, toast.ShowError(msg.Err))
		}
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.aiView, cmd = m.aiView.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.acceptsGlobalKeys()) {
			return m.quit()
		}

		if m.currentView == ViewHelp &&
			(key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back)) {
			m.currentView = m.previousView
			return m, nil
		}

		if m.acceptsGlobalKeys() {
			switch {
			case key.Matches(msg, m.keys.Help):
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil

			case key.Matches(msg, m.keys.Command):
				m.previousView = m.currentView
				m.currentView = ViewCommand
				cmd := m.commandView.Focus()
				return m, cmd

			case key.Matches(msg, m.keys.AI) && m.currentView == ViewBoard:
				m.currentView = ViewAI
				cmd := tea.Batch(m.aiView.Reset(), m.aiView.Init())
				return m, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// acceptsGlobalKeys reports whether single-letter shortcuts belong to the
// app rather than a text input.
func (m Model) acceptsGlobalKeys() bool {
	switch m.currentView {
	case ViewBoard:
		return !m.kanban.Searching() && !m.kanban.Grabbing()
	case ViewDetail:
		return true
	}
	return false
}

func (m Model) quit() (Model, tea.Cmd) {
	if m.reminders != nil {
		m.reminders.Stop()
	}
	return m, tea.Quit
}

func (m Model) ask(title, description string, action confirm.Action) (Model, tea.Cmd) {
	if m.currentView != ViewConfirm {
		m.previousView = m.currentView
	}
	m.currentView = ViewConfirm
	cmd := m.confirmView.Ask(title, description, action)
	return m, cmd
}

// afterChange refreshes every view that shows board state.
func (m *Model) afterChange(selectID string) {
	m.kanban.Refresh()
	if selectID != "" {
		m.kanban.SelectTask(selectID)
	}
	if id := m.detail.TaskID(); id != "" {
		if t, ok := m.board.Get(id); ok {
			m.detail.SetTask(t)
		} else {
			m.detail.Clear()
			if m.currentView == ViewDetail {
				m.currentView = ViewBoard
			}
		}
	}
	if m.reminders != nil {
		m.reminders.Refresh()
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.kanban, cmd = m.kanban.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewAI:
		m.aiView, cmd = m.aiView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewConfirm:
		m.confirmView, cmd = m.confirmView.Update(msg)
	}

	return m, cmd
}

// executeCommand runs a command palette entry.
func (m Model) executeCommand(c command.CommandMsg) (Model, tea.Cmd) {
	switch c.Name {
	case "export":
		return m, m.exportBoard(c.Arg, board.FormatJSON)
	case "export-csv":
		return m, m.exportBoard(c.Arg, board.FormatCSV)
	case "import":
		return m, m.importBoard(c.Arg)
	case "clear-done":
		n := m.board.Stats(time.Now()).ByStatus[model.StatusDone]
		if n == 0 {
			return m, toast.Show("No done tasks to clear")
		}
		return m.ask("Clear the Done column?", fmt.Sprintf("%d task(s) will be deleted.", n),
			confirm.Action{Kind: actionClearDone})
	case "clear":
		return m.ask("Delete every task?", fmt.Sprintf("%d task(s) will be deleted.", m.board.Len()),
			confirm.Action{Kind: actionClear})
	case "filter":
		df, err := board.ParseDateFilter(c.Arg)
		if err != nil {
			return m, toast.ShowError(err)
		}
		m.kanban.SetDateFilter(df)
		m.currentView = ViewBoard
		return m, toast.Show(m.filterToast())
	case "search":
		m.kanban.SetQuery(c.Arg)
		m.currentView = ViewBoard
		return m, toast.Show(m.filterToast())
	case "generate", "ai":
		m.currentView = ViewAI
		reset := m.aiView.Reset()
		if start := m.aiView.Start(c.Arg); start != nil {
			return m, start
		}
		return m, reset
	case "quit", "q":
		return m.quit()
	case "":
		return m, nil
	default:
		return m, toast.ShowError(fmt.Errorf("unknown command %q", c.Name))
	}
}

func (m Model) filterToast() string {
	if s := m.kanban.FilterSummary(); s != "" {
		return s
	}
	return "Showing all tasks"
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Taskboard", m.boardStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, m.toast.View(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.kanban.View()
	case ViewDetail:
		return m.detail.View()
	case ViewForm:
		return m.formView.View()
	case ViewAI:
		return m.aiView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewConfirm:
		return m.confirmView.View()
	default:
		return ""
	}
}

// boardStatus summarizes the columns for the header.
func (m Model) boardStatus() string {
	st := m.board.Stats(time.Now())
	parts := make([]string, 0, 4)
	for _, s := range model.Statuses() {
		parts = append(parts, fmt.Sprintf("%s %d", s.Label(), st.ByStatus[s]))
	}
	if st.Overdue > 0 {
		parts = append(parts, fmt.Sprintf("%d overdue", st.Overdue))
	}
	return strings.Join(parts, " · ")
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | d delete | x done | j/k scroll"
	case ViewForm:
		return "enter next | shift+tab back | esc cancel"
	case ViewAI:
		return "enter generate | esc close"
	case ViewConfirm:
		return "←/→ choose | enter confirm | esc cancel"
	default:
		switch {
		case m.kanban.Searching():
			return "type to filter | enter keep | esc clear"
		case m.kanban.Grabbing():
			return "h/j/k/l move | space/enter drop | esc cancel"
		}
		if summary := m.kanban.FilterSummary(); summary != "" {
			return summary + " | c clear"
		}
		return "q quit | ? help | n new | space grab | / search | f date | g generate | : command"
	}
}
