// Package kanban renders the three-column board and turns keyboard input
// into card selection, movement and drag-and-drop requests.
package kanban

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// SelectedTaskMsg is sent when the user opens a card's detail view.
type SelectedTaskMsg struct{ TaskID string }

// NewTaskMsg asks the parent to open the form for a new card in Status.
type NewTaskMsg struct{ Status model.Status }

// EditTaskMsg asks the parent to open the edit form for a card.
type EditTaskMsg struct{ TaskID string }

// DeleteTaskMsg asks the parent to confirm and delete a card.
type DeleteTaskMsg struct{ TaskID string }

// ToggleDoneMsg asks the parent to flip a card between Done and To Do.
type ToggleDoneMsg struct{ TaskID string }

// MoveTaskMsg asks the parent to move a card to the end of another column.
type MoveTaskMsg struct {
	TaskID string
	Status model.Status
}

// ShiftTaskMsg asks the parent to move a card up or down in its column.
type ShiftTaskMsg struct {
	TaskID string
	Delta  int
}

// DropTaskMsg is the end of a drag: put TaskID into Status just above
// BeforeID, or at the end of the column when BeforeID is empty.
type DropTaskMsg struct {
	TaskID   string
	Status   model.Status
	BeforeID string
}

// FilterChangedMsg reports a new filter so the parent can show a toast.
type FilterChangedMsg struct{ Summary string }

// grab tracks a card being dragged. col/index is where it would land,
// counted among the target column's visible cards without the grabbed one.
type grab struct {
	task  model.Task
	col   int
	index int
}

// Model is the board view component.
type Model struct {
	board       *board.Board
	keys        *keys.KeyMap
	columns     [][]model.Task
	filter      board.Filter
	focus       int
	cursor      [3]int
	grab        *grab
	searchMode  bool
	searchInput textinput.Model
	now         func() time.Time
	width       int
	height      int
}

// New creates a board view over b.
func New(b *board.Board, k *keys.KeyMap, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "search title or description..."
	si.Prompt = "/ "
	si.Width = max(10, width-4)

	m := Model{
		board:       b,
		keys:        k,
		filter:      board.Filter{Date: board.DateAll},
		searchInput: si,
		now:         time.Now,
		width:       width,
		height:      height,
	}
	m.Refresh()
	return m
}

// Refresh re-reads the board through the current filter and clamps the
// cursors. Call it after every board change.
func (m *Model) Refresh() {
	f := m.filter
	f.Now = m.now()
	cols := m.board.Columns(f)

	m.columns = make([][]model.Task, 0, len(m.cursor))
	for i, st := range model.Statuses() {
		m.columns = append(m.columns, cols[st])
		m.cursor[i] = max(0, min(m.cursor[i], len(cols[st])-1))
	}

	if m.grab != nil {
		if _, ok := m.board.Get(m.grab.task.ID); !ok {
			m.grab = nil
		} else {
			m.grab.index = min(m.grab.index, len(m.targetColumn(m.grab.col)))
		}
	}
}

// SelectTask moves the focus and cursor onto id if it is visible.
func (m *Model) SelectTask(id string) {
	for c, col := range m.columns {
		for i, t := range col {
			if t.ID == id {
				m.focus = c
				m.cursor[c] = i
				return
			}
		}
	}
}

// SelectedTask returns the card under the cursor.
func (m Model) SelectedTask() (model.Task, bool) {
	col := m.columns[m.focus]
	if len(col) == 0 {
		return model.Task{}, false
	}
	return col[m.cursor[m.focus]], true
}

// FocusedStatus returns the status of the focused column.
func (m Model) FocusedStatus() model.Status {
	return model.Statuses()[m.focus]
}

// Filter returns the active filter.
func (m Model) Filter() board.Filter {
	return m.filter
}

// Searching reports whether the search box has input focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Grabbing reports whether a card is being dragged.
func (m Model) Grabbing() bool {
	return m.grab != nil
}

// SetQuery sets the search text.
func (m *Model) SetQuery(q string) {
	m.filter.Query = strings.TrimSpace(q)
	m.searchInput.SetValue(m.filter.Query)
	m.Refresh()
}

// SetDateFilter sets the date filter.
func (m *Model) SetDateFilter(df board.DateFilter) {
	m.filter.Date = df
	m.Refresh()
}

// ClearFilters removes the search text and date filter.
func (m *Model) ClearFilters() {
	m.filter = board.Filter{Date: board.DateAll}
	m.searchInput.Reset()
	m.Refresh()
}

// FilterSummary describes the active filter, or "" when nothing is hidden.
func (m Model) FilterSummary() string {
	var parts []string
	if m.filter.Query != "" {
		parts = append(parts, fmt.Sprintf("search %q", m.filter.Query))
	}
	if m.filter.Date != "" && m.filter.Date != board.DateAll {
		parts = append(parts, m.filter.Date.Label())
	}
	return strings.Join(parts, " · ")
}

// Init returns the initial command for the board view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.searchMode {
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch {
	case m.searchMode:
		return m.handleSearchKeys(keyMsg)
	case m.grab != nil:
		return m.handleGrabKeys(keyMsg)
	default:
		return m.handleNormalKeys(keyMsg)
	}
}

// handleSearchKeys processes key input while the search box is focused.
// The board filters live as the query is typed.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		m.SetQuery(m.searchInput.Value())
		return m, m.filterChanged()

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.SetQuery("")
		return m, m.filterChanged()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.filter.Query = strings.TrimSpace(m.searchInput.Value())
	m.Refresh()
	return m, cmd
}

// handleNormalKeys processes navigation and card actions.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	task, hasTask := m.SelectedTask()

	switch {
	case key.Matches(msg, m.keys.MoveLeft):
		if hasTask && m.focus > 0 {
			return m, emit(MoveTaskMsg{TaskID: task.ID, Status: model.Statuses()[m.focus-1]})
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveRight):
		if hasTask && m.focus < len(m.columns)-1 {
			return m, emit(MoveTaskMsg{TaskID: task.ID, Status: model.Statuses()[m.focus+1]})
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveUp):
		if hasTask && m.cursor[m.focus] > 0 {
			return m, emit(m.shiftMsg(task, -1))
		}
		return m, nil

	case key.Matches(msg, m.keys.MoveDown):
		if hasTask && m.cursor[m.focus] < len(m.columns[m.focus])-1 {
			return m, emit(m.shiftMsg(task, 1))
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		m.focus = max(0, m.focus-1)
		return m, nil

	case key.Matches(msg, m.keys.Right):
		m.focus = min(len(m.columns)-1, m.focus+1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.cursor[m.focus] = max(0, m.cursor[m.focus]-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor[m.focus] = max(0, min(len(m.columns[m.focus])-1, m.cursor[m.focus]+1))
		return m, nil

	case key.Matches(msg, m.keys.Grab):
		if hasTask {
			m.grab = &grab{task: task, col: m.focus, index: m.cursor[m.focus]}
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if hasTask {
			return m, emit(SelectedTaskMsg{TaskID: task.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		return m, emit(NewTaskMsg{Status: m.FocusedStatus()})

	case key.Matches(msg, m.keys.Edit):
		if hasTask {
			return m, emit(EditTaskMsg{TaskID: task.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if hasTask {
			return m, emit(DeleteTaskMsg{TaskID: task.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleDone):
		if hasTask {
			return m, emit(ToggleDoneMsg{TaskID: task.ID})
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.filter.Query)
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.CycleDate):
		m.SetDateFilter(m.filter.Date.Next())
		return m, m.filterChanged()

	case key.Matches(msg, m.keys.ClearFilters):
		m.ClearFilters()
		return m, m.filterChanged()
	}

	return m, nil
}

// shiftMsg builds the request for K/J. With a filter active the neighbour in
// the visible column may not be the neighbour on the board, so the move is
// expressed as a drop relative to the visible card.
func (m Model) shiftMsg(task model.Task, delta int) tea.Msg {
	if !m.filter.Active() {
		return ShiftTaskMsg{TaskID: task.ID, Delta: delta}
	}
	col := m.columns[m.focus]
	i := m.cursor[m.focus]
	before := ""
	if delta < 0 {
		before = col[i-1].ID
	} else if i+2 < len(col) {
		before = col[i+2].ID
	}
	return DropTaskMsg{TaskID: task.ID, Status: task.Status, BeforeID: before}
}

// handleGrabKeys moves the drop target while a card is grabbed.
func (m Model) handleGrabKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	g := m.grab
	switch {
	case key.Matches(msg, m.keys.Back):
		m.grab = nil
		return m, nil

	case key.Matches(msg, m.keys.Drop):
		target := m.targetColumn(g.col)
		before := ""
		if g.index < len(target) {
			before = target[g.index].ID
		}
		drop := DropTaskMsg{
			TaskID:   g.task.ID,
			Status:   model.Statuses()[g.col],
			BeforeID: before,
		}
		m.grab = nil
		m.focus = g.col
		return m, emit(drop)

	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.MoveLeft):
		if g.col > 0 {
			g.col--
			g.index = min(g.index, len(m.targetColumn(g.col)))
		}

	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.MoveRight):
		if g.col < len(m.columns)-1 {
			g.col++
			g.index = min(g.index, len(m.targetColumn(g.col)))
		}

	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.MoveUp):
		g.index = max(0, g.index-1)

	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.MoveDown):
		g.index = min(len(m.targetColumn(g.col)), g.index+1)
	}
	m.focus = g.col
	return m, nil
}

// targetColumn returns the visible cards of column c without the grabbed one.
func (m Model) targetColumn(c int) []model.Task {
	if m.grab == nil {
		return m.columns[c]
	}
	id := m.grab.task.ID
	return slices.DeleteFunc(slices.Clone(m.columns[c]), func(t model.Task) bool { return t.ID == id })
}

func (m Model) filterChanged() tea.Cmd {
	summary := m.FilterSummary()
	if summary == "" {
		summary = "Showing all tasks"
	}
	return emit(FilterChangedMsg{Summary: summary})
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = max(10, width-4)
}

// View renders the board.
func (m Model) View() string {
	now := m.now()
	var top string
	if m.searchMode {
		top = lipgloss.NewStyle().Padding(0, 1).Render(m.searchInput.View())
	} else {
		top = m.renderFilterLine()
	}

	colWidth := max(12, m.width/len(m.columns))
	colHeight := max(cardHeight+2, m.height-lipgloss.Height(top))

	rendered := make([]string, len(m.columns))
	for c := range m.columns {
		rendered[c] = m.renderColumn(c, colWidth, colHeight, now)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		top,
		lipgloss.JoinHorizontal(lipgloss.Top, rendered...),
	)
}

func (m Model) renderFilterLine() string {
	style := lipgloss.NewStyle().Foreground(theme.ColorGray).Padding(0, 1)
	if m.grab != nil {
		return style.Foreground(theme.ColorMagenta).Render(
			fmt.Sprintf("Moving %q · arrows to place · space/enter drop · esc cancel", m.grab.task.Title))
	}
	if s := m.FilterSummary(); s != "" {
		return style.Foreground(theme.ColorYellow).Render("Filter: " + s + " · c clear")
	}
	return style.Render(board.DateAll.Label())
}

// renderColumn draws one column with its header and as many cards as fit,
// scrolled so the cursor (or drop target) stays visible.
func (m Model) renderColumn(c, width, height int, now time.Time) string {
	status := model.Statuses()[c]
	cards := m.columns[c]
	cursor := m.cursor[c]
	placeholder := -1
	if m.grab != nil {
		cards = m.targetColumn(c)
		cursor = -1
		if c == m.grab.col {
			placeholder = m.grab.index
			cards = slices.Insert(slices.Clone(cards), placeholder, m.grab.task)
			cursor = placeholder
		}
	}

	header := theme.StatusStyle(status).Render(fmt.Sprintf("%s (%d)", status.Label(), len(m.columns[c])))
	inner := width - 4

	var lines []string
	lines = append(lines, header, "")
	if len(cards) == 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).
			PaddingLeft(2).Render("empty"))
	}

	visible := max(1, (height-4)/cardHeight)
	offset := 0
	if cursor >= visible {
		offset = cursor - visible + 1
	}
	end := min(len(cards), offset+visible)
	for i := offset; i < end; i++ {
		state := cardNormal
		switch {
		case i == placeholder:
			state = cardGrabbed
		case c == m.focus && i == cursor && m.grab == nil:
			state = cardSelected
		}
		lines = append(lines, renderCard(cards[i], inner, state, now), "")
	}
	if end < len(cards) {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorGray).
			Render(fmt.Sprintf("  … %d more", len(cards)-end)))
	}

	style := theme.ColumnStyle
	switch {
	case m.grab != nil && c == m.grab.col:
		style = theme.DropTargetColumnStyle
	case c == m.focus:
		style = theme.FocusedColumnStyle
	}
	return style.
		Width(width - 2).
		Height(height - 2).
		MaxHeight(height).
		Render(strings.Join(lines, "\n"))
}
