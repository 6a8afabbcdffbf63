package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
)

// taskResultMsg is sent after a board operation finishes. Text is the
// success toast; SelectID, when set, is the card to focus afterwards.
type taskResultMsg struct {
	text     string
	selectID string
	err      error
}

func result(text, selectID string, err error) tea.Msg {
	if err != nil {
		log.Printf("board operation failed: %v", err)
	}
	return taskResultMsg{text: text, selectID: selectID, err: err}
}

// createTask adds a card from the form.
func (m *Model) createTask(d model.Draft) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.Add(context.Background(), d)
		return result(fmt.Sprintf("Added %q", t.Title), t.ID, err)
	}
}

// updateTask saves an edited card.
func (m *Model) updateTask(id string, d model.Draft) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.Update(context.Background(), id, d)
		return result(fmt.Sprintf("Updated %q", t.Title), t.ID, err)
	}
}

// deleteTask removes a card.
func (m *Model) deleteTask(id string) tea.Cmd {
	b := m.board
	t, _ := b.Get(id)
	return func() tea.Msg {
		err := b.Delete(context.Background(), id)
		return result(fmt.Sprintf("Deleted %q", t.Title), "", err)
	}
}

// moveTask puts a card at the end of another column.
func (m *Model) moveTask(id string, status model.Status) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.Move(context.Background(), id, status)
		return result(fmt.Sprintf("Moved %q to %s", t.Title, status.Label()), t.ID, err)
	}
}

// toggleDone flips a card between Done and To Do.
func (m *Model) toggleDone(id string) tea.Cmd {
	t, ok := m.board.Get(id)
	if !ok {
		return func() tea.Msg { return result("", "", board.ErrNotFound) }
	}
	target := model.StatusDone
	if t.Status == model.StatusDone {
		target = model.StatusTodo
	}
	return m.moveTask(id, target)
}

// shiftTask moves a card up or down inside its column.
func (m *Model) shiftTask(id string, delta int) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.Shift(context.Background(), id, delta)
		return result("", t.ID, err)
	}
}

// dropTask finishes a drag.
func (m *Model) dropTask(id string, status model.Status, beforeID string) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		t, err := b.DropBefore(context.Background(), id, status, beforeID)
		return result(fmt.Sprintf("Dropped %q in %s", t.Title, status.Label()), t.ID, err)
	}
}

// addDrafts adds the accepted AI suggestions.
func (m *Model) addDrafts(drafts []model.Draft) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		tasks, err := b.AddMany(context.Background(), drafts)
		selectID := ""
		if len(tasks) > 0 {
			selectID = tasks[0].ID
		}
		return result(fmt.Sprintf("Added %d generated task(s)", len(tasks)), selectID, err)
	}
}

// clearDone removes the Done column.
func (m *Model) clearDone() tea.Cmd {
	b := m.board
	return func() tea.Msg {
		n, err := b.ClearDone(context.Background())
		return result(fmt.Sprintf("Removed %d done task(s)", n), "", err)
	}
}

// clearAll empties the board.
func (m *Model) clearAll() tea.Cmd {
	b := m.board
	return func() tea.Msg {
		err := b.Clear(context.Background())
		return result("Board cleared", "", err)
	}
}

// exportBoard writes the board to path in format.
func (m *Model) exportBoard(path string, format board.Format) tea.Cmd {
	b := m.board
	if path == "" {
		path = "tasks." + string(format)
	}
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return result("", "", fmt.Errorf("creating export file: %w", err))
		}
		if err := b.Export(f, format); err != nil {
			f.Close()
			return result("", "", err)
		}
		if err := f.Close(); err != nil {
			return result("", "", fmt.Errorf("closing export file: %w", err))
		}
		abs, _ := filepath.Abs(path)
		if abs == "" {
			abs = path
		}
		return result(fmt.Sprintf("Exported %d task(s) to %s", b.Len(), abs), "", nil)
	}
}

// importBoard replaces the board with the file at path. The format is taken
// from the extension.
func (m *Model) importBoard(path string) tea.Cmd {
	b := m.board
	return func() tea.Msg {
		if path == "" {
			return result("", "", fmt.Errorf("import: no file given"))
		}
		f, err := os.Open(path)
		if err != nil {
			return result("", "", fmt.Errorf("opening import file: %w", err))
		}
		defer f.Close()

		n, err := b.Import(context.Background(), f, board.FormatFromPath(path))
		return result(fmt.Sprintf("Imported %d task(s) from %s", n, filepath.Base(path)), "", err)
	}
}
