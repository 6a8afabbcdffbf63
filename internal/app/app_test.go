package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	aiservice "github.com/nhle/taskboard/internal/ai"
	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reminder"
	"github.com/nhle/taskboard/internal/ui/command"
	"github.com/nhle/taskboard/internal/ui/confirm"
	"github.com/nhle/taskboard/internal/ui/taskform"
	"github.com/nhle/taskboard/internal/ui/toast"
	"github.com/nhle/taskboard/tests/testutil"
)

// settle bounds how long a command may take before its message is dropped.
// Cursor blinks and toast expiry are slower than this and never arrive.
const settle = 150 * time.Millisecond

type harness struct {
	t    *testing.T
	m    Model
	b    *board.Board
	quit bool
}

func newHarness(t *testing.T, s *aiservice.Suggester, tasks ...model.Task) *harness {
	t.Helper()
	b := board.New(testutil.NewTestStore(t))
	if err := b.Replace(context.Background(), tasks); err != nil {
		t.Fatalf("seeding board: %v", err)
	}

	cfg := model.DefaultAppConfig()
	cfg.Reminders.Enabled = false
	m := New(b, s, cfg)
	m.toast = toast.New(time.Hour, 120)
	m.kanban.Refresh()

	h := &harness{t: t, m: m, b: b}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	return h
}

// send delivers msg and then every message its commands produce.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	queue := []tea.Msg{msg}
	for i := 0; len(queue) > 0 && i < 100; i++ {
		next := queue[0]
		queue = queue[1:]
		switch next.(type) {
		case tea.QuitMsg:
			h.quit = true
			continue
		case spinner.TickMsg:
			continue
		}
		mdl, cmd := h.m.Update(next)
		h.m = mdl.(Model)
		queue = append(queue, collect(cmd)...)
	}
}

func (h *harness) press(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		h.send(keyMsg(k))
	}
}

func (h *harness) task(id string) model.Task {
	h.t.Helper()
	tk, ok := h.b.Get(id)
	if !ok {
		h.t.Fatalf("task %s not on board", id)
	}
	return tk
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(settle):
		return nil
	}
}

func seed(id, title string, status model.Status) model.Task {
	now := time.Now().UTC()
	return model.Task{ID: id, Title: title, Status: status, CreatedAt: now, UpdatedAt: now}
}

func TestCreateTaskFromForm(t *testing.T) {
	h := newHarness(t, nil)

	h.press("n")
	if h.m.currentView != ViewForm {
		t.Fatalf("view = %v, want form", h.m.currentView)
	}

	h.send(taskform.TaskCreatedMsg{Draft: model.Draft{Title: "Write docs", Status: model.StatusTodo}})

	if h.m.currentView != ViewBoard {
		t.Fatalf("view = %v, want board", h.m.currentView)
	}
	tasks := h.b.Tasks()
	if len(tasks) != 1 || tasks[0].Title != "Write docs" {
		t.Fatalf("tasks = %+v", tasks)
	}
	if got := h.m.toast.Text(); got != `Added "Write docs"` {
		t.Fatalf("toast = %q", got)
	}
	if sel, ok := h.m.kanban.SelectedTask(); !ok || sel.ID != tasks[0].ID {
		t.Fatalf("new task not selected: %+v", sel)
	}
}

func TestFormCancelKeepsBoard(t *testing.T) {
	h := newHarness(t, nil)
	h.press("n")
	h.send(taskform.CancelMsg{})
	if h.m.currentView != ViewBoard || h.b.Len() != 0 {
		t.Fatalf("view = %v, len = %d", h.m.currentView, h.b.Len())
	}
}

func TestMoveRightUpdatesStatus(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))

	h.press("L")

	if got := h.task("a").Status; got != model.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got)
	}
	if sel, ok := h.m.kanban.SelectedTask(); !ok || sel.ID != "a" {
		t.Fatalf("selection did not follow the card")
	}
}

func TestToggleDone(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))

	h.press("x")
	if got := h.task("a").Status; got != model.StatusDone {
		t.Fatalf("status = %s, want done", got)
	}
	h.press("x")
	if got := h.task("a").Status; got != model.StatusTodo {
		t.Fatalf("status = %s, want todo", got)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo), seed("b", "Beta", model.StatusTodo))

	h.press("d")
	if h.m.currentView != ViewConfirm {
		t.Fatalf("view = %v, want confirm", h.m.currentView)
	}
	action := h.m.confirmView.Action()
	if action.Kind != actionDelete || action.TaskID != "a" {
		t.Fatalf("action = %+v", action)
	}

	h.send(confirm.ResultMsg{Action: action, Confirmed: false})
	if h.b.Len() != 2 || h.m.currentView != ViewBoard {
		t.Fatalf("declined delete changed the board: len=%d view=%v", h.b.Len(), h.m.currentView)
	}

	h.press("d")
	h.send(confirm.ResultMsg{Action: h.m.confirmView.Action(), Confirmed: true})
	if h.b.Len() != 1 {
		t.Fatalf("len = %d, want 1", h.b.Len())
	}
	if _, ok := h.b.Get("a"); ok {
		t.Fatalf("wrong task deleted")
	}
}

func TestGrabAndDropAcrossColumns(t *testing.T) {
	h := newHarness(t, nil,
		seed("a", "Alpha", model.StatusTodo),
		seed("b", "Beta", model.StatusInProgress),
		seed("c", "Gamma", model.StatusInProgress),
	)

	h.press("space", "l", "j", "space")

	if got := h.task("a").Status; got != model.StatusInProgress {
		t.Fatalf("status = %s, want in_progress", got)
	}
	var order []string
	for _, tk := range h.b.Column(model.StatusInProgress, board.Filter{}) {
		order = append(order, tk.ID)
	}
	if strings.Join(order, ",") != "b,a,c" {
		t.Fatalf("order = %v, want b,a,c", order)
	}
}

func TestGrabCancel(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))
	h.press("space", "l", "esc")
	if got := h.task("a").Status; got != model.StatusTodo {
		t.Fatalf("status = %s, want todo", got)
	}
	if h.m.kanban.Grabbing() {
		t.Fatalf("still grabbing")
	}
}

func TestSearchTypingDoesNotQuit(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Quarterly report", model.StatusTodo), seed("b", "Groceries", model.StatusTodo))

	h.press("/", "q", "u", "a")
	if h.quit {
		t.Fatalf("typing q in search quit the app")
	}
	if got := h.m.kanban.Filter().Query; got != "qua" {
		t.Fatalf("query = %q", got)
	}
	if sel, ok := h.m.kanban.SelectedTask(); !ok || sel.ID != "a" {
		t.Fatalf("filter did not narrow the column")
	}

	h.press("esc")
	if h.m.kanban.Filter().Active() {
		t.Fatalf("esc should clear the search")
	}
}

func TestQuitKey(t *testing.T) {
	h := newHarness(t, nil)
	h.press("q")
	if !h.quit {
		t.Fatalf("q did not quit")
	}
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t, nil)
	h.press("?")
	if h.m.currentView != ViewHelp {
		t.Fatalf("view = %v, want help", h.m.currentView)
	}
	h.press("?")
	if h.m.currentView != ViewBoard {
		t.Fatalf("view = %v, want board", h.m.currentView)
	}
}

func TestDetailEditReturnsToDetail(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))

	h.press("enter")
	if h.m.currentView != ViewDetail || h.m.detail.TaskID() != "a" {
		t.Fatalf("view = %v, detail = %q", h.m.currentView, h.m.detail.TaskID())
	}

	h.press("e")
	if h.m.currentView != ViewForm || !h.m.formView.Editing() {
		t.Fatalf("edit form not open")
	}

	h.send(taskform.TaskUpdatedMsg{TaskID: "a", Draft: model.Draft{Title: "Alpha 2", Status: model.StatusTodo}})
	if h.m.currentView != ViewDetail {
		t.Fatalf("view = %v, want detail", h.m.currentView)
	}
	if got := h.task("a").Title; got != "Alpha 2" {
		t.Fatalf("title = %q", got)
	}
	if !strings.Contains(h.m.View(), "Alpha 2") {
		t.Fatalf("detail not refreshed")
	}

	h.press("esc")
	if h.m.currentView != ViewBoard {
		t.Fatalf("view = %v, want board", h.m.currentView)
	}
}

func TestDeleteFromDetailReturnsToBoard(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))
	h.press("enter", "d")
	h.send(confirm.ResultMsg{Action: h.m.confirmView.Action(), Confirmed: true})
	if h.m.currentView != ViewBoard || h.b.Len() != 0 {
		t.Fatalf("view = %v, len = %d", h.m.currentView, h.b.Len())
	}
}

func TestFailedOperationShowsErrorToast(t *testing.T) {
	h := newHarness(t, nil)
	h.send(taskform.TaskCreatedMsg{Draft: model.Draft{Title: "  "}})
	if h.m.toast.Kind() != toast.Error || h.m.toast.Text() == "" {
		t.Fatalf("toast = %q kind=%v", h.m.toast.Text(), h.m.toast.Kind())
	}
}

func TestCommandExportThenImport(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo), seed("b", "Beta", model.StatusDone))
	dir := t.TempDir()

	for _, tc := range []struct{ name, file string }{
		{"export", "board.json"},
		{"export-csv", "board.csv"},
	} {
		path := filepath.Join(dir, tc.file)
		h.press(":")
		if h.m.currentView != ViewCommand {
			t.Fatalf("view = %v, want command", h.m.currentView)
		}
		h.send(command.CommandMsg{Name: tc.name, Arg: path})
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if !strings.HasPrefix(h.m.toast.Text(), "Exported 2 task(s)") {
			t.Fatalf("toast = %q", h.m.toast.Text())
		}
	}

	for _, file := range []string{"board.json", "board.csv"} {
		if err := h.b.Clear(context.Background()); err != nil {
			t.Fatalf("clear: %v", err)
		}
		h.send(command.CommandMsg{Name: "import", Arg: filepath.Join(dir, file)})
		if h.b.Len() != 2 {
			t.Fatalf("%s: len = %d, want 2", file, h.b.Len())
		}
		if got := h.task("b").Status; got != model.StatusDone {
			t.Fatalf("%s: status = %s", file, got)
		}
	}
}

func TestCommandImportRejectsBadFile(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo))
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"title":""}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	h.send(command.CommandMsg{Name: "import", Arg: path})

	if h.m.toast.Kind() != toast.Error {
		t.Fatalf("expected error toast, got %q", h.m.toast.Text())
	}
	if h.b.Len() != 1 {
		t.Fatalf("board changed by rejected import")
	}
}

func TestCommandFilterAndUnknown(t *testing.T) {
	h := newHarness(t, nil)

	h.send(command.CommandMsg{Name: "filter", Arg: "overdue"})
	if got := h.m.kanban.Filter().Date; got != board.DateOverdue {
		t.Fatalf("date filter = %s", got)
	}

	h.send(command.CommandMsg{Name: "frobnicate"})
	if h.m.toast.Kind() != toast.Error || !strings.Contains(h.m.toast.Text(), "frobnicate") {
		t.Fatalf("toast = %q", h.m.toast.Text())
	}
}

func TestCommandClearDoneConfirms(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo), seed("b", "Beta", model.StatusDone))

	h.send(command.CommandMsg{Name: "clear-done"})
	if h.m.currentView != ViewConfirm {
		t.Fatalf("view = %v, want confirm", h.m.currentView)
	}
	h.send(confirm.ResultMsg{Action: h.m.confirmView.Action(), Confirmed: true})
	if h.b.Len() != 1 {
		t.Fatalf("len = %d, want 1", h.b.Len())
	}
	if got := h.m.toast.Text(); got != "Removed 1 done task(s)" {
		t.Fatalf("toast = %q", got)
	}
}

func TestGenerateAddsSuggestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `[{"title":"Book venue","description":"call around"},{"title":"Send invites"}]`
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)

	s := aiservice.New("sk-test", model.AIConfig{BaseURL: srv.URL, TimeoutSec: 5})
	h := newHarness(t, s)

	h.press("g")
	if h.m.currentView != ViewAI {
		t.Fatalf("view = %v, want ai", h.m.currentView)
	}
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("plan a party")})
	h.press("enter")
	h.press("enter")

	if h.m.currentView != ViewBoard {
		t.Fatalf("view = %v, want board", h.m.currentView)
	}
	tasks := h.b.Tasks()
	if len(tasks) != 2 || tasks[0].Title != "Book venue" || tasks[1].Title != "Send invites" {
		t.Fatalf("tasks = %+v", tasks)
	}
	for _, tk := range tasks {
		if tk.Status != model.StatusTodo {
			t.Fatalf("generated task in %s", tk.Status)
		}
	}
}

func TestGenerateWithoutKeyShowsInstructions(t *testing.T) {
	h := newHarness(t, aiservice.New("", model.AIConfig{}))
	h.press("g")
	if !strings.Contains(h.m.View(), "OPENAI_API_KEY") {
		t.Fatalf("missing configuration hint")
	}
	h.press("enter", "esc")
	if h.m.currentView != ViewBoard || h.b.Len() != 0 {
		t.Fatalf("view = %v, len = %d", h.m.currentView, h.b.Len())
	}
}

func TestReminderShowsToast(t *testing.T) {
	h := newHarness(t, nil)
	h.m.reminders = reminder.New(h.b, time.Hour)

	h.send(reminder.DueMsg{TaskID: "a", Title: "Alpha", Message: `Reminder: "Alpha" is due now`})

	if got := h.m.toast.Text(); got != `Reminder: "Alpha" is due now` {
		t.Fatalf("toast = %q", got)
	}
}

func TestViewShowsColumnCounts(t *testing.T) {
	h := newHarness(t, nil, seed("a", "Alpha", model.StatusTodo), seed("b", "Beta", model.StatusDone))
	view := h.m.View()
	for _, want := range []string{"Taskboard", "To Do 1", "Done 1", "Alpha", "Beta"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func columnOrder(b *board.Board, status model.Status) string {
	var ids []string
	for _, tk := range b.Column(status, board.Filter{}) {
		ids = append(ids, tk.ID)
	}
	return strings.Join(ids, ",")
}

func TestShiftKeysReorderColumn(t *testing.T) {
	h := newHarness(t, nil,
		seed("a", "Alpha", model.StatusTodo),
		seed("b", "Beta", model.StatusTodo),
		seed("c", "Gamma", model.StatusTodo),
	)

	h.press("J")
	if got := columnOrder(h.b, model.StatusTodo); got != "b,a,c" {
		t.Fatalf("after J order = %s, want b,a,c", got)
	}
	h.press("J")
	if got := columnOrder(h.b, model.StatusTodo); got != "b,c,a" {
		t.Fatalf("after J J order = %s, want b,c,a", got)
	}
	if sel, ok := h.m.kanban.SelectedTask(); !ok || sel.ID != "a" {
		t.Fatalf("selection did not follow the card: %+v", sel)
	}

	h.press("K")
	if got := columnOrder(h.b, model.StatusTodo); got != "b,a,c" {
		t.Fatalf("after K order = %s, want b,a,c", got)
	}
	if got := h.task("a").Status; got != model.StatusTodo {
		t.Fatalf("status = %s, want todo", got)
	}
}

func TestShiftKeysWithSearchSkipHiddenCards(t *testing.T) {
	h := newHarness(t, nil,
		seed("a", "Report draft", model.StatusTodo),
		seed("b", "Groceries", model.StatusTodo),
		seed("c", "Report review", model.StatusTodo),
	)

	h.press("/")
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("report")})
	h.press("enter")
	if sel, ok := h.m.kanban.SelectedTask(); !ok || sel.ID != "a" {
		t.Fatalf("selected = %+v, want a", sel)
	}

	// a swaps with the next visible card, not the hidden b.
	h.press("J")
	if got := columnOrder(h.b, model.StatusTodo); got != "b,c,a" {
		t.Fatalf("after J order = %s, want b,c,a", got)
	}

	h.press("K")
	if got := columnOrder(h.b, model.StatusTodo); got != "b,a,c" {
		t.Fatalf("after K order = %s, want b,a,c", got)
	}
	if got := h.m.kanban.Filter().Query; got != "report" {
		t.Fatalf("query = %q, filter should survive reordering", got)
	}
}

func TestGenerateFailureShowsErrorToast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
	}))
	t.Cleanup(srv.Close)

	s := aiservice.New("sk-test", model.AIConfig{BaseURL: srv.URL, TimeoutSec: 5})
	h := newHarness(t, s)

	h.press("g")
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("plan")})
	h.press("enter")

	if h.m.toast.Kind() != toast.Error || !strings.Contains(h.m.toast.Text(), "upstream down") {
		t.Fatalf("toast = %q kind=%v", h.m.toast.Text(), h.m.toast.Kind())
	}
	if h.m.currentView != ViewAI {
		t.Fatalf("view = %v, want ai", h.m.currentView)
	}
	if h.b.Len() != 0 {
		t.Fatalf("failed request added tasks")
	}
}
