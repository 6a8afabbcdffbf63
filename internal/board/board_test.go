package board_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/tests/testutil"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// sequentialIDs returns an ID generator yielding t1, t2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func newBoard(t *testing.T, s store.Store) *board.Board {
	t.Helper()
	if s == nil {
		s = testutil.NewTestStore(t)
	}
	return board.New(s,
		board.WithClock(func() time.Time { return testNow }),
		board.WithIDGenerator(sequentialIDs()),
	)
}

func mustAdd(t *testing.T, b *board.Board, title string, status model.Status) model.Task {
	t.Helper()
	task, err := b.Add(context.Background(), model.Draft{Title: title, Status: status})
	if err != nil {
		t.Fatalf("add %q: %v", title, err)
	}
	return task
}

func columnTitles(b *board.Board, status model.Status) string {
	var titles []string
	for _, task := range b.Column(status, board.Filter{}) {
		titles = append(titles, task.Title)
	}
	return strings.Join(titles, ",")
}

// storedTitles decodes what the store holds right now.
func storedTitles(t *testing.T, s store.Store) []string {
	t.Helper()
	raw, err := s.Load(context.Background(), model.DefaultStorageKey)
	if err != nil {
		t.Fatalf("load stored board: %v", err)
	}
	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		t.Fatalf("stored board is not a JSON array: %v", err)
	}
	titles := make([]string, len(tasks))
	for i, task := range tasks {
		titles[i] = task.Title
	}
	return titles
}

// failingStore wraps a store and fails every Save once armed.
type failingStore struct {
	store.Store
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) Save(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errDiskFull
	}
	return f.Store.Save(ctx, key, value)
}

func TestAddDefaultsAndPersists(t *testing.T) {
	s := testutil.NewTestStore(t)
	b := newBoard(t, s)

	task, err := b.Add(context.Background(), model.Draft{Title: "  Write report  ", Description: "q1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if task.ID != "t1" {
		t.Fatalf("expected generated id t1, got %q", task.ID)
	}
	if task.Title != "Write report" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.Status != model.StatusTodo {
		t.Fatalf("expected default status todo, got %q", task.Status)
	}
	if !task.CreatedAt.Equal(testNow) || !task.UpdatedAt.Equal(testNow) {
		t.Fatalf("expected timestamps from clock, got %v / %v", task.CreatedAt, task.UpdatedAt)
	}

	if got := storedTitles(t, s); len(got) != 1 || got[0] != "Write report" {
		t.Fatalf("expected stored array [Write report], got %v", got)
	}
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	b := newBoard(t, nil)
	_, err := b.Add(context.Background(), model.Draft{Title: "   "})
	if !errors.Is(err, model.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty board, got %d tasks", b.Len())
	}
}

func TestLoadRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	b := newBoard(t, s)
	mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusDone)

	reloaded := board.New(s)
	if err := reloaded.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("expected 2 tasks after reload, got %d", reloaded.Len())
	}
	if got := columnTitles(reloaded, model.StatusDone); got != "b" {
		t.Fatalf("expected done column [b], got %q", got)
	}
}

func TestLoadMissingKeyIsEmpty(t *testing.T) {
	b := newBoard(t, nil)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected empty board, got %d", b.Len())
	}
}

func TestLoadCorruptValue(t *testing.T) {
	s := testutil.NewTestStore(t)
	if err := s.Save(context.Background(), model.DefaultStorageKey, []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := board.New(s).Load(context.Background()); err == nil {
		t.Fatal("expected decode error for corrupt value")
	}
}

func TestLoadNormalizesStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	raw := `[{"id":"a","title":"alpha","status":"In Progress"},{"id":"b","title":"beta","status":"completed"}]`
	if err := s.Save(context.Background(), model.DefaultStorageKey, []byte(raw)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := board.New(s)
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "alpha" {
		t.Fatalf("expected in progress column [alpha], got %q", got)
	}
	if got := columnTitles(b, model.StatusDone); got != "beta" {
		t.Fatalf("expected done column [beta], got %q", got)
	}
}

func TestLoadRejectsUnknownStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	raw := `[{"id":"a","title":"alpha","status":"todo"},{"id":"b","title":"beta","status":"someday"}]`
	if err := s.Save(context.Background(), model.DefaultStorageKey, []byte(raw)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	b := board.New(s)
	err := b.Load(context.Background())
	if !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if !strings.Contains(err.Error(), "record 2") {
		t.Fatalf("expected error to name record 2, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected nothing loaded, got %d", b.Len())
	}
}

func TestWithKeyIsolatesBoards(t *testing.T) {
	s := testutil.NewTestStore(t)
	work := board.New(s, board.WithKey("work"))
	home := board.New(s, board.WithKey("home"))

	if _, err := work.Add(context.Background(), model.Draft{Title: "deploy"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := home.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if home.Len() != 0 {
		t.Fatalf("expected home board to stay empty, got %d", home.Len())
	}
}

func TestFailedSaveRollsBack(t *testing.T) {
	fs := &failingStore{Store: testutil.NewTestStore(t)}
	b := newBoard(t, fs)
	task := mustAdd(t, b, "keep me", model.StatusTodo)

	fs.fail = true
	if _, err := b.Add(context.Background(), model.Draft{Title: "lost"}); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected save error, got: %v", err)
	}
	if _, err := b.Move(context.Background(), task.ID, model.StatusDone); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected save error on move, got: %v", err)
	}
	if err := b.Delete(context.Background(), task.ID); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected save error on delete, got: %v", err)
	}

	tasks := b.Tasks()
	if len(tasks) != 1 || tasks[0].Status != model.StatusTodo {
		t.Fatalf("expected board unchanged after failed saves, got %+v", tasks)
	}
}

func TestAddManyIsAllOrNothing(t *testing.T) {
	b := newBoard(t, nil)
	_, err := b.AddMany(context.Background(), []model.Draft{{Title: "ok"}, {Title: ""}})
	if !errors.Is(err, model.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got: %v", err)
	}
	if !strings.Contains(err.Error(), "task 2") {
		t.Fatalf("expected error to name task 2, got: %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected nothing added, got %d", b.Len())
	}

	added, err := b.AddMany(context.Background(), []model.Draft{{Title: "x"}, {Title: "y"}})
	if err != nil {
		t.Fatalf("add many: %v", err)
	}
	if len(added) != 2 || columnTitles(b, model.StatusTodo) != "x,y" {
		t.Fatalf("expected x,y appended, got %q", columnTitles(b, model.StatusTodo))
	}
}

func TestUpdateStatusChangeMovesToColumnEnd(t *testing.T) {
	later := testNow.Add(time.Hour)
	b := board.New(testutil.NewTestStore(t), board.WithClock(func() time.Time { return later }))
	if err := b.Replace(context.Background(), []model.Task{
		{ID: "a", Title: "a", Status: model.StatusTodo, CreatedAt: testNow, UpdatedAt: testNow},
		{ID: "b", Title: "b", Status: model.StatusInProgress, CreatedAt: testNow, UpdatedAt: testNow},
	}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	a, _ := b.Get("a")
	d := model.DraftOf(a)
	d.Title = "a2"
	d.Status = model.StatusInProgress
	updated, err := b.Update(context.Background(), "a", d)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(testNow) {
		t.Fatalf("expected only UpdatedAt bumped, got %+v", updated)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "b,a2" {
		t.Fatalf("expected in-progress column b,a2, got %q", got)
	}

	if _, err := b.Update(context.Background(), "missing", d); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
	d.Title = ""
	if _, err := b.Update(context.Background(), "a", d); !errors.Is(err, model.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got: %v", err)
	}
}

func TestDeleteRemovesOnlyTarget(t *testing.T) {
	b := newBoard(t, nil)
	mustAdd(t, b, "a", model.StatusTodo)
	victim := mustAdd(t, b, "b", model.StatusTodo)
	mustAdd(t, b, "c", model.StatusTodo)

	if err := b.Delete(context.Background(), victim.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := columnTitles(b, model.StatusTodo); got != "a,c" {
		t.Fatalf("expected a,c, got %q", got)
	}
	if err := b.Delete(context.Background(), victim.ID); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got: %v", err)
	}
}

func TestMove(t *testing.T) {
	b := newBoard(t, nil)
	a := mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusDone)

	moved, err := b.Move(context.Background(), a.ID, model.StatusDone)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved.Status != model.StatusDone {
		t.Fatalf("expected done, got %q", moved.Status)
	}
	if got := columnTitles(b, model.StatusDone); got != "b,a" {
		t.Fatalf("expected moved card at end of column, got %q", got)
	}

	if _, err := b.Move(context.Background(), a.ID, "archived"); !errors.Is(err, model.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got: %v", err)
	}
	if _, err := b.Move(context.Background(), "nope", model.StatusTodo); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestDropAcrossColumns(t *testing.T) {
	b := newBoard(t, nil)
	mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusInProgress)
	c := mustAdd(t, b, "c", model.StatusTodo)
	mustAdd(t, b, "d", model.StatusInProgress)

	if _, err := b.Drop(context.Background(), c.ID, model.StatusInProgress, 1); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "b,c,d" {
		t.Fatalf("expected b,c,d, got %q", got)
	}
	if got := columnTitles(b, model.StatusTodo); got != "a" {
		t.Fatalf("expected todo column a, got %q", got)
	}
}

func TestDropClampsIndex(t *testing.T) {
	b := newBoard(t, nil)
	a := mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusDone)

	if _, err := b.Drop(context.Background(), a.ID, model.StatusDone, 99); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := columnTitles(b, model.StatusDone); got != "b,a" {
		t.Fatalf("expected b,a, got %q", got)
	}
	if _, err := b.Drop(context.Background(), a.ID, model.StatusDone, -5); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := columnTitles(b, model.StatusDone); got != "a,b" {
		t.Fatalf("expected a,b, got %q", got)
	}
}

func TestDropIntoEmptyColumn(t *testing.T) {
	b := newBoard(t, nil)
	a := mustAdd(t, b, "a", model.StatusTodo)
	if _, err := b.Drop(context.Background(), a.ID, model.StatusInProgress, 0); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "a" {
		t.Fatalf("expected a in progress, got %q", got)
	}
}

func TestDropSamePlaceIsNoop(t *testing.T) {
	s := testutil.NewTestStore(t)
	calls := 0
	clock := func() time.Time {
		calls++
		return testNow
	}
	b := board.New(s, board.WithClock(clock), board.WithIDGenerator(sequentialIDs()))
	mustAdd(t, b, "a", model.StatusTodo)
	last := mustAdd(t, b, "b", model.StatusTodo)
	mustAdd(t, b, "c", model.StatusDone)

	before := calls
	if _, err := b.Shift(context.Background(), last.ID, 1); err != nil {
		t.Fatalf("shift: %v", err)
	}
	if calls != before {
		t.Fatal("expected shifting the last card down to change nothing")
	}
	if got := columnTitles(b, model.StatusTodo); got != "a,b" {
		t.Fatalf("expected a,b, got %q", got)
	}
}

func TestShift(t *testing.T) {
	b := newBoard(t, nil)
	mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "x", model.StatusDone)
	c := mustAdd(t, b, "c", model.StatusTodo)

	if _, err := b.Shift(context.Background(), c.ID, -1); err != nil {
		t.Fatalf("shift up: %v", err)
	}
	if got := columnTitles(b, model.StatusTodo); got != "c,a" {
		t.Fatalf("expected c,a, got %q", got)
	}
	if got := columnTitles(b, model.StatusDone); got != "x" {
		t.Fatalf("expected done column untouched, got %q", got)
	}
	if _, err := b.Shift(context.Background(), "nope", 1); !errors.Is(err, board.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestDropBefore(t *testing.T) {
	b := newBoard(t, nil)
	a := mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusInProgress)
	c := mustAdd(t, b, "c", model.StatusInProgress)

	if _, err := b.DropBefore(context.Background(), a.ID, model.StatusInProgress, c.ID); err != nil {
		t.Fatalf("drop before: %v", err)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "b,a,c" {
		t.Fatalf("expected b,a,c, got %q", got)
	}

	if _, err := b.DropBefore(context.Background(), a.ID, model.StatusInProgress, ""); err != nil {
		t.Fatalf("drop at end: %v", err)
	}
	if got := columnTitles(b, model.StatusInProgress); got != "b,c,a" {
		t.Fatalf("expected b,c,a, got %q", got)
	}
}

func TestClearAndClearDone(t *testing.T) {
	s := testutil.NewTestStore(t)
	b := newBoard(t, s)
	mustAdd(t, b, "a", model.StatusTodo)
	mustAdd(t, b, "b", model.StatusDone)
	mustAdd(t, b, "c", model.StatusDone)

	n, err := b.ClearDone(context.Background())
	if err != nil {
		t.Fatalf("clear done: %v", err)
	}
	if n != 2 || b.Len() != 1 {
		t.Fatalf("expected 2 removed and 1 left, got %d removed, %d left", n, b.Len())
	}
	if n, _ := b.ClearDone(context.Background()); n != 0 {
		t.Fatalf("expected nothing left to clear, got %d", n)
	}

	if err := b.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := storedTitles(t, s); len(got) != 0 {
		t.Fatalf("expected stored empty array, got %v", got)
	}
}

func TestStats(t *testing.T) {
	b := newBoard(t, nil)
	ctx := context.Background()
	if _, err := b.Add(ctx, model.Draft{Title: "late", DueDate: "2025-03-01"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := b.Add(ctx, model.Draft{Title: "late but done", Status: model.StatusDone, DueDate: "2025-03-01"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	mustAdd(t, b, "wip", model.StatusInProgress)

	st := b.Stats(testNow)
	if st.Total != 3 || st.Overdue != 1 {
		t.Fatalf("expected total 3 overdue 1, got %+v", st)
	}
	if st.ByStatus[model.StatusTodo] != 1 || st.ByStatus[model.StatusInProgress] != 1 || st.ByStatus[model.StatusDone] != 1 {
		t.Fatalf("unexpected per-column counts: %v", st.ByStatus)
	}
}

func TestDueReminders(t *testing.T) {
	b := newBoard(t, nil)
	ctx := context.Background()
	drafts := []model.Draft{
		{Title: "soon", DueDate: "2025-03-10", DueTime: "09:30", Reminder: 60},
		{Title: "later", DueDate: "2025-03-10", DueTime: "18:00", Reminder: 15},
		{Title: "passed", DueDate: "2025-03-10", DueTime: "08:00", Reminder: 120},
		{Title: "done", Status: model.StatusDone, DueDate: "2025-03-10", DueTime: "09:30", Reminder: 60},
		{Title: "no reminder", DueDate: "2025-03-10", DueTime: "09:30"},
	}
	if _, err := b.AddMany(ctx, drafts); err != nil {
		t.Fatalf("add many: %v", err)
	}

	got := b.DueReminders(testNow)
	if len(got) != 1 || got[0].Task.Title != "soon" {
		t.Fatalf("expected only 'soon' to fire, got %+v", got)
	}
	want := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	if !got[0].FireAt.Equal(want) {
		t.Fatalf("expected fire time %v, got %v", want, got[0].FireAt)
	}
	if got[0].Key() != "t1@2025-03-10T08:30:00Z" {
		t.Fatalf("unexpected reminder key %q", got[0].Key())
	}
}
