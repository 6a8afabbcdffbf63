// Package board holds the ordered task array behind the Kanban board and
// keeps it mirrored to a store.Store after every change.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// ErrNotFound is returned when an operation names an unknown task ID.
var ErrNotFound = errors.New("board: task not found")

// Board is the in-memory task array plus its persistence. Array order is
// the display order inside each column.
type Board struct {
	mu    sync.RWMutex
	tasks []model.Task
	store store.Store
	key   string
	now   func() time.Time
	newID func() string
}

// Option configures a Board.
type Option func(*Board)

// WithKey sets the storage key the array is saved under.
func WithKey(key string) Option {
	return func(b *Board) {
		if key != "" {
			b.key = key
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithIDGenerator replaces the UUID generator, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(b *Board) { b.newID = gen }
}

// New creates an empty board backed by s. Call Load to read saved state.
func New(s store.Store, opts ...Option) *Board {
	b := &Board{
		store: s,
		key:   model.DefaultStorageKey,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Key returns the storage key.
func (b *Board) Key() string { return b.key }

// Load replaces the in-memory array with the stored one. A missing key
// leaves the board empty.
func (b *Board) Load(ctx context.Context) error {
	raw, err := b.store.Load(ctx, b.key)
	if errors.Is(err, store.ErrNotFound) {
		b.mu.Lock()
		b.tasks = nil
		b.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading board: %w", err)
	}

	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return fmt.Errorf("decoding board: %w", err)
	}
	for i := range tasks {
		st, err := model.ParseStatus(string(tasks[i].Status))
		if err != nil {
			return fmt.Errorf("decoding board: record %d: %w", i+1, err)
		}
		tasks[i].Status = st
	}

	b.mu.Lock()
	b.tasks = tasks
	b.mu.Unlock()
	return nil
}

// save writes the array. Caller holds b.mu.
func (b *Board) save(ctx context.Context) error {
	raw, err := json.Marshal(b.tasks)
	if err != nil {
		return fmt.Errorf("encoding board: %w", err)
	}
	if b.tasks == nil {
		raw = []byte("[]")
	}
	if err := b.store.Save(ctx, b.key, raw); err != nil {
		return fmt.Errorf("saving board: %w", err)
	}
	return nil
}

// commit saves next as the new array, keeping the old one if the save fails.
// Caller holds b.mu.
func (b *Board) commit(ctx context.Context, next []model.Task) error {
	prev := b.tasks
	b.tasks = next
	if err := b.save(ctx); err != nil {
		b.tasks = prev
		return err
	}
	return nil
}

// indexOf returns the array index of id. Caller holds b.mu.
func (b *Board) indexOf(id string) int {
	return slices.IndexFunc(b.tasks, func(t model.Task) bool { return t.ID == id })
}

// Tasks returns a copy of the whole array in order.
func (b *Board) Tasks() []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.tasks)
}

// Len returns the number of tasks.
func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Get returns the task with the given ID.
func (b *Board) Get(id string) (model.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.indexOf(id)
	if i < 0 {
		return model.Task{}, false
	}
	return b.tasks[i], true
}

func (b *Board) build(d model.Draft, now time.Time) (model.Task, error) {
	if d.Status == "" {
		d.Status = model.StatusTodo
	}
	t := model.Task{
		ID:        b.newID(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.Apply(&t)
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Add appends a new task built from d. Status defaults to To Do.
func (b *Board) Add(ctx context.Context, d model.Draft) (model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, err := b.build(d, b.now())
	if err != nil {
		return model.Task{}, err
	}
	next := append(slices.Clone(b.tasks), t)
	if err := b.commit(ctx, next); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// AddMany appends all drafts or none of them.
func (b *Board) AddMany(ctx context.Context, drafts []model.Draft) ([]model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	added := make([]model.Task, 0, len(drafts))
	for i, d := range drafts {
		t, err := b.build(d, now)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i+1, err)
		}
		added = append(added, t)
	}
	if len(added) == 0 {
		return nil, nil
	}
	next := append(slices.Clone(b.tasks), added...)
	if err := b.commit(ctx, next); err != nil {
		return nil, err
	}
	return added, nil
}

// Update replaces the editable fields of task id. A status change moves the
// card to the end of its new column.
func (b *Board) Update(ctx context.Context, id string, d model.Draft) (model.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := b.tasks[i]
	if d.Status == "" {
		d.Status = t.Status
	}
	oldStatus := t.Status
	d.Apply(&t)
	if err := t.Validate(); err != nil {
		return model.Task{}, err
	}
	t.UpdatedAt = b.now()

	next := slices.Clone(b.tasks)
	if t.Status != oldStatus {
		next = slices.Delete(next, i, i+1)
		next = append(next, t)
	} else {
		next[i] = t
	}
	if err := b.commit(ctx, next); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Delete removes exactly the task with the given ID.
func (b *Board) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := slices.Delete(slices.Clone(b.tasks), i, i+1)
	return b.commit(ctx, next)
}

// Move puts task id at the end of the status column and bumps UpdatedAt.
// Moving a task to the column it is already in changes nothing.
func (b *Board) Move(ctx context.Context, id string, status model.Status) (model.Task, error) {
	if !status.IsValid() {
		return model.Task{}, fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(id)
	if i < 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := b.tasks[i]
	if t.Status == status {
		return t, nil
	}
	t.Status = status
	t.UpdatedAt = b.now()

	next := slices.Delete(slices.Clone(b.tasks), i, i+1)
	next = append(next, t)
	if err := b.commit(ctx, next); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Drop is the drag-and-drop operation. Task id is taken out of the array and
// re-inserted into the status column so that it ends up at position index
// among that column's cards. index is clamped to the column bounds. Cards in
// other columns keep their relative order.
func (b *Board) Drop(ctx context.Context, id string, status model.Status, index int) (model.Task, error) {
	if !status.IsValid() {
		return model.Task{}, fmt.Errorf("%w: %q", model.ErrInvalidStatus, status)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.indexOf(id)
	if from < 0 {
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := b.tasks[from]
	rest := slices.Delete(slices.Clone(b.tasks), from, from+1)

	// Array positions of the target column's cards, without the dragged one.
	var column []int
	for i, other := range rest {
		if other.Status == status {
			column = append(column, i)
		}
	}
	index = max(0, min(index, len(column)))

	var at int
	switch {
	case index < len(column):
		at = column[index]
	case len(column) > 0:
		at = column[len(column)-1] + 1
	default:
		at = len(rest)
	}

	if t.Status == status {
		pos := 0
		for _, i := range column {
			if i < from {
				pos++
			}
		}
		if index == pos {
			return t, nil
		}
	}
	t.Status = status
	t.UpdatedAt = b.now()

	next := slices.Insert(rest, at, t)
	if err := b.commit(ctx, next); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

// Shift moves task id up (delta < 0) or down (delta > 0) inside its column.
func (b *Board) Shift(ctx context.Context, id string, delta int) (model.Task, error) {
	b.mu.RLock()
	i := b.indexOf(id)
	if i < 0 {
		b.mu.RUnlock()
		return model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	status := b.tasks[i].Status
	pos := 0
	for _, t := range b.tasks[:i] {
		if t.Status == status {
			pos++
		}
	}
	b.mu.RUnlock()

	return b.Drop(ctx, id, status, pos+delta)
}

// Replace swaps the whole array, as import does.
func (b *Board) Replace(ctx context.Context, tasks []model.Task) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commit(ctx, slices.Clone(tasks))
}

// Clear removes every task.
func (b *Board) Clear(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commit(ctx, []model.Task{})
}

// ClearDone removes the Done column and returns how many tasks went.
func (b *Board) ClearDone(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := slices.DeleteFunc(slices.Clone(b.tasks), func(t model.Task) bool {
		return t.Status == model.StatusDone
	})
	removed := len(b.tasks) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := b.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// Stats summarizes the board.
type Stats struct {
	Total    int
	Overdue  int
	ByStatus map[model.Status]int
}

// Stats counts tasks per column and overdue tasks as of now.
func (b *Board) Stats(now time.Time) Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st := Stats{Total: len(b.tasks), ByStatus: make(map[model.Status]int, 3)}
	for _, t := range b.tasks {
		st.ByStatus[t.Status]++
		if t.IsOverdue(now) {
			st.Overdue++
		}
	}
	return st
}

// DropBefore drops task id into the status column just above the card
// beforeID. An empty or unknown beforeID drops it at the end of the column.
// The UI uses this because its column indices are counted after filtering.
func (b *Board) DropBefore(ctx context.Context, id string, status model.Status, beforeID string) (model.Task, error) {
	b.mu.RLock()
	index := -1
	pos := 0
	for _, t := range b.tasks {
		if t.ID == id || t.Status != status {
			continue
		}
		if t.ID == beforeID {
			index = pos
			break
		}
		pos++
	}
	if index < 0 {
		index = pos
	}
	b.mu.RUnlock()

	return b.Drop(ctx, id, status, index)
}
