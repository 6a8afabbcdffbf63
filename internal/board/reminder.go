package board

import (
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// Reminder is a task whose reminder window is open.
type Reminder struct {
	Task   model.Task
	FireAt time.Time
	DueAt  time.Time
}

// Key identifies one arming of a reminder. Editing the due date or the
// reminder offset yields a new key, so the reminder fires again.
func (r Reminder) Key() string {
	return r.Task.ID + "@" + r.FireAt.UTC().Format(time.RFC3339)
}

// DueReminders returns open tasks whose reminder time has passed while the
// task itself is not yet due.
func (b *Board) DueReminders(now time.Time) []Reminder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Reminder
	for _, t := range b.tasks {
		if t.Status == model.StatusDone {
			continue
		}
		fire, ok := t.ReminderAt(now.Location())
		if !ok || now.Before(fire) {
			continue
		}
		due, _ := t.Due(now.Location())
		if !now.Before(due) {
			continue
		}
		out = append(out, Reminder{Task: t, FireAt: fire, DueAt: due})
	}
	return out
}
