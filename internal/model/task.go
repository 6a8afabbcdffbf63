package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors returned (wrapped) by Task.Validate.
var (
	ErrEmptyTitle      = errors.New("model: task title is required")
	ErrInvalidStatus   = errors.New("model: invalid task status")
	ErrInvalidDueDate  = errors.New("model: invalid due date")
	ErrInvalidDueTime  = errors.New("model: invalid due time")
	ErrInvalidReminder = errors.New("model: invalid reminder")
)

// Layouts used for the due date and due time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Status is the column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses returns the board columns in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// IsValid reports whether s is one of the three board columns.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Label returns the human-readable column title.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Index returns the column position of s, or -1 for an unknown status.
func (s Status) Index() int {
	for i, st := range Statuses() {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStatus accepts the stored values, the column labels and a few common
// spellings ("in-progress", "doing", "complete"), case-insensitively.
func ParseStatus(raw string) (Status, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.NewReplacer("-", "_", " ", "_").Replace(v)
	switch v {
	case "todo", "to_do", "open":
		return StatusTodo, nil
	case "in_progress", "inprogress", "doing", "progress":
		return StatusInProgress, nil
	case "done", "complete", "completed":
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// Task is a single card on the board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"dueDate,omitempty"`
	DueTime     string    `json:"dueTime,omitempty"`
	Reminder    int       `json:"reminder,omitempty"` // minutes before due
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks field presence and formats. It does not check ID
// uniqueness; that is the board's job.
func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateLayout, t.DueDate); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDueDate, t.DueDate)
		}
	}
	if t.DueTime != "" {
		if _, err := time.Parse(TimeLayout, t.DueTime); err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidDueTime, t.DueTime)
		}
		if t.DueDate == "" {
			return fmt.Errorf("%w: due time set without a due date", ErrInvalidDueTime)
		}
	}
	if t.Reminder < 0 {
		return fmt.Errorf("%w: %d minutes", ErrInvalidReminder, t.Reminder)
	}
	return nil
}

// HasDue reports whether a due date is set.
func (t Task) HasDue() bool {
	return t.DueDate != ""
}

// Due returns the instant the task is due in loc. A date without a time is
// due at 23:59 that day.
func (t Task) Due(loc *time.Location) (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, t.DueDate, loc)
	if err != nil {
		return time.Time{}, false
	}
	hour, minute := 23, 59
	if t.DueTime != "" {
		clock, err := time.Parse(TimeLayout, t.DueTime)
		if err == nil {
			hour, minute = clock.Hour(), clock.Minute()
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), true
}

// IsOverdue reports whether the task is past due and not done.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Status == StatusDone {
		return false
	}
	due, ok := t.Due(now.Location())
	return ok && due.Before(now)
}

// ReminderAt returns when the reminder for this task should fire.
func (t Task) ReminderAt(loc *time.Location) (time.Time, bool) {
	if t.Reminder <= 0 {
		return time.Time{}, false
	}
	due, ok := t.Due(loc)
	if !ok {
		return time.Time{}, false
	}
	return due.Add(-time.Duration(t.Reminder) * time.Minute), true
}

// Draft carries the user-editable fields of a task.
type Draft struct {
	Title       string
	Description string
	Status      Status
	DueDate     string
	DueTime     string
	Reminder    int
}

// DraftOf returns the editable fields of t.
func DraftOf(t Task) Draft {
	return Draft{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		DueDate:     t.DueDate,
		DueTime:     t.DueTime,
		Reminder:    t.Reminder,
	}
}

// Apply copies the draft's fields onto t, trimming the title.
func (d Draft) Apply(t *Task) {
	t.Title = strings.TrimSpace(d.Title)
	t.Description = strings.TrimSpace(d.Description)
	t.Status = d.Status
	t.DueDate = strings.TrimSpace(d.DueDate)
	t.DueTime = strings.TrimSpace(d.DueTime)
	t.Reminder = d.Reminder
}
