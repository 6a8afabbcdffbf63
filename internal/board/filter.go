package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// DateFilter narrows the board by due date.
type DateFilter string

const (
	DateAll      DateFilter = "all"
	DateToday    DateFilter = "today"
	DateTomorrow DateFilter = "tomorrow"
	DateWeek     DateFilter = "week"
	DateOverdue  DateFilter = "overdue"
	DateNone     DateFilter = "nodate"
)

// dateFilters is the cycle order used by the f key.
var dateFilters = []DateFilter{DateAll, DateToday, DateTomorrow, DateWeek, DateOverdue, DateNone}

// DateFilters returns every date filter in cycle order.
func DateFilters() []DateFilter {
	out := make([]DateFilter, len(dateFilters))
	copy(out, dateFilters)
	return out
}

// ParseDateFilter accepts the filter names plus a few aliases.
func ParseDateFilter(raw string) (DateFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all", "any":
		return DateAll, nil
	case "today":
		return DateToday, nil
	case "tomorrow":
		return DateTomorrow, nil
	case "week", "this_week", "upcoming":
		return DateWeek, nil
	case "overdue":
		return DateOverdue, nil
	case "nodate", "none", "no_date":
		return DateNone, nil
	}
	return "", fmt.Errorf("unknown date filter %q", raw)
}

// Next returns the filter after f in cycle order.
func (f DateFilter) Next() DateFilter {
	for i, df := range dateFilters {
		if df == f {
			return dateFilters[(i+1)%len(dateFilters)]
		}
	}
	return DateAll
}

// Label is the header text for f.
func (f DateFilter) Label() string {
	switch f {
	case DateToday:
		return "Due today"
	case DateTomorrow:
		return "Due tomorrow"
	case DateWeek:
		return "Due this week"
	case DateOverdue:
		return "Overdue"
	case DateNone:
		return "No due date"
	default:
		return "All dates"
	}
}

// Filter is the search box plus the date filter. A zero Now means time.Now.
type Filter struct {
	Query string
	Date  DateFilter
	Now   time.Time
}

// Active reports whether f hides anything.
func (f Filter) Active() bool {
	return strings.TrimSpace(f.Query) != "" || (f.Date != "" && f.Date != DateAll)
}

// Match reports whether t passes both the text and the date filter.
func (f Filter) Match(t model.Task) bool {
	return f.matchQuery(t) && f.matchDate(t)
}

func (f Filter) matchQuery(t model.Task) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Title), q) ||
		strings.Contains(strings.ToLower(t.Description), q)
}

func (f Filter) matchDate(t model.Task) bool {
	if f.Date == "" || f.Date == DateAll {
		return true
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	if f.Date == DateNone {
		return !t.HasDue()
	}
	if f.Date == DateOverdue {
		return t.IsOverdue(now)
	}

	due, ok := t.Due(now.Location())
	if !ok {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())

	switch f.Date {
	case DateToday:
		return day.Equal(today)
	case DateTomorrow:
		return day.Equal(today.AddDate(0, 0, 1))
	case DateWeek:
		return !day.Before(today) && day.Before(today.AddDate(0, 0, 7))
	}
	return true
}

// Column returns the tasks in status that pass f, in board order.
func (b *Board) Column(status model.Status, f Filter) []model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Task
	for _, t := range b.tasks {
		if t.Status == status && f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Columns partitions the filtered board into its three columns.
func (b *Board) Columns(f Filter) map[model.Status][]model.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()

	cols := make(map[model.Status][]model.Task, 3)
	for _, st := range model.Statuses() {
		cols[st] = nil
	}
	for _, t := range b.tasks {
		if f.Match(t) {
			cols[t.Status] = append(cols[t.Status], t)
		}
	}
	return cols
}
