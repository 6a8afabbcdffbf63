package kanban

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// cardHeight is the number of lines a rendered card takes, including the
// blank spacer line.
const cardHeight = 3

type cardState int

const (
	cardNormal cardState = iota
	cardSelected
	cardGrabbed
)

// renderCard draws a two-line card: title, then a badge line.
func renderCard(t model.Task, width int, state cardState, now time.Time) string {
	inner := max(4, width-2)

	prefix := "○ "
	if t.Status == model.StatusDone {
		prefix = "✓ "
	}
	title := truncate(prefix+t.Title, inner)
	meta := badges(t, now, inner)

	switch state {
	case cardGrabbed:
		return theme.GrabbedCardStyle.Render(title + "\n" + meta)
	case cardSelected:
		return theme.SelectedCardStyle.Render(title + "\n" + meta)
	default:
		style := theme.CardStyle
		if t.Status == model.StatusDone {
			style = style.Foreground(theme.ColorGray)
		}
		return style.Render(title + "\n" + meta)
	}
}

// badges returns the due/reminder line under the title, fitted to width
// before styling so escape codes are never cut.
func badges(t model.Task, now time.Time, width int) string {
	due, hasDue := t.Due(now.Location())
	if !hasDue && t.Reminder <= 0 {
		return lipgloss.NewStyle().Foreground(theme.ColorSubtle).Render(truncate("no due date", width))
	}

	dueText := ""
	if hasDue {
		dueText = dueLabel(t, due, now)
	}
	remText := ""
	if t.Reminder > 0 {
		remText = fmt.Sprintf("⏰ %dm", t.Reminder)
	}
	if dueText != "" && lipgloss.Width(dueText)+2+lipgloss.Width(remText) > width {
		remText = ""
	}

	var parts []string
	if dueText != "" {
		style := theme.DueStyle(t.IsOverdue(now), sameDay(due, now))
		parts = append(parts, style.Render(truncate(dueText, width)))
	}
	if remText != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorGray).Render(truncate(remText, width)))
	}
	return strings.Join(parts, "  ")
}

// dueLabel renders the due date relative to now where that reads better.
func dueLabel(t model.Task, due, now time.Time) string {
	clock := ""
	if t.DueTime != "" {
		clock = " " + t.DueTime
	}
	switch {
	case t.IsOverdue(now):
		return "overdue " + due.Format("Jan 2") + clock
	case sameDay(due, now):
		return "today" + clock
	case sameDay(due, now.AddDate(0, 0, 1)):
		return "tomorrow" + clock
	default:
		return due.Format("Mon Jan 2") + clock
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// truncate shortens s to width cells, adding an ellipsis.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}

// RelativeTime formats t as a short "3h ago" string.
func RelativeTime(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
