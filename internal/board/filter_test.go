package board_test

import (
	"context"
	"testing"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
)

func TestDateFilterCycle(t *testing.T) {
	f := board.DateAll
	seen := map[board.DateFilter]bool{}
	for range board.DateFilters() {
		seen[f] = true
		f = f.Next()
	}
	if f != board.DateAll {
		t.Fatalf("expected cycle to wrap to all, got %q", f)
	}
	if len(seen) != len(board.DateFilters()) {
		t.Fatalf("expected every filter visited once, got %v", seen)
	}
	if board.DateFilter("bogus").Next() != board.DateAll {
		t.Fatal("expected unknown filter to reset to all")
	}
}

func TestParseDateFilter(t *testing.T) {
	cases := map[string]board.DateFilter{
		"":         board.DateAll,
		"Today":    board.DateToday,
		"tomorrow": board.DateTomorrow,
		"upcoming": board.DateWeek,
		"overdue":  board.DateOverdue,
		"none":     board.DateNone,
	}
	for in, want := range cases {
		got, err := board.ParseDateFilter(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %q, got %q", in, want, got)
		}
	}
	if _, err := board.ParseDateFilter("yesterday"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
}

func TestFilterQueryMatchesTitleAndDescription(t *testing.T) {
	f := board.Filter{Query: "  REPORT "}
	if !f.Match(model.Task{Title: "Quarterly report"}) {
		t.Fatal("expected case-insensitive title match")
	}
	if !f.Match(model.Task{Title: "x", Description: "send the report"}) {
		t.Fatal("expected description match")
	}
	if f.Match(model.Task{Title: "groceries"}) {
		t.Fatal("expected no match")
	}
	if !f.Active() {
		t.Fatal("expected query filter to be active")
	}
	if (board.Filter{Date: board.DateAll}).Active() {
		t.Fatal("expected empty filter to be inactive")
	}
}

func TestFilterDates(t *testing.T) {
	// testNow is Monday 2025-03-10 09:00 UTC.
	tasks := map[string]model.Task{
		"yesterday": {Title: "y", Status: model.StatusTodo, DueDate: "2025-03-09"},
		"today":     {Title: "t", Status: model.StatusTodo, DueDate: "2025-03-10"},
		"tomorrow":  {Title: "m", Status: model.StatusTodo, DueDate: "2025-03-11"},
		"sunday":    {Title: "s", Status: model.StatusTodo, DueDate: "2025-03-16"},
		"nextweek":  {Title: "n", Status: model.StatusTodo, DueDate: "2025-03-17"},
		"none":      {Title: "z", Status: model.StatusTodo},
		"doneLate":  {Title: "d", Status: model.StatusDone, DueDate: "2025-03-01"},
	}

	cases := []struct {
		filter board.DateFilter
		want   []string
	}{
		{board.DateToday, []string{"today"}},
		{board.DateTomorrow, []string{"tomorrow"}},
		{board.DateWeek, []string{"today", "tomorrow", "sunday"}},
		{board.DateOverdue, []string{"yesterday"}},
		{board.DateNone, []string{"none"}},
	}
	for _, tc := range cases {
		f := board.Filter{Date: tc.filter, Now: testNow}
		want := map[string]bool{}
		for _, name := range tc.want {
			want[name] = true
		}
		for name, task := range tasks {
			if got := f.Match(task); got != want[name] {
				t.Fatalf("filter %s on %s: expected %v, got %v", tc.filter, name, want[name], got)
			}
		}
	}
}

func TestColumnsApplyFilter(t *testing.T) {
	b := newBoard(t, nil)
	ctx := context.Background()
	if _, err := b.AddMany(ctx, []model.Draft{
		{Title: "buy milk"},
		{Title: "write tests", Status: model.StatusInProgress},
		{Title: "buy bread", Status: model.StatusDone},
	}); err != nil {
		t.Fatalf("add many: %v", err)
	}

	cols := b.Columns(board.Filter{Query: "buy"})
	if len(cols) != 3 {
		t.Fatalf("expected all three columns present, got %d", len(cols))
	}
	if len(cols[model.StatusTodo]) != 1 || len(cols[model.StatusInProgress]) != 0 || len(cols[model.StatusDone]) != 1 {
		t.Fatalf("unexpected filtered columns: %v", cols)
	}
	if b.Len() != 3 {
		t.Fatal("filtering must not change the board")
	}
}
