package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/taskboard/internal/board"
	"github.com/nhle/taskboard/internal/model"
)

func listCmd(e *env) *cobra.Command {
	var (
		status string
		query  string
		due    string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks by column",
		Long: `List tasks grouped by column, in board order.

Examples:
  taskboard list
  taskboard list --status doing
  taskboard list --due overdue --query invoice
  taskboard list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := board.Filter{Query: query, Now: time.Now()}
			df, err := board.ParseDateFilter(due)
			if err != nil {
				return err
			}
			f.Date = df

			statuses := model.Statuses()
			if status != "" {
				st, err := model.ParseStatus(status)
				if err != nil {
					return err
				}
				statuses = []model.Status{st}
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			if asJSON {
				var out []model.Task
				for _, st := range statuses {
					out = append(out, b.Column(st, f)...)
				}
				return board.EncodeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			for i, st := range statuses {
				if i > 0 {
					fmt.Fprintln(w)
				}
				col := b.Column(st, f)
				fmt.Fprintf(w, "%s (%d)\n", st.Label(), len(col))
				for _, t := range col {
					printTask(w, t, f.Now)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "only this column (todo, in_progress, done)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "match title or description")
	cmd.Flags().StringVarP(&due, "due", "d", "", "date filter (today, tomorrow, week, overdue, nodate)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printTask(w io.Writer, t model.Task, now time.Time) {
	line := fmt.Sprintf("  %s  %s", shortID(t.ID), t.Title)
	if t.HasDue() {
		due := t.DueDate
		if t.DueTime != "" {
			due += " " + t.DueTime
		}
		line += "  (due " + due
		if t.IsOverdue(now) {
			line += ", overdue"
		}
		line += ")"
	}
	fmt.Fprintln(w, line)
}

func addCmd(e *env) *cobra.Command {
	var d model.Draft
	var status string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a task at the end of a column.

Examples:
  taskboard add "Renew passport"
  taskboard add "Ship release" --status doing --due 2025-04-01 --time 17:00 --reminder 60`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Title = strings.Join(args, " ")
			if status != "" {
				st, err := model.ParseStatus(status)
				if err != nil {
					return err
				}
				d.Status = st
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := b.Add(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %q to %s\n", shortID(t.ID), t.Title, t.Status.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&d.Description, "desc", "", "description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "column (default todo)")
	cmd.Flags().StringVar(&d.DueDate, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&d.DueTime, "time", "", "due time, HH:MM (needs --due)")
	cmd.Flags().IntVar(&d.Reminder, "reminder", 0, "remind this many minutes before the due time")
	return cmd
}

func moveCmd(e *env) *cobra.Command {
	var before string

	cmd := &cobra.Command{
		Use:   "move <id> <status>",
		Short: "Move a task to another column",
		Long: `Move a task to the end of a column, or above another card with --before.
IDs may be abbreviated to any unique prefix.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}

			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveID(b, args[0])
			if err != nil {
				return err
			}

			var t model.Task
			if before != "" {
				beforeID, err := resolveID(b, before)
				if err != nil {
					return err
				}
				t, err = b.DropBefore(cmd.Context(), id, st, beforeID)
				if err != nil {
					return err
				}
			} else {
				t, err = b.Move(cmd.Context(), id, st)
				if err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s %q to %s\n", shortID(t.ID), t.Title, t.Status.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "place above this task")
	return cmd
}

func rmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := e.openBoard(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			id, err := resolveID(b, args[0])
			if err != nil {
				return err
			}
			t, _ := b.Get(id)
			if err := b.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %q\n", shortID(t.ID), t.Title)
			return nil
		},
	}
}
