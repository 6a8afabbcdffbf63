package board

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/taskboard/internal/model"
)

// Format is an import/export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrInvalidImport wraps every reason an import file is rejected.
var ErrInvalidImport = errors.New("board: invalid import file")

// csvHeader is the column order written by EncodeCSV and expected by DecodeCSV.
var csvHeader = []string{
	"id", "title", "description", "status",
	"dueDate", "dueTime", "reminder", "createdAt", "updatedAt",
}

// ParseFormat maps a flag value to a Format.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or csv)", raw)
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatJSON
}

// Export writes the whole board in the given format.
func (b *Board) Export(w io.Writer, format Format) error {
	tasks := b.Tasks()
	switch format {
	case FormatCSV:
		return EncodeCSV(w, tasks)
	default:
		return EncodeJSON(w, tasks)
	}
}

// EncodeJSON writes tasks as an indented JSON array.
func EncodeJSON(w io.Writer, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(tasks); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

// EncodeCSV writes tasks with a header row.
func EncodeCSV(w io.Writer, tasks []model.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, t := range tasks {
		reminder := ""
		if t.Reminder > 0 {
			reminder = strconv.Itoa(t.Reminder)
		}
		record := []string{
			t.ID, t.Title, t.Description, string(t.Status),
			t.DueDate, t.DueTime, reminder,
			formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row for %s: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// importRecord is the loose shape accepted on import: every field optional
// so that validation can report what is missing.
type importRecord struct {
	ID          string          `json:"id"`
	Title       *string         `json:"title"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	DueDate     string          `json:"dueDate"`
	DueTime     string          `json:"dueTime"`
	Reminder    json.RawMessage `json:"reminder"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// DecodeJSON parses and validates an exported JSON array.
func DecodeJSON(r io.Reader, now time.Time, newID func() string) ([]model.Task, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading import: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of tasks", ErrInvalidImport)
	}

	var records []importRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	tasks := make([]model.Task, 0, len(records))
	for i, rec := range records {
		reminder, err := parseReminder(rec.Reminder)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidImport, i+1, err)
		}
		title := ""
		if rec.Title != nil {
			title = *rec.Title
		}
		tasks = append(tasks, model.Task{
			ID:          rec.ID,
			Title:       title,
			Description: rec.Description,
			Status:      model.Status(rec.Status),
			DueDate:     rec.DueDate,
			DueTime:     rec.DueTime,
			Reminder:    reminder,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		})
	}
	return normalizeImport(tasks, now, newID)
}

// parseReminder accepts a number, a numeric string, or nothing.
func parseReminder(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("reminder %q is not a number of minutes", s)
	}
	return n, nil
}

// DecodeCSV parses and validates a CSV export. Columns are matched by header
// name so reordered or partial files work as long as "title" is present.
func DecodeCSV(r io.Reader, now time.Time, newID func() string) ([]model.Task, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty csv", ErrInvalidImport)
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["title"]; !ok {
		return nil, fmt.Errorf("%w: csv header has no title column", ErrInvalidImport)
	}
	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	tasks := make([]model.Task, 0, len(rows)-1)
	for i, row := range rows[1:] {
		reminder, err := parseReminder(json.RawMessage(field(row, "reminder")))
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidImport, i+1, err)
		}
		t := model.Task{
			ID:          field(row, "id"),
			Title:       field(row, "title"),
			Description: field(row, "description"),
			Status:      model.Status(field(row, "status")),
			DueDate:     field(row, "dueDate"),
			DueTime:     field(row, "dueTime"),
			Reminder:    reminder,
		}
		for name, dst := range map[string]*time.Time{"createdAt": &t.CreatedAt, "updatedAt": &t.UpdatedAt} {
			if v := field(row, name); v != "" {
				ts, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return nil, fmt.Errorf("%w: record %d: bad %s %q", ErrInvalidImport, i+1, name, v)
				}
				*dst = ts
			}
		}
		tasks = append(tasks, t)
	}
	return normalizeImport(tasks, now, newID)
}

// normalizeImport fills defaults and validates every record. Any invalid
// record rejects the whole file.
func normalizeImport(tasks []model.Task, now time.Time, newID func() string) ([]model.Task, error) {
	seen := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		t.Title = strings.TrimSpace(t.Title)
		if t.Status == "" {
			t.Status = model.StatusTodo
		} else if st, err := model.ParseStatus(string(t.Status)); err == nil {
			t.Status = st
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", ErrInvalidImport, i+1, err)
		}
		if t.ID == "" || seen[t.ID] {
			t.ID = newID()
		}
		seen[t.ID] = true
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = t.CreatedAt
		}
	}
	return tasks, nil
}

// Decode dispatches on format.
func Decode(r io.Reader, format Format, now time.Time, newID func() string) ([]model.Task, error) {
	if format == FormatCSV {
		return DecodeCSV(r, now, newID)
	}
	return DecodeJSON(r, now, newID)
}

// Import validates r and, only if every record is valid, replaces the board.
// It returns the number of imported tasks.
func (b *Board) Import(ctx context.Context, r io.Reader, format Format) (int, error) {
	tasks, err := Decode(r, format, b.now(), b.newID)
	if err != nil {
		return 0, err
	}
	if err := b.Replace(ctx, tasks); err != nil {
		return 0, err
	}
	return len(tasks), nil
}
