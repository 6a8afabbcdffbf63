// Package reminder runs the background check that raises a notification when
// a task's reminder time arrives.
package reminder

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/board"
)

// DueMsg is a tea.Msg sent when a task's reminder window opens.
type DueMsg struct {
	TaskID  string
	Title   string
	DueAt   time.Time
	Message string
}

// Source yields the reminders that should be firing at now.
type Source interface {
	DueReminders(now time.Time) []board.Reminder
}

const defaultInterval = 30 * time.Second

// Scheduler polls a Source on a ticker and fires each reminder once per
// session. A task whose due date or reminder offset changes is re-armed.
type Scheduler struct {
	src      Source
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	fired   map[string]bool
	running bool

	resultCh  chan DueMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
}

// New creates a Scheduler checking src every interval.
func New(src Source, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Scheduler{
		src:       src,
		interval:  interval,
		now:       time.Now,
		fired:     make(map[string]bool),
		resultCh:  make(chan DueMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a tea.Cmd that waits for
// the first reminder. Subsequent calls are no-ops.
func (s *Scheduler) Start() tea.Cmd {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	go s.loop()
	return s.WaitForNext()
}

// Stop halts the polling goroutine.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

// Refresh asks for an immediate check, e.g. after the board changed.
func (s *Scheduler) Refresh() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.send(s.Check(s.now()))
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.send(s.Check(s.now()))
		case <-s.triggerCh:
			s.send(s.Check(s.now()))
		}
	}
}

// Check returns reminders that opened at or before now and have not fired
// yet, marking them fired.
func (s *Scheduler) Check(now time.Time) []DueMsg {
	due := s.src.DueReminders(now)

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []DueMsg
	for _, r := range due {
		key := r.Key()
		if s.fired[key] {
			continue
		}
		s.fired[key] = true
		out = append(out, DueMsg{
			TaskID:  r.Task.ID,
			Title:   r.Task.Title,
			DueAt:   r.DueAt,
			Message: message(r, now),
		})
	}
	return out
}

func message(r board.Reminder, now time.Time) string {
	left := r.DueAt.Sub(now).Round(time.Minute)
	if left < time.Minute {
		return fmt.Sprintf("Reminder: %q is due now", r.Task.Title)
	}
	return fmt.Sprintf("Reminder: %q is due in %s", r.Task.Title, formatDuration(left))
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%dm", h, m)
	}
}

func (s *Scheduler) send(msgs []DueMsg) {
	for _, m := range msgs {
		select {
		case s.resultCh <- m:
		case <-s.stopCh:
			return
		}
	}
}

// WaitForNext returns a tea.Cmd that blocks until the next reminder. Call it
// again after handling each DueMsg to keep listening.
func (s *Scheduler) WaitForNext() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-s.resultCh:
			return msg
		case <-s.stopCh:
			return nil
		}
	}
}
