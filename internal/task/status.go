package task

import (
	"time"

	"github.com/mossrock/bramble/internal/model"
)

type Status string

const (
	StatusPending Status = "pending" // one-off, never completed
	StatusDone    Status = "done"    // one-off, completed
	StatusDue     Status = "due"     // recurring, due today
	StatusOverdue Status = "overdue" // recurring, past its cadence
	StatusNotDue  Status = "not_due" // recurring, not yet due
)

// ComputeStatus determines the status and due date for a task given its
// most recent completion. A task with no cadence (IntervalDays == 0) is a
// one-off; a recurring task is due IntervalDays after its last completion,
// or after creation if it has never been completed.
func ComputeStatus(t model.Task, lastCompletion *time.Time, today time.Time) (Status, *time.Time) {
	today = startOfDay(today)

	if t.IntervalDays <= 0 {
		if lastCompletion != nil {
			return StatusDone, nil
		}
		return StatusPending, nil
	}

	base := t.CreatedAt
	if lastCompletion != nil {
		base = *lastCompletion
	}
	due := startOfDay(base).AddDate(0, 0, t.IntervalDays)

	switch {
	case due.Before(today):
		return StatusOverdue, &due
	case due.Equal(today):
		return StatusDue, &due
	default:
		return StatusNotDue, &due
	}
}

// DaysOverdue returns how many whole days past due a task is; zero when it
// is due today or not yet due.
func DaysOverdue(due time.Time, today time.Time) int {
	due = startOfDay(due)
	today = startOfDay(today)
	if !due.Before(today) {
		return 0
	}
	return int(today.Sub(due).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
