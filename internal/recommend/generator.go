// Package recommend builds the weekly recommended-task set for a user.
package recommend

import (
	"fmt"
	"sort"
	"time"

	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
	"github.com/mossrock/bramble/internal/task"
)

// maxPerWeek caps the number of recommended tasks per set.
const maxPerWeek = 5

type Generator struct {
	tasks *store.TaskStore
	recs  *store.RecommendationStore
}

func NewGenerator(taskStore *store.TaskStore, recStore *store.RecommendationStore) *Generator {
	return &Generator{tasks: taskStore, recs: recStore}
}

// WeekStart normalizes t to the Monday starting its calendar week,
// 00:00 UTC.
func WeekStart(t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return day.AddDate(0, 0, -offset)
}

// EnsureForWeek returns the recommendation set for (user, week), creating
// it if absent. The second return value reports whether a new set was
// generated. Calling it twice for the same week never creates a second set.
func (g *Generator) EnsureForWeek(userID int64, weekStart time.Time) (*model.WeeklyRecommendation, bool, error) {
	existing, err := g.recs.GetByUserWeek(userID, weekStart)
	if err != nil {
		return nil, false, fmt.Errorf("lookup recommendation: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	picks, err := g.pickTasks(userID, weekStart)
	if err != nil {
		return nil, false, err
	}

	rec, err := g.recs.Create(userID, weekStart, picks)
	if err != nil {
		// A concurrent tick may have created the set between lookup and
		// insert; the unique constraint catches it, so re-read.
		if again, lookupErr := g.recs.GetByUserWeek(userID, weekStart); lookupErr == nil && again != nil {
			return again, false, nil
		}
		return nil, false, fmt.Errorf("create recommendation: %w", err)
	}
	return rec, true, nil
}

type candidate struct {
	task        model.Task
	status      task.Status
	daysOverdue int
	reason      string
}

// pickTasks ranks the user's tasks for the week: overdue first (most
// overdue at the top), then tasks due this week, then one-offs never
// completed, capped at maxPerWeek.
func (g *Generator) pickTasks(userID int64, weekStart time.Time) ([]store.NewTask, error) {
	tasks, err := g.tasks.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	latest, err := g.tasks.LastCompletions(userID)
	if err != nil {
		return nil, fmt.Errorf("load completions: %w", err)
	}

	weekEnd := weekStart.AddDate(0, 0, 7)
	var candidates []candidate
	for _, t := range tasks {
		var last *time.Time
		if at, ok := latest[t.ID]; ok {
			last = &at
		}

		status, due := task.ComputeStatus(t, last, weekStart)
		switch status {
		case task.StatusOverdue:
			overdue := task.DaysOverdue(*due, weekStart)
			candidates = append(candidates, candidate{
				task:        t,
				status:      status,
				daysOverdue: overdue,
				reason:      fmt.Sprintf("%d days overdue (every %d days)", overdue, t.IntervalDays),
			})
		case task.StatusDue:
			candidates = append(candidates, candidate{
				task:   t,
				status: status,
				reason: fmt.Sprintf("due this week (every %d days)", t.IntervalDays),
			})
		case task.StatusNotDue:
			if due != nil && due.Before(weekEnd) {
				candidates = append(candidates, candidate{
					task:   t,
					status: task.StatusDue,
					reason: fmt.Sprintf("due this week (every %d days)", t.IntervalDays),
				})
			}
		case task.StatusPending:
			candidates = append(candidates, candidate{
				task:   t,
				status: status,
				reason: "never completed",
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rank() != candidates[j].rank() {
			return candidates[i].rank() < candidates[j].rank()
		}
		return candidates[i].daysOverdue > candidates[j].daysOverdue
	})

	if len(candidates) > maxPerWeek {
		candidates = candidates[:maxPerWeek]
	}

	picks := make([]store.NewTask, 0, len(candidates))
	for i, c := range candidates {
		picks = append(picks, store.NewTask{
			TaskID:   c.task.ID,
			Priority: i + 1,
			Reason:   c.reason,
		})
	}
	return picks, nil
}

func (c candidate) rank() int {
	switch c.status {
	case task.StatusOverdue:
		return 0
	case task.StatusDue:
		return 1
	default:
		return 2
	}
}
