package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/notify"
	"github.com/mossrock/bramble/internal/recommend"
	"github.com/mossrock/bramble/internal/store"
)

// WeeklyDigestHandler composes the weekly digest. It makes sure the
// current week's recommendation set exists before summarizing it, so a
// digest always has content to point at.
type WeeklyDigestHandler struct {
	generator       Generator
	recommendations *store.RecommendationStore
	tasks           *store.TaskStore
}

// Generator is the slice of recommend.Generator the digest needs.
type Generator interface {
	EnsureForWeek(userID int64, weekStart time.Time) (*model.WeeklyRecommendation, bool, error)
}

func NewWeeklyDigestHandler(gen Generator, recs *store.RecommendationStore, tasks *store.TaskStore) *WeeklyDigestHandler {
	return &WeeklyDigestHandler{generator: gen, recommendations: recs, tasks: tasks}
}

func (h *WeeklyDigestHandler) Kind() string {
	return model.KindWeeklyDigest
}

func (h *WeeklyDigestHandler) Compose(ctx context.Context, user *model.User, now time.Time) (notify.Payload, error) {
	weekStart := recommend.WeekStart(now)

	rec, created, err := h.generator.EnsureForWeek(user.ID, weekStart)
	if err != nil {
		return notify.Payload{}, fmt.Errorf("ensure recommendations: %w", err)
	}

	members, err := h.recommendations.ListTasks(rec.ID)
	if err != nil {
		return notify.Payload{}, fmt.Errorf("list recommended tasks: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your tasks for the week of %s:\n\n", weekStart.Format("January 2"))
	if len(members) == 0 {
		b.WriteString("Nothing recommended this week. Enjoy the quiet!\n")
	}
	for _, m := range members {
		task, err := h.tasks.GetByID(m.TaskID, user.ID)
		if err != nil {
			return notify.Payload{}, fmt.Errorf("load task %d: %w", m.TaskID, err)
		}
		if task == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s (%s)\n", task.Title, m.Reason)
	}

	return notify.Payload{
		Subject: "Your weekly digest",
		Body:    b.String(),
		Data: map[string]any{
			"week_start": weekStart.Format("2006-01-02"),
			"task_count": len(members),
			"generated":  created,
		},
	}, nil
}

// TaskReminderHandler composes the mid-week nudge with progress counts
// for the current week's recommendation set.
type TaskReminderHandler struct {
	recommendations *store.RecommendationStore
}

func NewTaskReminderHandler(recs *store.RecommendationStore) *TaskReminderHandler {
	return &TaskReminderHandler{recommendations: recs}
}

func (h *TaskReminderHandler) Kind() string {
	return model.KindTaskReminder
}

func (h *TaskReminderHandler) Compose(ctx context.Context, user *model.User, now time.Time) (notify.Payload, error) {
	weekStart := recommend.WeekStart(now)

	rec, err := h.recommendations.GetByUserWeek(user.ID, weekStart)
	if err != nil {
		return notify.Payload{}, fmt.Errorf("load recommendation: %w", err)
	}

	var progress model.RecommendationProgress
	if rec != nil {
		progress, err = h.recommendations.Progress(rec.ID)
		if err != nil {
			return notify.Payload{}, fmt.Errorf("recommendation progress: %w", err)
		}
	}

	var body string
	switch {
	case progress.Total == 0:
		body = "No tasks were recommended this week."
	case progress.Remaining() == 0:
		body = fmt.Sprintf("All %d recommended tasks are done. Nice work!", progress.Total)
	default:
		body = fmt.Sprintf("%d of %d recommended tasks still open this week.",
			progress.Remaining(), progress.Total)
	}

	return notify.Payload{
		Subject: "Task reminder",
		Body:    body,
		Data: map[string]any{
			"total":     progress.Total,
			"completed": progress.Completed,
		},
	}, nil
}
