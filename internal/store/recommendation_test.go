package store

import (
	"testing"
	"time"

	"github.com/mossrock/bramble/internal/database"
)

func setupRecommendationTestDB(t *testing.T) (*RecommendationStore, *TaskStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecommendationStore(db), NewTaskStore(db), NewUserStore(db)
}

func TestRecommendationCreateAndList(t *testing.T) {
	rs, ts, us := setupRecommendationTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	t1, err := ts.Create(u.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	t2, err := ts.Create(u.ID, "Clean fridge", "", nil, 30)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := rs.Create(u.ID, week, []NewTask{
		{TaskID: t2.ID, Priority: 1, Reason: "overdue"},
		{TaskID: t1.ID, Priority: 2, Reason: "due this week"},
	})
	if err != nil {
		t.Fatalf("create recommendation: %v", err)
	}
	if !rec.WeekStart.Equal(week) {
		t.Errorf("week_start = %v, want %v", rec.WeekStart, week)
	}

	tasks, err := rs.ListTasks(rec.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 recommended tasks, got %d", len(tasks))
	}
	// Ordered most urgent first.
	if tasks[0].TaskID != t2.ID {
		t.Errorf("first task = %d, want %d", tasks[0].TaskID, t2.ID)
	}
	if tasks[0].Reason != "overdue" {
		t.Errorf("reason = %q, want %q", tasks[0].Reason, "overdue")
	}
}

func TestRecommendationUniquePerWeek(t *testing.T) {
	rs, _, us := setupRecommendationTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := rs.Create(u.ID, week, nil); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := rs.Create(u.ID, week, nil); err == nil {
		t.Error("expected unique constraint violation for duplicate (user, week)")
	}

	// A different week and a different user are both fine.
	if _, err := rs.Create(u.ID, week.AddDate(0, 0, 7), nil); err != nil {
		t.Errorf("next week create: %v", err)
	}
	bob := createTestUser(t, us, "bob@example.com")
	if _, err := rs.Create(bob.ID, week, nil); err != nil {
		t.Errorf("other user create: %v", err)
	}
}

func TestRecommendationProgress(t *testing.T) {
	rs, ts, us := setupRecommendationTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	var newTasks []NewTask
	for i, title := range []string{"a", "b", "c"} {
		task, err := ts.Create(u.ID, title, "", nil, 7)
		if err != nil {
			t.Fatalf("create task: %v", err)
		}
		newTasks = append(newTasks, NewTask{TaskID: task.ID, Priority: i + 1})
	}

	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := rs.Create(u.ID, week, newTasks)
	if err != nil {
		t.Fatalf("create recommendation: %v", err)
	}

	progress, err := rs.Progress(rec.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Total != 3 || progress.Completed != 0 {
		t.Errorf("progress = %+v, want 3 total / 0 completed", progress)
	}

	members, _ := rs.ListTasks(rec.ID)
	if err := rs.SetTaskCompleted(members[0].ID, u.ID, true); err != nil {
		t.Fatalf("set completed: %v", err)
	}

	progress, err = rs.Progress(rec.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.Completed != 1 || progress.Remaining() != 2 {
		t.Errorf("progress = %+v, want 1 completed / 2 remaining", progress)
	}
}

func TestSetTaskCompletedScopedToOwner(t *testing.T) {
	rs, ts, us := setupRecommendationTestDB(t)
	alice := createTestUser(t, us, "alice@example.com")
	bob := createTestUser(t, us, "bob@example.com")

	task, err := ts.Create(alice.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := rs.Create(alice.ID, week, []NewTask{{TaskID: task.ID, Priority: 1}})
	if err != nil {
		t.Fatalf("create recommendation: %v", err)
	}

	members, _ := rs.ListTasks(rec.ID)
	if err := rs.SetTaskCompleted(members[0].ID, bob.ID, true); err == nil {
		t.Error("expected error completing another user's recommended task")
	}
}

func TestRecommendedTasksCascadeOnTaskDelete(t *testing.T) {
	rs, ts, us := setupRecommendationTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	task, err := ts.Create(u.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	week := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec, err := rs.Create(u.ID, week, []NewTask{{TaskID: task.ID, Priority: 1}})
	if err != nil {
		t.Fatalf("create recommendation: %v", err)
	}

	if err := ts.Delete(task.ID, u.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}

	members, err := rs.ListTasks(rec.ID)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected cascade delete, got %d members", len(members))
	}
}
