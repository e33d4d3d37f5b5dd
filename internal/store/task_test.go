package store

import (
	"testing"
	"time"

	"github.com/mossrock/bramble/internal/database"
)

func setupTaskTestDB(t *testing.T) (*TaskStore, *CategoryStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTaskStore(db), NewCategoryStore(db), NewUserStore(db)
}

func TestTaskCRUD(t *testing.T) {
	ts, cs, us := setupTaskTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	cat, err := cs.Create(u.ID, "Home", "#aabbcc")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}

	task, err := ts.Create(u.ID, "Water plants", "the ficus too", &cat.ID, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Title != "Water plants" {
		t.Errorf("title = %q, want %q", task.Title, "Water plants")
	}
	if task.IntervalDays != 7 {
		t.Errorf("interval_days = %d, want 7", task.IntervalDays)
	}
	if task.CategoryID == nil || *task.CategoryID != cat.ID {
		t.Errorf("category_id = %v, want %d", task.CategoryID, cat.ID)
	}

	updated, err := ts.Update(task.ID, u.ID, "Water all plants", "", nil, 10)
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != "Water all plants" || updated.IntervalDays != 10 {
		t.Errorf("updated = %+v", updated)
	}
	if updated.CategoryID != nil {
		t.Error("expected category cleared")
	}

	if err := ts.Delete(task.ID, u.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	got, err := ts.GetByID(task.ID, u.ID)
	if err != nil {
		t.Fatalf("get deleted task: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted task")
	}
}

func TestTaskScopedToUser(t *testing.T) {
	ts, _, us := setupTaskTestDB(t)
	alice := createTestUser(t, us, "alice@example.com")
	bob := createTestUser(t, us, "bob@example.com")

	task, err := ts.Create(alice.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	got, err := ts.GetByID(task.ID, bob.ID)
	if err != nil {
		t.Fatalf("get task as bob: %v", err)
	}
	if got != nil {
		t.Error("expected nil fetching another user's task")
	}
}

func TestTaskCompletions(t *testing.T) {
	ts, _, us := setupTaskTestDB(t)
	u := createTestUser(t, us, "alice@example.com")

	task, err := ts.Create(u.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	last, err := ts.LastCompletion(task.ID)
	if err != nil {
		t.Fatalf("last completion: %v", err)
	}
	if last != nil {
		t.Error("expected nil before any completion")
	}

	first := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	second := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	if _, err := ts.Complete(task.ID, first); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := ts.Complete(task.ID, second); err != nil {
		t.Fatalf("complete: %v", err)
	}

	last, err = ts.LastCompletion(task.ID)
	if err != nil {
		t.Fatalf("last completion: %v", err)
	}
	if last == nil || !last.CompletedAt.Equal(second) {
		t.Errorf("last completion = %+v, want %v", last, second)
	}

	latest, err := ts.LastCompletions(u.ID)
	if err != nil {
		t.Fatalf("last completions: %v", err)
	}
	if got, ok := latest[task.ID]; !ok || !got.Equal(second) {
		t.Errorf("latest[%d] = %v, want %v", task.ID, got, second)
	}
}

func TestLastCompletionsAcrossTasks(t *testing.T) {
	ts, _, us := setupTaskTestDB(t)
	alice := createTestUser(t, us, "alice@example.com")
	bob := createTestUser(t, us, "bob@example.com")

	plants, err := ts.Create(alice.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	gutters, err := ts.Create(alice.ID, "Clean gutters", "", nil, 30)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	never, err := ts.Create(alice.ID, "Fix fence", "", nil, 0)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	bobs, err := ts.Create(bob.ID, "Water plants", "", nil, 7)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	// Interleave completions across tasks so per-task latest differs
	// from global latest.
	times := []struct {
		taskID int64
		at     time.Time
	}{
		{plants.ID, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)},
		{gutters.ID, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)},
		{plants.ID, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)},
		{bobs.ID, time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC)},
	}
	for _, c := range times {
		if _, err := ts.Complete(c.taskID, c.at); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	latest, err := ts.LastCompletions(alice.ID)
	if err != nil {
		t.Fatalf("last completions: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 entries, got %d (%v)", len(latest), latest)
	}
	if got := latest[plants.ID]; !got.Equal(times[2].at) {
		t.Errorf("latest[plants] = %v, want %v", got, times[2].at)
	}
	if got := latest[gutters.ID]; !got.Equal(times[1].at) {
		t.Errorf("latest[gutters] = %v, want %v", got, times[1].at)
	}
	if _, ok := latest[never.ID]; ok {
		t.Error("never-completed task should be absent")
	}
	if _, ok := latest[bobs.ID]; ok {
		t.Error("another user's task should be absent")
	}
}
