package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mossrock/bramble/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var categoryID sql.NullInt64

	err := scanner.Scan(
		&t.ID, &t.UserID, &categoryID, &t.Title, &t.Notes,
		&t.IntervalDays, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	return &t, nil
}

const taskCols = `id, user_id, category_id, title, notes, interval_days, created_at, updated_at`

func (s *TaskStore) Create(userID int64, title, notes string, categoryID *int64, intervalDays int) (*model.Task, error) {
	var cID sql.NullInt64
	if categoryID != nil {
		cID = sql.NullInt64{Int64: *categoryID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO tasks (user_id, category_id, title, notes, interval_days) VALUES (?, ?, ?, ?, ?)`,
		userID, cID, title, notes, intervalDays,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *TaskStore) GetByID(id, userID int64) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *TaskStore) ListByUser(userID int64) ([]model.Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskCols+` FROM tasks WHERE user_id = ? ORDER BY title ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Update(id, userID int64, title, notes string, categoryID *int64, intervalDays int) (*model.Task, error) {
	var cID sql.NullInt64
	if categoryID != nil {
		cID = sql.NullInt64{Int64: *categoryID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE tasks SET title = ?, notes = ?, category_id = ?, interval_days = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ?`,
		title, notes, cID, intervalDays, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *TaskStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// --- Completion methods ---

func scanTaskCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	err := scanner.Scan(&c.ID, &c.TaskID, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, task_id, completed_at`

func (s *TaskStore) Complete(taskID int64, at time.Time) (*model.TaskCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO task_completions (task_id, completed_at) VALUES (?, ?)`,
		taskID, at.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	return scanTaskCompletion(row)
}

// LastCompletion returns the most recent completion for a task, or nil.
func (s *TaskStore) LastCompletion(taskID int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM task_completions WHERE task_id = ? ORDER BY completed_at DESC LIMIT 1`,
		taskID,
	)
	c, err := scanTaskCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last completion: %w", err)
	}
	return c, nil
}

// LastCompletions returns the most recent completion time per task for a
// user, keyed by task ID. Tasks never completed are absent. The raw
// completed_at column is selected rather than MAX() so the driver keeps
// the column's DATETIME type for scanning.
func (s *TaskStore) LastCompletions(userID int64) (map[int64]time.Time, error) {
	rows, err := s.db.Query(
		`SELECT c.task_id, c.completed_at
		 FROM task_completions c
		 JOIN tasks t ON t.id = c.task_id
		 WHERE t.user_id = ?
		 ORDER BY c.completed_at DESC, c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("last completions: %w", err)
	}
	defer rows.Close()

	latest := make(map[int64]time.Time)
	for rows.Next() {
		var taskID int64
		var at time.Time
		if err := rows.Scan(&taskID, &at); err != nil {
			return nil, fmt.Errorf("scan last completion: %w", err)
		}
		if _, ok := latest[taskID]; !ok {
			latest[taskID] = at
		}
	}
	return latest, rows.Err()
}
