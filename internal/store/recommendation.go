package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mossrock/bramble/internal/model"
)

type RecommendationStore struct {
	db *sql.DB
}

func NewRecommendationStore(db *sql.DB) *RecommendationStore {
	return &RecommendationStore{db: db}
}

func scanRecommendation(scanner interface{ Scan(...any) error }) (*model.WeeklyRecommendation, error) {
	var r model.WeeklyRecommendation
	err := scanner.Scan(&r.ID, &r.UserID, &r.WeekStart, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const recommendationCols = `id, user_id, week_start, created_at`

// NewTask describes one member of a recommendation set about to be created.
type NewTask struct {
	TaskID   int64
	Priority int
	Reason   string
}

// Create inserts a recommendation set and its member tasks in one
// transaction. The UNIQUE(user_id, week_start) constraint makes duplicate
// generation for the same week fail rather than fork a second set.
func (s *RecommendationStore) Create(userID int64, weekStart time.Time, tasks []NewTask) (*model.WeeklyRecommendation, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO weekly_recommendations (user_id, week_start) VALUES (?, ?)`,
		userID, weekStart.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert recommendation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, t := range tasks {
		_, err := tx.Exec(
			`INSERT INTO recommended_tasks (recommendation_id, task_id, priority, reason) VALUES (?, ?, ?, ?)`,
			id, t.TaskID, t.Priority, t.Reason,
		)
		if err != nil {
			return nil, fmt.Errorf("insert recommended task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+recommendationCols+` FROM weekly_recommendations WHERE id = ?`, id)
	return scanRecommendation(row)
}

// GetByUserWeek returns the recommendation set for a user and week start,
// or nil if none exists yet.
func (s *RecommendationStore) GetByUserWeek(userID int64, weekStart time.Time) (*model.WeeklyRecommendation, error) {
	row := s.db.QueryRow(
		`SELECT `+recommendationCols+` FROM weekly_recommendations WHERE user_id = ? AND week_start = ?`,
		userID, weekStart.UTC(),
	)
	r, err := scanRecommendation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return r, nil
}

func scanRecommendedTask(scanner interface{ Scan(...any) error }) (*model.RecommendedTask, error) {
	var t model.RecommendedTask
	var completedInt int
	err := scanner.Scan(&t.ID, &t.RecommendationID, &t.TaskID, &t.Priority, &t.Reason, &completedInt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Completed = completedInt != 0
	return &t, nil
}

const recommendedTaskCols = `id, recommendation_id, task_id, priority, reason, completed, created_at`

// ListTasks returns the member tasks of a recommendation set, most urgent
// first.
func (s *RecommendationStore) ListTasks(recommendationID int64) ([]model.RecommendedTask, error) {
	rows, err := s.db.Query(
		`SELECT `+recommendedTaskCols+` FROM recommended_tasks WHERE recommendation_id = ? ORDER BY priority ASC, id ASC`,
		recommendationID,
	)
	if err != nil {
		return nil, fmt.Errorf("list recommended tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.RecommendedTask
	for rows.Next() {
		t, err := scanRecommendedTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recommended task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Progress returns completion counts for a recommendation set.
func (s *RecommendationStore) Progress(recommendationID int64) (model.RecommendationProgress, error) {
	var p model.RecommendationProgress
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(completed), 0) FROM recommended_tasks WHERE recommendation_id = ?`,
		recommendationID,
	).Scan(&p.Total, &p.Completed)
	if err != nil {
		return p, fmt.Errorf("recommendation progress: %w", err)
	}
	return p, nil
}

// SetTaskCompleted flips the completed flag on one recommended task,
// scoped to the owning user.
func (s *RecommendationStore) SetTaskCompleted(id, userID int64, completed bool) error {
	var completedInt int
	if completed {
		completedInt = 1
	}
	result, err := s.db.Exec(
		`UPDATE recommended_tasks SET completed = ?
		 WHERE id = ? AND recommendation_id IN (SELECT id FROM weekly_recommendations WHERE user_id = ?)`,
		completedInt, id, userID,
	)
	if err != nil {
		return fmt.Errorf("set recommended task completed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
