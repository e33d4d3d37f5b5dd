package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/schedule"
)

// ErrInvalidSchedule is returned when a preference update carries a
// malformed cron expression. Surfaced to the settings form, never to the
// dispatch tick.
var ErrInvalidSchedule = errors.New("invalid schedule expression")

// Default schedules seeded at registration.
var defaultPreferences = []struct {
	kind     string
	schedule string
}{
	{model.KindWeeklyDigest, "0 8 * * 1"}, // Monday morning
	{model.KindTaskReminder, "0 8 * * 5"}, // Friday morning
}

type PreferenceStore struct {
	db *sql.DB
}

func NewPreferenceStore(db *sql.DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

func scanPreference(scanner interface{ Scan(...any) error }) (*model.NotificationPreference, error) {
	var p model.NotificationPreference
	var enabledInt int
	var lastSent sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Kind, &enabledInt, &p.Schedule,
		&lastSent, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Enabled = enabledInt != 0
	if lastSent.Valid {
		t := lastSent.Time
		p.LastSentAt = &t
	}
	return &p, nil
}

const preferenceCols = `id, user_id, kind, enabled, schedule, last_sent_at, created_at, updated_at`

// Upsert creates or updates the preference for (user, kind). The schedule
// must be a syntactically valid 5-field cron expression.
func (s *PreferenceStore) Upsert(userID int64, kind string, enabled bool, sched string) (*model.NotificationPreference, error) {
	if !schedule.IsValid(sched) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, sched)
	}

	var enabledInt int
	if enabled {
		enabledInt = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO notification_preferences (user_id, kind, enabled, schedule)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, kind) DO UPDATE SET
		   enabled = excluded.enabled, schedule = excluded.schedule, updated_at = CURRENT_TIMESTAMP`,
		userID, kind, enabledInt, sched,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert preference: %w", err)
	}
	return s.GetByUserKind(userID, kind)
}

// SeedDefaults creates the default preference rows for a new user. Existing
// rows are left untouched.
func (s *PreferenceStore) SeedDefaults(userID int64) error {
	for _, d := range defaultPreferences {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO notification_preferences (user_id, kind, enabled, schedule)
			 VALUES (?, ?, 1, ?)`,
			userID, d.kind, d.schedule,
		)
		if err != nil {
			return fmt.Errorf("seed preference %s: %w", d.kind, err)
		}
	}
	return nil
}

func (s *PreferenceStore) GetByUserKind(userID int64, kind string) (*model.NotificationPreference, error) {
	row := s.db.QueryRow(
		`SELECT `+preferenceCols+` FROM notification_preferences WHERE user_id = ? AND kind = ?`,
		userID, kind,
	)
	p, err := scanPreference(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return p, nil
}

func (s *PreferenceStore) ListByUser(userID int64) ([]model.NotificationPreference, error) {
	rows, err := s.db.Query(
		`SELECT `+preferenceCols+` FROM notification_preferences WHERE user_id = ? ORDER BY kind ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()
	return collectPreferences(rows)
}

// ListEnabledDue returns every enabled preference whose schedule matches
// now at minute granularity. All enabled rows are scanned each tick; there
// is no persisted next-fire cache. A preference already marked sent within
// the same calendar minute is suppressed, so an immediate re-run of a tick
// finds nothing newly due. Rows with unparseable schedules are logged and
// skipped, never fatal.
func (s *PreferenceStore) ListEnabledDue(now time.Time) ([]model.NotificationPreference, error) {
	rows, err := s.db.Query(
		`SELECT ` + preferenceCols + ` FROM notification_preferences WHERE enabled = 1 ORDER BY user_id ASC, kind ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list enabled preferences: %w", err)
	}
	defer rows.Close()

	prefs, err := collectPreferences(rows)
	if err != nil {
		return nil, err
	}

	minute := now.Truncate(time.Minute)
	var due []model.NotificationPreference
	for _, p := range prefs {
		match, err := schedule.Due(p.Schedule, now)
		if err != nil {
			slog.Warn("skipping preference with bad schedule",
				"user_id", p.UserID, "kind", p.Kind, "schedule", p.Schedule, "error", err)
			continue
		}
		if !match {
			continue
		}
		if p.LastSentAt != nil && p.LastSentAt.UTC().Truncate(time.Minute).Equal(minute.UTC()) {
			continue
		}
		due = append(due, p)
	}
	return due, nil
}

// MarkSent records the last-fired time for a preference.
func (s *PreferenceStore) MarkSent(id int64, at time.Time) error {
	_, err := s.db.Exec(
		`UPDATE notification_preferences SET last_sent_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		at.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark preference sent: %w", err)
	}
	return nil
}

func collectPreferences(rows *sql.Rows) ([]model.NotificationPreference, error) {
	var prefs []model.NotificationPreference
	for rows.Next() {
		p, err := scanPreference(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, *p)
	}
	return prefs, rows.Err()
}
