package model

import "time"

// Notification kinds dispatched on a schedule.
const (
	KindWeeklyDigest = "weekly_digest"
	KindTaskReminder = "task_reminder"
)

// NotificationPreference holds one user's schedule for one notification
// kind. Schedule is a 5-field cron expression; the settings UI only ever
// writes the reduced "0 {hour} * * {day}" form.
type NotificationPreference struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Kind       string     `json:"kind"`
	Enabled    bool       `json:"enabled"`
	Schedule   string     `json:"schedule"`
	LastSentAt *time.Time `json:"last_sent_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Notification is an in-app inbox entry.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
