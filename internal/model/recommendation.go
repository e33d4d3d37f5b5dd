package model

import "time"

// WeeklyRecommendation is one user's recommended-task set for one calendar
// week. WeekStart is normalized to Monday 00:00 UTC; at most one set exists
// per (user, week).
type WeeklyRecommendation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	WeekStart time.Time `json:"week_start"`
	CreatedAt time.Time `json:"created_at"`
}

// RecommendedTask is one member of a WeeklyRecommendation. Lower priority
// means more urgent.
type RecommendedTask struct {
	ID               int64     `json:"id"`
	RecommendationID int64     `json:"recommendation_id"`
	TaskID           int64     `json:"task_id"`
	Priority         int       `json:"priority"`
	Reason           string    `json:"reason"`
	Completed        bool      `json:"completed"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecommendationProgress summarizes completion state for digest and
// reminder payloads.
type RecommendationProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

func (p RecommendationProgress) Remaining() int {
	return p.Total - p.Completed
}
