package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mossrock/bramble/internal/auth"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/schedule"
	"github.com/mossrock/bramble/internal/store"
)

// PreferenceHandler manages notification schedules. The API accepts
// either a raw cron expression or the friendly day/time-of-day pair the
// settings page uses, and always returns both projections.
type PreferenceHandler struct {
	preferences *store.PreferenceStore
	logger      *slog.Logger
}

func NewPreferenceHandler(ps *store.PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{preferences: ps, logger: logger}
}

type preferenceView struct {
	model.NotificationPreference
	Day       string `json:"day"`
	TimeOfDay string `json:"time_of_day"`
}

func newPreferenceView(p model.NotificationPreference) preferenceView {
	return preferenceView{
		NotificationPreference: p,
		Day:                    strings.ToLower(schedule.DayOfWeek(p.Schedule).String()),
		TimeOfDay:              string(schedule.TimeBucket(p.Schedule)),
	}
}

func (h *PreferenceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.preferences.ListByUser(userID)
	if err != nil {
		h.logger.Error("list preferences", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list preferences")
		return
	}

	views := make([]preferenceView, 0, len(prefs))
	for _, p := range prefs {
		views = append(views, newPreferenceView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

type preferenceRequest struct {
	Enabled   bool   `json:"enabled"`
	Schedule  string `json:"schedule"`
	Day       string `json:"day"`
	TimeOfDay string `json:"time_of_day"`
}

// scheduleExpr resolves the request to a cron expression. A raw
// schedule wins; otherwise the day/time-of-day pair is converted.
func (req preferenceRequest) scheduleExpr() (string, string) {
	if s := strings.TrimSpace(req.Schedule); s != "" {
		return s, ""
	}
	day, ok := schedule.WeekdayFromName(req.Day)
	if !ok {
		return "", "unknown day"
	}
	bucket, ok := schedule.BucketFromName(req.TimeOfDay)
	if !ok {
		return "", "unknown time of day"
	}
	return schedule.Build(day, bucket), ""
}

func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	kind := r.PathValue("kind")
	if kind != model.KindWeeklyDigest && kind != model.KindTaskReminder {
		writeError(w, http.StatusNotFound, "unknown notification kind")
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	expr, msg := req.scheduleExpr()
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	pref, err := h.preferences.Upsert(userID, kind, req.Enabled, expr)
	if err != nil {
		if errors.Is(err, store.ErrInvalidSchedule) {
			writeError(w, http.StatusBadRequest, "invalid schedule expression")
			return
		}
		h.logger.Error("upsert preference", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update preference")
		return
	}
	writeJSON(w, http.StatusOK, newPreferenceView(*pref))
}
