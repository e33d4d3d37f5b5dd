package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mossrock/bramble/internal/auth"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/recommend"
	"github.com/mossrock/bramble/internal/store"
)

type RecommendationHandler struct {
	generator       *recommend.Generator
	recommendations *store.RecommendationStore
	tasks           *store.TaskStore
	logger          *slog.Logger
}

func NewRecommendationHandler(gen *recommend.Generator, rs *store.RecommendationStore, ts *store.TaskStore, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		generator:       gen,
		recommendations: rs,
		tasks:           ts,
		logger:          logger,
	}
}

type recommendedTaskView struct {
	model.RecommendedTask
	Title string `json:"title"`
}

type recommendationView struct {
	model.WeeklyRecommendation
	Tasks    []recommendedTaskView        `json:"tasks"`
	Progress model.RecommendationProgress `json:"progress"`
}

// Current returns this week's recommendation set, generating it on
// first request. Repeat calls in the same week return the same set.
func (h *RecommendationHandler) Current(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	weekStart := recommend.WeekStart(time.Now().UTC())

	rec, _, err := h.generator.EnsureForWeek(userID, weekStart)
	if err != nil {
		h.logger.Error("ensure recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}

	view, err := h.buildView(rec, userID)
	if err != nil {
		h.logger.Error("build recommendation view", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RecommendationHandler) buildView(rec *model.WeeklyRecommendation, userID int64) (*recommendationView, error) {
	members, err := h.recommendations.ListTasks(rec.ID)
	if err != nil {
		return nil, err
	}
	progress, err := h.recommendations.Progress(rec.ID)
	if err != nil {
		return nil, err
	}

	views := make([]recommendedTaskView, 0, len(members))
	for _, m := range members {
		title := "(deleted task)"
		if t, err := h.tasks.GetByID(m.TaskID, userID); err == nil && t != nil {
			title = t.Title
		}
		views = append(views, recommendedTaskView{RecommendedTask: m, Title: title})
	}

	return &recommendationView{
		WeeklyRecommendation: *rec,
		Tasks:                views,
		Progress:             progress,
	}, nil
}

// Regenerate requests a fresh set for the current week. Generation is
// idempotent per week, so an existing set is returned unchanged; the
// response reports whether anything was actually generated.
func (h *RecommendationHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	weekStart := recommend.WeekStart(time.Now().UTC())

	rec, created, err := h.generator.EnsureForWeek(userID, weekStart)
	if err != nil {
		h.logger.Error("ensure recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate recommendations")
		return
	}

	view, err := h.buildView(rec, userID)
	if err != nil {
		h.logger.Error("build recommendation view", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load recommendations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"generated":      created,
		"recommendation": view,
	})
}

// CompleteTask toggles the completed flag on one recommended task.
func (h *RecommendationHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := h.recommendations.SetTaskCompleted(id, userID, true); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "recommended task not found")
			return
		}
		h.logger.Error("complete recommended task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete recommended task")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
