package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mossrock/bramble/internal/auth"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
	"github.com/mossrock/bramble/internal/task"
)

type TaskHandler struct {
	tasks      *store.TaskStore
	categories *store.CategoryStore
	logger     *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, cs *store.CategoryStore, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{tasks: ts, categories: cs, logger: logger}
}

type taskRequest struct {
	Title        string `json:"title"`
	Notes        string `json:"notes"`
	CategoryID   *int64 `json:"category_id"`
	IntervalDays int    `json:"interval_days"`
}

// taskView is a task annotated with its computed schedule status.
type taskView struct {
	model.Task
	Status  task.Status `json:"status"`
	DueDate *time.Time  `json:"due_date,omitempty"`
}

func (h *TaskHandler) validate(req *taskRequest, userID int64) (int, string) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return http.StatusBadRequest, "title is required"
	}
	if req.IntervalDays < 0 {
		return http.StatusBadRequest, "interval_days cannot be negative"
	}
	if req.CategoryID != nil {
		cat, err := h.categories.GetByID(*req.CategoryID, userID)
		if err != nil {
			return http.StatusInternalServerError, "failed to check category"
		}
		if cat == nil {
			return http.StatusBadRequest, "category not found"
		}
	}
	return 0, ""
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if status, msg := h.validate(&req, userID); status != 0 {
		writeError(w, status, msg)
		return
	}

	t, err := h.tasks.Create(userID, req.Title, req.Notes, req.CategoryID, req.IntervalDays)
	if err != nil {
		h.logger.Error("create task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	tasks, err := h.tasks.ListByUser(userID)
	if err != nil {
		h.logger.Error("list tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	completions, err := h.tasks.LastCompletions(userID)
	if err != nil {
		h.logger.Error("list completions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}

	now := time.Now().UTC()
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		var last *time.Time
		if at, ok := completions[t.ID]; ok {
			last = &at
		}
		status, due := task.ComputeStatus(t, last, now)
		views = append(views, taskView{Task: t, Status: status, DueDate: due})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	t, err := h.tasks.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if t == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.tasks.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if status, msg := h.validate(&req, userID); status != 0 {
		writeError(w, status, msg)
		return
	}

	t, err := h.tasks.Update(id, userID, req.Title, req.Notes, req.CategoryID, req.IntervalDays)
	if err != nil {
		h.logger.Error("update task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.tasks.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	if err := h.tasks.Delete(id, userID); err != nil {
		h.logger.Error("delete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.tasks.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get task")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	completion, err := h.tasks.Complete(id, time.Now().UTC())
	if err != nil {
		h.logger.Error("complete task", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}
	writeJSON(w, http.StatusCreated, completion)
}
