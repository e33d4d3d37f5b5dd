package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mossrock/bramble/internal/auth"
	"github.com/mossrock/bramble/internal/model"
	"github.com/mossrock/bramble/internal/store"
)

type BirthdayHandler struct {
	birthdays *store.BirthdayStore
	logger    *slog.Logger
}

func NewBirthdayHandler(bs *store.BirthdayStore, logger *slog.Logger) *BirthdayHandler {
	return &BirthdayHandler{birthdays: bs, logger: logger}
}

type birthdayRequest struct {
	Name  string `json:"name"`
	Month int    `json:"month"`
	Day   int    `json:"day"`
}

func (req *birthdayRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Month < 1 || req.Month > 12 {
		return "month must be 1-12"
	}
	if req.Day < 1 || req.Day > 31 {
		return "day must be 1-31"
	}
	return ""
}

func (h *BirthdayHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req birthdayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	b, err := h.birthdays.Create(userID, req.Name, req.Month, req.Day)
	if err != nil {
		h.logger.Error("create birthday", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create birthday")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *BirthdayHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	birthdays, err := h.birthdays.ListByUser(userID)
	if err != nil {
		h.logger.Error("list birthdays", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list birthdays")
		return
	}
	if birthdays == nil {
		birthdays = []model.Birthday{}
	}
	writeJSON(w, http.StatusOK, birthdays)
}

func (h *BirthdayHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.birthdays.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get birthday")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "birthday not found")
		return
	}

	var req birthdayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	b, err := h.birthdays.Update(id, userID, req.Name, req.Month, req.Day)
	if err != nil {
		h.logger.Error("update birthday", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update birthday")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *BirthdayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.birthdays.GetByID(id, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get birthday")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "birthday not found")
		return
	}

	if err := h.birthdays.Delete(id, userID); err != nil {
		h.logger.Error("delete birthday", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete birthday")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
