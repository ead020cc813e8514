package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/verte-zerg/pomo/internal/model"
	"github.com/verte-zerg/pomo/internal/pomodoro"
)

// PomodoroHandler handles session lifecycle requests.
type PomodoroHandler struct {
	svc    Lifecycle
	logger *slog.Logger
}

// NewPomodoroHandler creates a new pomodoro handler.
func NewPomodoroHandler(svc Lifecycle, logger *slog.Logger) *PomodoroHandler {
	return &PomodoroHandler{svc: svc, logger: logger}
}

// Start handles POST /pomodoros/start/{userId}
func (h *PomodoroHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req model.StartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.svc.Start(r.Context(), chi.URLParam(r, "userId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// Log handles POST /pomodoros/log/{userId}
func (h *PomodoroHandler) Log(w http.ResponseWriter, r *http.Request) {
	var req model.LogRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sess, err := h.svc.Log(r.Context(), chi.URLParam(r, "userId"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// List handles GET /pomodoros
func (h *PomodoroHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.List(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []model.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// Stats handles GET /pomodoros/stats/{userId}
func (h *PomodoroHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *PomodoroHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if pomodoro.IsValidation(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.logger.Error("request failed", "request_id", GetRequestID(r), "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}
