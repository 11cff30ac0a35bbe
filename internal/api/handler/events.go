package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
	"github.com/kiranshivaraju/qruntime/internal/store"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// NewSessionEventsHandler returns an http.HandlerFunc for GET
// /v1/sessions/{sessionID}/events.
func NewSessionEventsHandler(sessions SessionService, events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		listEvents(w, r, events, store.EventFilter{SessionID: sess.ID})
	}
}

// NewJobEventsHandler returns an http.HandlerFunc for GET /v1/jobs/{jobID}/events.
func NewJobEventsHandler(jobs JobService, events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := jobs.Status(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		listEvents(w, r, events, store.EventFilter{JobID: job.ID})
	}
}

func listEvents(w http.ResponseWriter, r *http.Request, events EventReader, filter store.EventFilter) {
	skip, limit, err := pagination(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
		return
	}
	filter.Kind = models.EventKind(r.URL.Query().Get("kind"))
	filter.Offset = skip
	filter.Limit = limit

	list, err := events.ListEvents(r.Context(), filter)
	if err != nil {
		slog.Error("list events failed", "error", err)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal, "Failed to read event journal", nil)
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	response.JSON(w, list)
}
