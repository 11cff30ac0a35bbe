package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

type sessionResponse struct {
	*models.Session
	ElapsedTime   float64  `json:"elapsed_time"`
	RemainingTime *float64 `json:"remaining_time,omitempty"`
}

func newSessionResponse(s *models.Session, now time.Time) sessionResponse {
	resp := sessionResponse{Session: s, ElapsedTime: s.Elapsed(now).Seconds()}
	if left, ok := s.Remaining(now); ok {
		secs := left.Seconds()
		resp.RemainingTime = &secs
	}
	return resp
}

// NewCreateSessionHandler returns an http.HandlerFunc for POST /v1/sessions.
func NewCreateSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode     string `json:"mode"`
			Backend  string `json:"backend"`
			Instance string `json:"instance"`
			MaxTTL   *int   `json:"max_ttl"`
		}
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}
		if req.Backend == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "backend is required", nil)
			return
		}
		mode := models.SessionMode(req.Mode)
		if mode == "" {
			mode = models.SessionModeDedicated
		}

		sess, err := svc.Create(r.Context(), engine.CreateSessionParams{
			Mode:     mode,
			Backend:  req.Backend,
			Instance: req.Instance,
			MaxTTL:   req.MaxTTL,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.Created(w, newSessionResponse(sess, time.Now()))
	}
}

// NewListSessionsHandler returns an http.HandlerFunc for GET /v1/sessions.
func NewListSessionsHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}
		items, meta := page(svc.List(r.Context()), skip, limit)
		now := time.Now()
		out := make([]sessionResponse, 0, len(items))
		for _, s := range items {
			out = append(out, newSessionResponse(s, now))
		}
		response.Collection(w, out, meta)
	}
}

// NewGetSessionHandler returns an http.HandlerFunc for GET /v1/sessions/{sessionID}.
func NewGetSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.JSON(w, newSessionResponse(sess, time.Now()))
	}
}

// NewUpdateSessionHandler returns an http.HandlerFunc for PATCH
// /v1/sessions/{sessionID}. The only supported update is
// accepting_jobs=false, which closes the session.
func NewUpdateSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AcceptingJobs *bool `json:"accepting_jobs"`
		}
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}
		if req.AcceptingJobs == nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "accepting_jobs is required", nil)
			return
		}
		if *req.AcceptingJobs {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest,
				"a closed session cannot be reopened", nil)
			return
		}

		sess, err := svc.Close(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.JSON(w, newSessionResponse(sess, time.Now()))
	}
}

// NewCancelSessionHandler returns an http.HandlerFunc for DELETE
// /v1/sessions/{sessionID}/close. Queued jobs are cancelled.
func NewCancelSessionHandler(svc SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Cancel(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
			writeEngineError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewSessionJobsHandler returns an http.HandlerFunc for GET
// /v1/sessions/{sessionID}/jobs. Jobs are listed in submission order.
func NewSessionJobsHandler(sessions SessionService, jobs JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}
		sess, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		items, meta := page(jobs.List(r.Context(), engine.ListFilter{SessionID: sess.ID}), skip, limit)
		response.Collection(w, items, meta)
	}
}
