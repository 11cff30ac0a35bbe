package handler

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// NewCreateJobHandler returns an http.HandlerFunc for POST /v1/jobs.
func NewCreateJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ProgramID string          `json:"program_id"`
			Backend   string          `json:"backend"`
			Params    json.RawMessage `json:"params"`
			SessionID string          `json:"session_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "Invalid JSON body", nil)
			return
		}
		if req.ProgramID == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "program_id is required", nil)
			return
		}
		if req.Backend == "" {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "backend is required", nil)
			return
		}

		job, err := svc.Submit(r.Context(), engine.SubmitParams{
			Program:   req.ProgramID,
			Backend:   req.Backend,
			Params:    req.Params,
			SessionID: req.SessionID,
		})
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.Created(w, job)
	}
}

// NewListJobsHandler returns an http.HandlerFunc for GET /v1/jobs.
// Jobs are listed newest first.
func NewListJobsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
			return
		}

		q := r.URL.Query()
		filter := engine.ListFilter{
			Backend:   q.Get("backend"),
			SessionID: q.Get("session_id"),
			Program:   q.Get("program"),
		}
		if v := q.Get("status"); v != "" {
			filter.Status = models.JobStatus(strings.ToUpper(v))
			if !filter.Status.Valid() {
				response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, "unknown status "+v, nil)
				return
			}
		}

		jobs := svc.List(r.Context(), filter)
		slices.Reverse(jobs)
		items, meta := page(jobs, skip, limit)
		response.Collection(w, items, meta)
	}
}

// NewGetJobHandler returns an http.HandlerFunc for GET /v1/jobs/{jobID}.
func NewGetJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := svc.Status(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.JSON(w, job)
	}
}

// NewJobResultsHandler returns an http.HandlerFunc for GET
// /v1/jobs/{jobID}/results. The executor's result is returned unwrapped.
func NewJobResultsHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Result(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.Raw(w, http.StatusOK, res)
	}
}

// NewCancelJobHandler returns an http.HandlerFunc for DELETE /v1/jobs/{jobID}.
func NewCancelJobHandler(svc JobService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := svc.Cancel(r.Context(), chi.URLParam(r, "jobID")); err != nil {
			writeEngineError(w, err)
			return
		}
		response.NoContent(w)
	}
}
