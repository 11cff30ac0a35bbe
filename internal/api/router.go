package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/qruntime/internal/api/middleware"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
// RateLimit may be nil, in which case requests are not limited.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	CreateSession http.HandlerFunc
	ListSessions  http.HandlerFunc
	GetSession    http.HandlerFunc
	UpdateSession http.HandlerFunc
	CancelSession http.HandlerFunc
	SessionJobs   http.HandlerFunc
	SessionEvents http.HandlerFunc

	CreateJob  http.HandlerFunc
	ListJobs   http.HandlerFunc
	GetJob     http.HandlerFunc
	CancelJob  http.HandlerFunc
	JobResults http.HandlerFunc
	JobEvents  http.HandlerFunc

	ListBackends http.HandlerFunc
	GetBackend   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Post("/v1/sessions", orNotImplemented(deps.CreateSession))
		r.Get("/v1/sessions", orNotImplemented(deps.ListSessions))
		r.Get("/v1/sessions/{sessionID}", orNotImplemented(deps.GetSession))
		r.Patch("/v1/sessions/{sessionID}", orNotImplemented(deps.UpdateSession))
		r.Delete("/v1/sessions/{sessionID}/close", orNotImplemented(deps.CancelSession))
		r.Get("/v1/sessions/{sessionID}/jobs", orNotImplemented(deps.SessionJobs))
		r.Get("/v1/sessions/{sessionID}/events", orNotImplemented(deps.SessionEvents))

		r.Post("/v1/jobs", orNotImplemented(deps.CreateJob))
		r.Get("/v1/jobs", orNotImplemented(deps.ListJobs))
		r.Get("/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))
		r.Delete("/v1/jobs/{jobID}", orNotImplemented(deps.CancelJob))
		r.Get("/v1/jobs/{jobID}/results", orNotImplemented(deps.JobResults))
		r.Get("/v1/jobs/{jobID}/events", orNotImplemented(deps.JobEvents))

		r.Get("/v1/backends", orNotImplemented(deps.ListBackends))
		r.Get("/v1/backends/{name}", orNotImplemented(deps.GetBackend))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, response.CodeNotImplemented, "Endpoint not yet implemented", nil)
	}
}
