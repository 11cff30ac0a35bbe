// Package handler implements the HTTP handlers for sessions, jobs,
// backends and the event journal.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kiranshivaraju/qruntime/internal/api/response"
	"github.com/kiranshivaraju/qruntime/internal/backend"
	"github.com/kiranshivaraju/qruntime/internal/engine"
	"github.com/kiranshivaraju/qruntime/internal/store"
	"github.com/kiranshivaraju/qruntime/pkg/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// SessionService is the part of the session manager the handlers use.
type SessionService interface {
	Create(ctx context.Context, p engine.CreateSessionParams) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	List(ctx context.Context) []*models.Session
	Close(ctx context.Context, id string) (*models.Session, error)
	Cancel(ctx context.Context, id string) (*models.Session, error)
}

// JobService is the part of the job manager the handlers use.
type JobService interface {
	Submit(ctx context.Context, p engine.SubmitParams) (*models.Job, error)
	Status(ctx context.Context, id string) (*models.Job, error)
	Result(ctx context.Context, id string) (json.RawMessage, error)
	Cancel(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter engine.ListFilter) []*models.Job
}

// EventReader reads the event journal.
type EventReader interface {
	ListEvents(ctx context.Context, filter store.EventFilter) ([]models.Event, error)
}

// BackendCatalog lists the configured backends.
type BackendCatalog interface {
	List() []backend.Backend
	Get(name string) (backend.Backend, bool)
}

// writeEngineError maps engine errors to API error responses.
func writeEngineError(w http.ResponseWriter, err error) {
	var failed *engine.JobFailedError
	switch {
	case errors.Is(err, engine.ErrNotFound):
		response.Error(w, http.StatusNotFound, response.CodeNotFound, err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidMode), errors.Is(err, engine.ErrInvalidTTL):
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, err.Error(), nil)
	case errors.Is(err, engine.ErrUnknownBackend):
		response.Error(w, http.StatusBadRequest, response.CodeUnknownBackend, err.Error(), nil)
	case errors.Is(err, engine.ErrUnknownProgram):
		response.Error(w, http.StatusBadRequest, response.CodeUnknownProgram, err.Error(), nil)
	case errors.Is(err, engine.ErrBackendMismatch):
		response.Error(w, http.StatusBadRequest, response.CodeBackendMismatch, err.Error(), nil)
	case errors.Is(err, engine.ErrSessionClosed):
		response.Error(w, http.StatusConflict, response.CodeSessionClosed, err.Error(), nil)
	case errors.Is(err, engine.ErrSessionExpired):
		response.Error(w, http.StatusConflict, response.CodeSessionExpired, err.Error(), nil)
	case errors.Is(err, engine.ErrNotReady):
		response.Error(w, http.StatusConflict, response.CodeJobNotCompleted, err.Error(), nil)
	case errors.As(err, &failed):
		response.Error(w, http.StatusConflict, response.CodeJobFailed, err.Error(),
			response.FailureDetails{FailureDetail: failed.Detail})
	default:
		slog.Error("unexpected engine error", "error", err)
		response.Error(w, http.StatusInternalServerError, response.CodeInternal,
			"An unexpected error occurred", nil)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// pagination reads limit and skip query parameters. limit defaults to 10
// and is capped at 100.
func pagination(r *http.Request) (skip, limit int, err error) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit must be a positive integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if v := q.Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
	}
	return skip, limit, nil
}

// page slices items to the requested window and builds the meta block.
func page[T any](items []T, skip, limit int) ([]T, response.PaginationMeta) {
	meta := response.PaginationMeta{Skip: skip, Limit: limit, Total: len(items)}
	if skip >= len(items) {
		return []T{}, meta
	}
	end := skip + limit
	if end > len(items) {
		end = len(items)
	}
	meta.HasNext = end < len(items)
	return items[skip:end], meta
}
