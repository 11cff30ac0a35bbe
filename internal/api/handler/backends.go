package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
)

// NewListBackendsHandler returns an http.HandlerFunc for GET /v1/backends.
func NewListBackendsHandler(catalog BackendCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]any{"devices": catalog.List()})
	}
}

// NewGetBackendHandler returns an http.HandlerFunc for GET /v1/backends/{name}.
func NewGetBackendHandler(catalog BackendCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		b, ok := catalog.Get(name)
		if !ok {
			response.Error(w, http.StatusNotFound, response.CodeNotFound, "backend not found: "+name, nil)
			return
		}
		response.JSON(w, b)
	}
}
