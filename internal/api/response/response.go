// Package response writes the API's JSON envelopes. Success bodies are
// wrapped in {"data": ...}; failures in {"error": {code, message, details}}.
package response

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the error envelope.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeNotFound        = "RESOURCE_NOT_FOUND"
	CodeUnknownBackend  = "UNKNOWN_BACKEND"
	CodeUnknownProgram  = "UNKNOWN_PROGRAM"
	CodeBackendMismatch = "BACKEND_MISMATCH"
	CodeSessionClosed   = "SESSION_CLOSED"
	CodeSessionExpired  = "SESSION_EXPIRED"
	CodeJobNotCompleted = "JOB_NOT_COMPLETED"
	CodeJobFailed       = "JOB_FAILED"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeNotImplemented  = "NOT_IMPLEMENTED"
	CodeDegraded        = "DEGRADED"
)

type envelope struct {
	Data any `json:"data"`
}

type collectionEnvelope struct {
	Data any            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// PaginationMeta describes one page of a skip/limit listing.
type PaginationMeta struct {
	Skip    int  `json:"skip"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"has_next"`
}

// FailureDetails is the details object of a JOB_FAILED error. The detail is
// the executor's message, unchanged.
type FailureDetails struct {
	FailureDetail string `json:"failure_detail"`
}

// RequestDetails is the details object of an INTERNAL_ERROR raised by a
// recovered panic, so the client can quote the id found in the server log.
type RequestDetails struct {
	RequestID string `json:"request_id"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

func Created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, envelope{Data: data})
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func Collection(w http.ResponseWriter, data any, meta PaginationMeta) {
	writeJSON(w, http.StatusOK, collectionEnvelope{Data: data, Meta: meta})
}

// Raw writes an already encoded JSON document without an envelope.
func Raw(w http.ResponseWriter, status int, doc json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(doc)
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
