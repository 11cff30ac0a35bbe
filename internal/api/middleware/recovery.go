package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kiranshivaraju/qruntime/internal/api/response"
)

// Recovery turns a handler panic into a 500 error envelope. The request id
// is both logged and returned so a client report can be matched to the log.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				reqID := chimw.GetReqID(r.Context())
				slog.Error("panic recovered",
					"request_id", reqID,
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"route", routePattern(r),
				)
				var details any
				if reqID != "" {
					details = response.RequestDetails{RequestID: reqID}
				}
				response.Error(w, http.StatusInternalServerError,
					response.CodeInternal, "An unexpected error occurred", details)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
