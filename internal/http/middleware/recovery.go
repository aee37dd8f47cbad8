package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/danielgtaylor/huma/v2"
)

// Recovery converts a handler panic into the same problem+json body the
// API uses for its other errors.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				id := GetRequestID(r.Context())
				logger.ErrorContext(r.Context(), "panic recovered",
					slog.Any("error", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", id),
					slog.String("stack", string(debug.Stack())),
				)

				problem := &huma.ErrorModel{
					Title:  http.StatusText(http.StatusInternalServerError),
					Status: http.StatusInternalServerError,
					Detail: "request " + id + " failed",
				}
				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(problem.Status)
				_ = json.NewEncoder(w).Encode(problem)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
