package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/sellforge/ratings-service/pkg/logger"
)

// Recovery converts handler panics into 500 responses using the same error
// envelope the handlers write, so clients never see a dropped connection or a
// bare stack trace. The panic and stack are logged with the request's
// correlation ID when one is present.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if id := logger.CorrelationIDFromContext(r.Context()); id != "" {
					attrs = append(attrs, slog.String("correlation_id", id))
				}
				l.ErrorContext(r.Context(), "panic recovered", attrs...)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]string{
						"code":    "INTERNAL_ERROR",
						"message": "an internal error occurred",
					},
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
