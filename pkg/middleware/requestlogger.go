package middleware

import (
	"log/slog"
	"net/http"

	"github.com/sellforge/ratings-service/pkg/logger"
)

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// actor_id, trace_id, and span_id, then stores it in context via
// logger.NewContext. Downstream handlers retrieve it with logger.FromContext.
//
// Mount AFTER RequestLogging (which sets correlation_id) and Tracing (which
// sets the span context).
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Actor comes from the auth middleware when present.
			if actorID := UserIDFromContext(ctx); actorID != "" {
				ctx = logger.WithActorID(ctx, actorID)
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
