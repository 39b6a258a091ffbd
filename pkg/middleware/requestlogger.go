package middleware

import (
	"log/slog"
	"net/http"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched with
// whatever of correlation_id, session_id, user_id, trace_id and span_id is
// available. Mount it after RequestLogging, Tracing and Session.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logger.UserIDFromContext(ctx) == "" {
				if userID := r.Header.Get(HeaderUserID); userID != "" {
					ctx = logger.WithUserID(ctx, userID)
				}
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
