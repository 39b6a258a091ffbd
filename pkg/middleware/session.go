package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/httputil"
	"github.com/thirawatnalampang/half-full-shirt-6-9-sub000/pkg/logger"
)

// Header names set by the storefront and the upstream identity provider.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

type contextKeyType string

const emailKey contextKeyType = "user_email"

// Session extracts the storefront session and the optional identity headers
// into the request context. Requests without a session id are rejected with
// 401 when required is true.
func Session(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := strings.TrimSpace(r.Header.Get(HeaderSessionID))
			if sessionID == "" && required {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:      "UNAUTHORIZED",
						Message:   "missing " + HeaderSessionID + " header",
						RequestID: logger.CorrelationIDFromContext(ctx),
					},
				})
				return
			}
			if sessionID != "" {
				ctx = logger.WithSessionID(ctx, sessionID)
			}
			if userID := strings.TrimSpace(r.Header.Get(HeaderUserID)); userID != "" {
				ctx = logger.WithUserID(ctx, userID)
			}
			if email := strings.TrimSpace(r.Header.Get(HeaderUserEmail)); email != "" {
				ctx = context.WithValue(ctx, emailKey, email)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// EmailFromContext returns the identity email placed by Session.
func EmailFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(emailKey).(string); ok {
		return v
	}
	return ""
}

// NoStore marks responses as uncacheable. Cart reads are per session.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
