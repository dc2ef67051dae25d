package middleware

import (
	"context"
	"net/http"

	"github.com/davidfuentes/questly-backend/pkg/logger"
)

type contextKey string

const ctxUserID contextKey = "user_id"

// userIDHeader carries the authenticated subject set by the edge gateway.
// Authentication itself happens upstream of this service.
const userIDHeader = "X-User-Id"

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// UserContext copies the gateway-authenticated user id from the request
// headers into the context and the log fields.
func UserContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := r.Header.Get(userIDHeader)
			ctx := r.Context()
			if userID != "" {
				ctx = WithUserID(ctx, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
