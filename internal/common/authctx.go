package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const userIDKey ctxKey = "auth/user-id"

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// TrustedUserMiddleware lifts the caller identity from the X-User-ID header.
// Authentication itself happens upstream (gateway); this service only needs
// the resolved identifier.
func TrustedUserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
			r = r.WithContext(WithUserID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests without a resolved user identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserID(r.Context()); !ok {
			JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "user identity required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
