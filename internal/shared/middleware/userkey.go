package middleware

import (
	"context"
	"net/http"
	"strings"
)

// HeaderUserKey carries the caller's opaque user key on every /api route.
const HeaderUserKey = "X-User-Key"

type ContextKey string

const UserKeyKey ContextKey = "user_key"

// UserKey requires the X-User-Key header and puts its value in the request
// context. Requests without one are rejected with 401.
func UserKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(HeaderUserKey))
		if key == "" {
			http.Error(w, "User key required", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserKeyKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserKeyFromContext returns the user key stored by UserKey.
func UserKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(UserKeyKey).(string)
	return key, ok && key != ""
}
