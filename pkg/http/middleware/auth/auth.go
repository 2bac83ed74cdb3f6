package auth

import (
	"context"
	"net/http"
	"strconv"
)

// UserIDHeader carries the authenticated principal resolved by the auth
// collaborator in front of this service. Session and token validation live
// there; by the time a request reaches the order core the header is
// trusted.
const UserIDHeader = "X-User-ID"

type ctxKey struct{}

// NewPrincipalMiddleware copies the authenticated user id, when present,
// from the gateway header into the request context.
func NewPrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(UserIDHeader); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
				r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID))
			}
		}

		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated user id from the context, if any.
func UserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(ctxKey{}).(int64)

	return userID, ok
}
