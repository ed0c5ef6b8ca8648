package middleware

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"realestate/internal/auth"
)

const statusSuspended = "suspended"

type AccessStore interface {
	GetAccess(ctx context.Context, userID string) (role, status string, err error)
}

// RequireAdmin checks the stored role rather than the token claim so that a
// demoted or suspended admin loses access before the token expires.
func RequireAdmin(store AccessStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			role, status, err := store.GetAccess(r.Context(), identity.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if role != auth.RoleAdmin {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			if status == statusSuspended {
				http.Error(w, "account suspended", http.StatusForbidden)
				return
			}
			identity.Role = role
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
