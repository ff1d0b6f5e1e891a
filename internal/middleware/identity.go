package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"media-catalog/internal/database"
	"media-catalog/internal/logging"
)

// UserHeader carries the caller's user UUID, set by the upstream
// authenticator. Requests without it are anonymous.
const UserHeader = "X-Catalog-User"

type contextKey struct{}

// UserLookup resolves a user by public identifier.
type UserLookup func(ctx context.Context, id uuid.UUID) (*database.User, error)

// Identity attaches the caller to the request context. A malformed or
// unknown user id is rejected with 401.
func Identity(lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get(UserHeader))
			if raw == "" {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), database.Anon())))
				return
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid user id")
				return
			}

			user, err := lookup(r.Context(), id)
			switch {
			case errors.Is(err, database.ErrNotFound):
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			case err != nil:
				logging.Error("Resolving user %s: %v", id, err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *database.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the caller attached by Identity, or the
// anonymous user.
func UserFromContext(ctx context.Context) *database.User {
	if user, ok := ctx.Value(contextKey{}).(*database.User); ok && user != nil {
		return user
	}
	return database.Anon()
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logging.Debug("Writing error response: %v", err)
	}
}
