package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"finagg/internal/auth"
	"finagg/internal/services"
	"finagg/internal/store"
)

type contextKey string

const userKey contextKey = "user"

func UserFromContext(ctx context.Context) (store.User, bool) {
	user, ok := ctx.Value(userKey).(store.User)
	return user, ok
}

func ContextWithUser(ctx context.Context, user store.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

type userLookup interface {
	GetByKeycloakID(ctx context.Context, keycloakUserID string) (store.User, error)
}

// Auth introspects the bearer token against the identity provider and loads
// the local user row into the request context. A token whose subject has no
// local row is unauthorized, the registration webhook has not landed yet.
func Auth(verifier auth.TokenVerifier, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "invalid authorization header", http.StatusUnauthorized)
				return
			}
			subject, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			user, err := users.GetByKeycloakID(r.Context(), subject)
			if errors.Is(err, services.ErrUserNotFound) {
				http.Error(w, "unknown user", http.StatusUnauthorized)
				return
			}
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), user)))
		})
	}
}
