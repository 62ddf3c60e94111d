package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ms-booking/internal/logger"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate attaches verified claims to the request context when a bearer
// token is present. Requests without a token pass through anonymously; a token
// that fails verification is rejected.
func Authenticate(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if errors.Is(err, ErrMissingToken) || v == nil {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := v.Verify(r.Context(), raw)
			if err != nil {
				if log != nil {
					log.LogSecurity("TOKEN", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
				}
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAdmin admits only authenticated subjects listed in adminIDs.
func RequireAdmin(adminIDs []string, log *logger.Logger) func(http.Handler) http.Handler {
	admins := make(map[string]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserID(r.Context())
			if userID == "" {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if _, ok := admins[userID]; !ok {
				if log != nil {
					log.LogSecurity("ADMIN", fmt.Sprintf("user %s denied %s %s", userID, r.Method, r.URL.Path))
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// UserID returns the authenticated subject, or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok && c != nil {
		return c.Subject
	}
	return ""
}

// IssuedAt returns the token issue time, zero when unknown.
func IssuedAt(ctx context.Context) time.Time {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok && c != nil {
		return c.IssuedAt
	}
	return time.Time{}
}
