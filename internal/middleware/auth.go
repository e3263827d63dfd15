package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/readtrack/readtrack/internal/apperror"
	"github.com/readtrack/readtrack/internal/auth"
	"github.com/readtrack/readtrack/internal/model"
)

// Context keys for authenticated caller data
const (
	SubjectKey contextKey = "subject"
	RoleKey    contextKey = "role"
)

// RoleAdmin is the role required by admin routes
const RoleAdmin = string(model.RoleAdmin)

// TokenValidator validates bearer access tokens
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.TokenClaims, error)
}

// Auth creates an authentication middleware that validates JWT bearer tokens.
// Token failures keep their jwt errors so they classify as invalid or expired.
func (m *Middleware) Auth(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = strings.TrimSpace(parts[1])
				}
			}

			if tokenString == "" {
				m.fail(w, r, apperror.Unauthorized("Authentication required"))
				return
			}

			claims, err := tokens.ValidateAccessToken(tokenString)
			if err != nil {
				m.fail(w, r, err)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, SubjectKey, claims.Subject)
			ctx = context.WithValue(ctx, RoleKey, claims.Role)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers without role. It must run after Auth.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got, _ := r.Context().Value(RoleKey).(string); got != role {
				m.fail(w, r, apperror.Unauthorized("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSubject retrieves the authenticated subject from context
func GetSubject(ctx context.Context) string {
	if s, ok := ctx.Value(SubjectKey).(string); ok {
		return s
	}
	return ""
}
