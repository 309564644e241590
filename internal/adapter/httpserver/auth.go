package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/codesage-ai/interview-server/internal/adapter/auth"
	"github.com/codesage-ai/interview-server/internal/domain"
)

type userIDKey struct{}

// RequireAuth verifies the Bearer token and stores the subject in the
// request context. The websocket endpoints do their own verification from
// the query string; this middleware covers the REST surface only.
func RequireAuth(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, r, fmt.Errorf("op=auth: missing bearer token: %w", domain.ErrUnauthorized), nil)
				return
			}
			userID, err := verifier.Verify(token)
			if err != nil {
				writeError(w, r, err, nil)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFrom returns the authenticated user id set by RequireAuth.
func UserIDFrom(r *http.Request) string {
	if v := r.Context().Value(userIDKey{}); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
