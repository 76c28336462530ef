// Package identity validates user identifiers taken from request paths and
// carries them through the request context.
package identity

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

// URLParam is the route parameter holding the user identifier.
const URLParam = "user_id"

type contextKey int

const (
	userIDKey contextKey = iota
	connectionIDKey
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,128}$`)

// ValidUserID reports whether id is an acceptable user identifier.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// SanitizeUserID trims id and returns it when valid, or "" otherwise.
func SanitizeUserID(id string) string {
	id = strings.TrimSpace(id)
	if !ValidUserID(id) {
		return ""
	}
	return id
}

// WithUserID returns a copy of ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithConnectionID returns a copy of ctx carrying a websocket connection id.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connectionIDKey, id)
}

// ConnectionIDFromContext extracts the websocket connection id.
func ConnectionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(connectionIDKey).(string); ok {
		return v
	}
	return ""
}

// Middleware validates the {user_id} route parameter and injects it into
// the request context. Requests with an invalid identifier get 400.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := SanitizeUserID(chi.URLParam(r, URLParam))
		if userID == "" {
			slog.Warn("Rejected invalid user id", "ip", IPFromRequest(r), "path", r.URL.Path)
			http.Error(w, `{"error":"invalid user id"}`, http.StatusBadRequest)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
