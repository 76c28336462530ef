package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestSanitizeUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"u1", "u1"},
		{"  user@example.com ", "user@example.com"},
		{"anon_0123:tab-1", "anon_0123:tab-1"},
		{"", ""},
		{"has space", ""},
		{"../etc/passwd", ""},
	}
	for _, tt := range tests {
		if got := SanitizeUserID(tt.in); got != tt.want {
			t.Errorf("SanitizeUserID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.With(Middleware).Get("/ws/{user_id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/u1", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "u1" {
		t.Errorf("Expected 200 u1, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws/bad%20id", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid id, got %d", rec.Code)
	}
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if UserIDFromContext(ctx) != "" || ConnectionIDFromContext(ctx) != "" {
		t.Fatal("Expected empty values on bare context")
	}
	ctx = WithConnectionID(WithUserID(ctx, "u"), "c")
	if UserIDFromContext(ctx) != "u" || ConnectionIDFromContext(ctx) != "c" {
		t.Error("Context values not round-tripped")
	}
}
