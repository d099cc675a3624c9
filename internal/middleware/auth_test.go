package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
)

func TestAuthMiddleware_WithValidToken(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	token, err := m.IssueToken(model.User{ID: 42, Name: "somchai", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		id, ok := IdentityFromContext(r.Context())
		if !ok {
			t.Fatalf("identity not in context")
		}
		if id.UserID != 42 || id.Name != "somchai" || id.Role != model.RoleAdmin {
			t.Fatalf("identity from context = %+v", id)
		}
	})

	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	m.Authenticate(nil)(next).ServeHTTP(httptest.NewRecorder(), r)

	if !nextCalled {
		t.Fatalf("next handler was not called")
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)
	other := NewAuthMiddleware("other-secret", time.Hour)

	foreign, err := other.IssueToken(model.User{ID: 1, Name: "x"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	expiredIssuer := NewAuthMiddleware("test-secret", time.Hour)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := expiredIssuer.IssueToken(model.User{ID: 1, Name: "x"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"garbage token", "Bearer not-a-jwt"},
		{"foreign signature", "Bearer " + foreign},
		{"expired", "Bearer " + expired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			m.Authenticate(nil)(next).ServeHTTP(w, r)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name string
		id   *Identity
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"operator", &Identity{UserID: 2, Name: "op", Role: model.RoleUser}, http.StatusForbidden},
		{"admin", &Identity{UserID: 1, Name: "boss", Role: model.RoleAdmin}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodDelete, "/printer/order/1", nil)
			if tt.id != nil {
				r = r.WithContext(WithIdentity(r.Context(), *tt.id))
			}
			w := httptest.NewRecorder()

			RequireAdmin(ok).ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

type lookupFunc func(ctx context.Context, userID int64) (model.Profile, error)

func (f lookupFunc) AdminInfo(ctx context.Context, userID int64) (model.Profile, error) {
	return f(ctx, userID)
}

func TestAuthenticate_RereadsUser(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour)

	token, err := m.IssueToken(model.User{ID: 7, Name: "somchai", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	tests := []struct {
		name     string
		lookup   lookupFunc
		want     int
		wantRole model.Role
		wantName string
	}{
		{
			name: "current role from store",
			lookup: func(ctx context.Context, userID int64) (model.Profile, error) {
				return model.Profile{Name: "somchai.k", Role: model.RoleUser}, nil
			},
			want:     http.StatusNoContent,
			wantRole: model.RoleUser,
			wantName: "somchai.k",
		},
		{
			name: "deleted user",
			lookup: func(ctx context.Context, userID int64) (model.Profile, error) {
				return model.Profile{}, apperr.New(apperr.KindNotFound, "user not found")
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "store unavailable",
			lookup: func(ctx context.Context, userID int64) (model.Profile, error) {
				return model.Profile{}, context.DeadlineExceeded
			},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, _ := IdentityFromContext(r.Context())
				if id.UserID != 7 || id.Role != tt.wantRole || id.Name != tt.wantName {
					t.Fatalf("identity from context = %+v", id)
				}
				w.WriteHeader(http.StatusNoContent)
			})

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/protected", nil)
			r.Header.Set("Authorization", "Bearer "+token)

			m.Authenticate(tt.lookup)(next).ServeHTTP(w, r)

			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
