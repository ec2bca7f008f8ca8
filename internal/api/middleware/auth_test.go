package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedHandler(t *testing.T, captured **User) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthDisabledInjectsAnonymous(t *testing.T) {
	am := NewAuthMiddleware(&AuthConfig{Enabled: false}, nil)

	var user *User
	handler := am.Middleware()(authedHandler(t, &user))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "anonymous", user.ID)
}

func TestAuthAcceptsIssuedToken(t *testing.T) {
	am := NewAuthMiddleware(&AuthConfig{Enabled: true, JWTSecret: "s3cret"}, nil)

	token, err := am.IssueToken(&User{ID: "user-7", Username: "grace"})
	require.NoError(t, err)

	var user *User
	handler := am.Middleware()(authedHandler(t, &user))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, user)
	assert.Equal(t, "user-7", user.ID)
	assert.Equal(t, "grace", user.Username)
}

func TestAuthRejectsBadTokens(t *testing.T) {
	am := NewAuthMiddleware(&AuthConfig{Enabled: true, JWTSecret: "s3cret"}, nil)

	var user *User
	handler := am.Middleware()(authedHandler(t, &user))

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc123",
		"garbage token":  "Bearer not.a.jwt",
	}

	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware(&AuthConfig{Enabled: true, JWTSecret: "one"}, nil)
	verifier := NewAuthMiddleware(&AuthConfig{Enabled: true, JWTSecret: "two"}, nil)

	token, err := issuer.IssueToken(&User{ID: "user-1", Username: "eve"})
	require.NoError(t, err)

	var user *User
	handler := verifier.Middleware()(authedHandler(t, &user))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, user)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	am := NewAuthMiddleware(&AuthConfig{
		Enabled:       true,
		JWTSecret:     "s3cret",
		JWTExpiration: -time.Minute,
	}, nil)

	token, err := am.IssueToken(&User{ID: "user-1", Username: "old"})
	require.NoError(t, err)

	var user *User
	handler := am.Middleware()(authedHandler(t, &user))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/datasets", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExemptPaths(t *testing.T) {
	am := NewAuthMiddleware(&AuthConfig{
		Enabled:     true,
		JWTSecret:   "s3cret",
		ExemptPaths: []string{"/public"},
	}, nil)

	called := false
	handler := am.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/public/docs", nil))
	assert.True(t, called)
}
