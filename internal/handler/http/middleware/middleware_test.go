package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedRouter(svc jwt.Service, extra ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(jwtauth.Verifier(svc.JWTAuth()))
	r.Use(AuthRequired)
	for _, mw := range extra {
		r.Use(mw)
	}
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRequired(t *testing.T) {
	svc := jwt.NewJWTService("secret", time.Hour)
	h := newProtectedRouter(svc)

	t.Run("missing token", func(t *testing.T) {
		rec := doRequest(t, h, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := doRequest(t, h, "not-a-jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non access token", func(t *testing.T) {
		_, token, err := svc.JWTAuth().Encode(map[string]interface{}{"user_id": "u", "type": "refresh"})
		require.NoError(t, err)
		rec := doRequest(t, h, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("access token", func(t *testing.T) {
		token, _, err := svc.GenerateAccessToken("u", "e", jwt.RoleEmployee)
		require.NoError(t, err)
		rec := doRequest(t, h, token)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestAdminOnly(t *testing.T) {
	svc := jwt.NewJWTService("secret", time.Hour)
	h := newProtectedRouter(svc, AdminOnly)

	employee, _, err := svc.GenerateAccessToken("u", "e", jwt.RoleEmployee)
	require.NoError(t, err)
	admin, _, err := svc.GenerateAccessToken("u", "e", jwt.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, doRequest(t, h, employee).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(t, h, admin).Code)
}

func TestRequireRole_Manager(t *testing.T) {
	svc := jwt.NewJWTService("secret", time.Hour)
	h := newProtectedRouter(svc, RequireRole(jwt.RoleManager, jwt.RoleAdmin))

	manager, _, err := svc.GenerateAccessToken("u", "e", jwt.RoleManager)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, doRequest(t, h, manager).Code)
}
