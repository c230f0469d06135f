package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/auth"
	"loan-backend/internal/config"
	"loan-backend/internal/models"
)

type stubUsers map[int]*models.User

func (s stubUsers) Get(_ context.Context, id int) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user")
}

func newAuth(t *testing.T) (*AuthMiddleware, *auth.JWTManager, stubUsers) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "middleware-secret"
	cfg.JWT.ExpirationHours = 1
	jwtManager := auth.NewJWTManager(cfg)

	agentID := 3
	users := stubUsers{
		1: {ID: 1, Email: "admin@example.com", Role: models.RoleAdmin, IsActive: true},
		2: {ID: 2, Email: "agent@example.com", Role: models.RoleAgent, IsActive: true, AgentID: &agentID},
		4: {ID: 4, Email: "gone@example.com", Role: models.RoleAgent, IsActive: false},
	}
	return NewAuthMiddleware(jwtManager, users), jwtManager, users
}

func tokenFor(t *testing.T, m *auth.JWTManager, u *models.User) string {
	t.Helper()
	token, err := m.GenerateToken(u)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	mw, jwtManager, users := newAuth(t)

	var seenAgent int
	var seenRole string
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRole, _ = GetRoleFromContext(r.Context())
		seenAgent, _ = GetAgentIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Authorization header required"}`, rec.Body.String())
	})

	t.Run("bad token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("agent token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwtManager, users[2]))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, models.RoleAgent, seenRole)
		assert.Equal(t, 3, seenAgent)
	})

	t.Run("query token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/live?access_token="+tokenFor(t, jwtManager, users[1]), nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, models.RoleAdmin, seenRole)
	})

	t.Run("suspended", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwtManager, users[4]))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("deleted user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwtManager, &models.User{ID: 99, Role: models.RoleAdmin}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	mw, jwtManager, users := newAuth(t)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	adminOnly := mw.Authenticate(mw.RequireRole(models.RoleAdmin)(ok))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwtManager, users[2]))
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, jwtManager, users[1]))
	rec = httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// without Authenticate in front there is no role
	rec = httptest.NewRecorder()
	mw.RequireRole(models.RoleAdmin)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
