package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/infrastructure/auth"
	"github.com/coopay/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "coopay-test",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func issueToken(t *testing.T, svc *auth.JWTService, role identity.Role) string {
	t.Helper()
	token, err := svc.Issue(identity.Principal{AccountID: uuid.New(), Role: role})
	require.NoError(t, err)
	return token.AccessToken
}

func newAuthRouter(svc *auth.JWTService, allowQuery bool, extra ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuth(JWTConfig{Authenticator: svc, AllowQueryToken: allowQuery})}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, GetPrincipal(c).Role.String())
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTAuth(t *testing.T) {
	svc := newTestJWTService()
	router := newAuthRouter(svc, false)

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+issueToken(t, svc, identity.RoleSuperAdmin))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SUPER_ADMIN", w.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"UNAUTHORIZED"`)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(AuthHeaderKey, BearerPrefix+"not-a-jwt")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "TOKEN_INVALID")
	})

	t.Run("query token ignored unless allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+issueToken(t, svc, identity.RoleApex), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("query token accepted when allowed", func(t *testing.T) {
		queryRouter := newAuthRouter(svc, true)
		req := httptest.NewRequest(http.MethodGet, "/protected?access_token="+issueToken(t, svc, identity.RoleApex), nil)
		w := httptest.NewRecorder()
		queryRouter.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "APEX", w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	svc := newTestJWTService()
	router := newAuthRouter(svc, false, RequireRole(identity.RoleSuperAdmin))

	tests := []struct {
		role identity.Role
		want int
	}{
		{identity.RoleSuperAdmin, http.StatusOK},
		{identity.RoleApex, http.StatusForbidden},
		{identity.RoleMember, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set(AuthHeaderKey, BearerPrefix+issueToken(t, svc, tt.role))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("without JWTAuth", func(t *testing.T) {
		bare := gin.New()
		bare.GET("/x", RequireRole(identity.RoleSuperAdmin), okHandler)
		w := httptest.NewRecorder()
		bare.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
