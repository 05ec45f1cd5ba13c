package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWT context keys
const (
	PrincipalKey    = "principal"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	TokenQueryParam = "access_token"
)

// Authenticator validates access tokens
type Authenticator interface {
	Authenticate(token string) (*identity.Principal, error)
}

// JWTConfig holds configuration for JWTAuth
type JWTConfig struct {
	Authenticator Authenticator
	// AllowQueryToken accepts ?access_token= for clients that cannot set
	// headers, such as browser websockets.
	AllowQueryToken bool
	Logger          *zap.Logger
}

// JWTAuth rejects requests without a valid bearer token and stores the
// principal in the gin context
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" && cfg.AllowQueryToken {
			token = c.Query(TokenQueryParam)
		}
		if token == "" {
			abortUnauthorized(c, "UNAUTHORIZED", "Authentication required")
			return
		}

		principal, err := cfg.Authenticator.Authenticate(token)
		if err != nil {
			log.Warn("JWT authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path))
			code, message := authErrorCode(err)
			abortUnauthorized(c, code, message)
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
}

func authErrorCode(err error) (string, string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	default:
		return "TOKEN_INVALID", "Invalid token"
	}
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// GetPrincipal returns the authenticated principal, or nil
func GetPrincipal(c *gin.Context) *identity.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*identity.Principal); ok {
			return p
		}
	}
	return nil
}
