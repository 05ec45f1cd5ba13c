package middleware

import (
	"net/http"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the principal holds one of roles.
// It must run after JWTAuth.
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	allowed := make(map[identity.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		principal := GetPrincipal(c)
		if principal == nil {
			abortUnauthorized(c, "UNAUTHORIZED", "Authentication required")
			return
		}
		if _, ok := allowed[principal.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Your role cannot perform this action",
				},
			})
			return
		}
		c.Next()
	}
}
