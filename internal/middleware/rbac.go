package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"openwfm/api/internal/model"
)

// RequireRole allows the request only when the token role matches one of
// the given roles. Roles come from the verified token, not the database.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		c.Abort()
	}
}

// RequireManager allows admins and managers.
func RequireManager() gin.HandlerFunc {
	return RequireRole(model.RoleAdmin, model.RoleManager)
}
