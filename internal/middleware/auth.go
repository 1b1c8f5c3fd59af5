package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by JWTAuth and read by handlers and other middleware.
const (
	ContextUserID = "userID"
	ContextOrgID  = "orgID"
	ContextRole   = "role"
	ContextClaims = "claims"
)

// JWTAuth validates a Bearer token issued by the identity provider and
// stashes the subject, organization and role claims in the request context.
// Token issuance lives outside this service; we only verify.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		orgID, _ := claims["org_id"].(string)
		if sub == "" || orgID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token missing subject or organization"})
			c.Abort()
			return
		}

		role, _ := claims["role"].(string)

		c.Set(ContextUserID, sub)
		c.Set(ContextOrgID, orgID)
		c.Set(ContextRole, role)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}
