package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

// AuthMiddleware authenticates via Bearer header, falling back to the
// token query parameter for WebSocket upgrades.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tokenString string

		authHeader := c.GetHeader("Authorization")
		if after, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			tokenString = after
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(401, gin.H{"error": "Authorization header or token query parameter required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Set("userType", claims.UserType)
		c.Next()
	}
}
