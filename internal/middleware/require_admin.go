package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin réserve la route aux porteurs du rôle "admin". À
// chaîner après AuthRequired, qui place le rôle du token dans le
// contexte gin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
			c.Abort()
			return
		}
		c.Next()
	}
}
