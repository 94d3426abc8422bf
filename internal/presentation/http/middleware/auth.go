package middleware

import (
	"net/http"
	"strings"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/gin-gonic/gin"
)

// StaffAuthMiddleware guards analytics endpoints with a staff bearer token.
// Requires TenantMiddleware to have run first.
func StaffAuthMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantCtx, exists := GetTenantContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if token == "" || token == header {
			// Browsers cannot set headers on websocket upgrades.
			token = c.Query("token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bearer token required"})
			c.Abort()
			return
		}

		if !authService.ValidateStaffToken(tenantCtx, token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Next()
	}
}
