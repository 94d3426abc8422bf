package handlers

import (
	"net/http"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// DBHandlers exposes database connection status for operators.
type DBHandlers struct {
	logger *logging.ChanneledLogger
}

// NewDBHandlers creates db handlers with injected dependencies
func NewDBHandlers(logger *logging.ChanneledLogger) *DBHandlers {
	return &DBHandlers{logger: logger}
}

// GetDatabaseStatus handles GET /api/v1/db/status - reports this tenant's
// connection plus process-wide pool statistics.
func (h *DBHandlers) GetDatabaseStatus(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenantId":   tenantCtx.TenantID,
		"connection": tenantCtx.GetDatabaseInfo(),
		"pools":      tenant.GetConnectionPoolInfo(),
	})
}
