// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandlers contains the event ingestion and heatmap HTTP handlers.
type AnalyticsHandlers struct {
	ingestionService *services.IngestionService
	heatmapService   *services.HeatmapService
	logger           *logging.ChanneledLogger
	perfTracker      *performance.Tracker
}

// NewAnalyticsHandlers creates analytics handlers with injected dependencies
func NewAnalyticsHandlers(ingestionService *services.IngestionService, heatmapService *services.HeatmapService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		ingestionService: ingestionService,
		heatmapService:   heatmapService,
		logger:           logger,
		perfTracker:      perfTracker,
	}
}

type eventBatchRequest struct {
	Events []*analytics.InteractionEvent `json:"events" binding:"required"`
}

// PostEvents handles POST /api/v1/analytics/:appId/events - ingests one
// batch of interaction events for an application.
func (h *AnalyticsHandlers) PostEvents(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	var req eventBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.ingestionService.ProcessBatch(tenantCtx, applicationID, req.Events); err != nil {
		var verr *analytics.ValidationError
		switch {
		case errors.Is(err, analytics.ErrApplicationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
		case errors.As(err, &verr):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "details": verr.Errors})
		default:
			h.logger.Analytics().Error("Event ingestion failed",
				"error", err.Error(),
				"tenantId", tenantCtx.TenantID,
				"applicationId", applicationID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store events"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(req.Events)})
}

// GetHeatmap handles GET /api/v1/analytics/:appId/heatmap - returns the
// per-field friction aggregate for one application.
func (h *AnalyticsHandlers) GetHeatmap(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	heatmap, err := h.heatmapService.Heatmap(tenantCtx, applicationID)
	if err != nil {
		if errors.Is(err, analytics.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		h.logger.Analytics().Error("Heatmap query failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", applicationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build heatmap"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applicationId": applicationID, "heatmap": heatmap})
}

// GetSummary handles GET /api/v1/analytics/:appId/summary - returns raw
// (field, eventType) aggregates for one application.
func (h *AnalyticsHandlers) GetSummary(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	summary, err := h.heatmapService.Summary(tenantCtx, applicationID)
	if err != nil {
		if errors.Is(err, analytics.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		h.logger.Analytics().Error("Summary query failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", applicationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applicationId": applicationID, "summary": summary})
}

// GetTenantFriction handles GET /api/v1/analytics/friction - returns the
// tenant-wide ranking of high-friction fields.
func (h *AnalyticsHandlers) GetTenantFriction(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	rows, err := h.heatmapService.TenantFriction(tenantCtx)
	if err != nil {
		h.logger.Analytics().Error("Tenant friction query failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query friction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friction": rows})
}
