package handlers

import (
	"errors"
	"net/http"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// ApplicationHandlers contains the intake application lifecycle handlers.
type ApplicationHandlers struct {
	applicationService *services.ApplicationService
	logger             *logging.ChanneledLogger
	perfTracker        *performance.Tracker
}

// NewApplicationHandlers creates application handlers with injected dependencies
func NewApplicationHandlers(applicationService *services.ApplicationService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ApplicationHandlers {
	return &ApplicationHandlers{
		applicationService: applicationService,
		logger:             logger,
		perfTracker:        perfTracker,
	}
}

type applicationRequest struct {
	CurrentStep        int    `json:"currentStep"`
	TCPAConsentGranted bool   `json:"tcpaConsentGranted"`
	ContactFirstName   string `json:"contactFirstName"`
	ContactLastName    string `json:"contactLastName"`
	ContactEmail       string `json:"contactEmail"`
	ContactPhone       string `json:"contactPhone"`
	BusinessName       string `json:"businessName"`
	StateOfFormation   string `json:"stateOfFormation"`
}

func (r *applicationRequest) toApplication(id string) *intake.Application {
	return &intake.Application{
		ID:                 id,
		CurrentStep:        r.CurrentStep,
		TCPAConsentGranted: r.TCPAConsentGranted,
		ContactFirstName:   r.ContactFirstName,
		ContactLastName:    r.ContactLastName,
		ContactEmail:       r.ContactEmail,
		ContactPhone:       r.ContactPhone,
		BusinessName:       r.BusinessName,
		StateOfFormation:   r.StateOfFormation,
	}
}

// PostApplication handles POST /api/v1/applications - starts a new draft.
func (h *ApplicationHandlers) PostApplication(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	app, err := h.applicationService.Create(tenantCtx, req.toApplication(""))
	if err != nil {
		h.logger.System().Error("Application create failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create application"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"applicationId": app.ID, "status": app.Status})
}

// PutApplication handles PUT /api/v1/applications/:appId - saves draft
// progress and resets the abandonment clock.
func (h *ApplicationHandlers) PutApplication(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	var req applicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.applicationService.SaveDraft(tenantCtx, req.toApplication(applicationID)); err != nil {
		if errors.Is(err, analytics.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		h.logger.System().Error("Draft save failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", applicationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applicationId": applicationID})
}

// PostActivity handles POST /api/v1/applications/:appId/activity - the
// explicit activity ping that advances the abandonment clock.
func (h *ApplicationHandlers) PostActivity(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	if err := h.applicationService.TouchActivity(tenantCtx, applicationID); err != nil {
		if errors.Is(err, analytics.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"applicationId": applicationID})
}

// PostSubmit handles POST /api/v1/applications/:appId/submit - finalizes a
// draft and pushes it to the CRM.
func (h *ApplicationHandlers) PostSubmit(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	applicationID := c.Param("appId")

	app, err := h.applicationService.Submit(tenantCtx, applicationID)
	if err != nil {
		if errors.Is(err, analytics.ErrApplicationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "application not found"})
			return
		}
		h.logger.System().Error("Application submit failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", applicationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit application"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applicationId": app.ID,
		"status":        app.Status,
		"submittedAt":   app.SubmittedAt,
	})
}
