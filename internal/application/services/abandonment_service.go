// Package services provides abandonment detection and warm lead delivery.
package services

import (
	"context"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/email"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// AbandonmentService finds consented, contactable drafts that went idle
// and pushes them to the CRM as warm leads.
type AbandonmentService struct {
	dispatcher   *notification.Dispatcher
	emailService email.Service
	broadcaster  *messaging.ActivityBroadcaster
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewAbandonmentService creates a new abandonment service with its dependencies.
func NewAbandonmentService(
	dispatcher *notification.Dispatcher,
	emailService email.Service,
	broadcaster *messaging.ActivityBroadcaster,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *AbandonmentService {
	return &AbandonmentService{
		dispatcher:   dispatcher,
		emailService: emailService,
		broadcaster:  broadcaster,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// SweepTenant runs one abandonment pass for a single tenant and returns
// the number of warm leads delivered. A failed candidate query aborts the
// pass; a failed delivery only skips that application, leaving it eligible
// for the next pass.
func (s *AbandonmentService) SweepTenant(ctx context.Context, tenantCtx *tenant.Context) (int, error) {
	marker := s.perfTracker.StartOperation("sweep:tenant", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)

	destinationURL, apiKey := s.resolveDestination(tenantCtx.Config)
	if !notification.Configured(destinationURL, apiKey) {
		// Leads stay eligible until a destination is configured. Stamping
		// here would silently discard them.
		s.logger.Sweep().Debug("No warm lead destination configured, skipping sweep",
			"tenantId", tenantCtx.TenantID)
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-config.AbandonmentCutoff)
	candidates, err := tenantCtx.ApplicationRepo().FindAbandonedCandidates(cutoff)
	if err != nil {
		marker.SetError(err)
		s.logger.Sweep().Error("Abandoned candidate query failed, aborting pass",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID)
		return 0, err
	}

	marker.AddMetadata("candidates", len(candidates))
	sent := 0

	for _, app := range candidates {
		select {
		case <-ctx.Done():
			return sent, ctx.Err()
		default:
		}

		// The SQL filter checks ciphertext presence; re-check the decrypted
		// values before anything leaves the process.
		if !app.HasMinimumContact() {
			continue
		}

		if s.deliverWarmLead(ctx, tenantCtx, app, destinationURL, apiKey) {
			sent++
		}
	}

	s.logger.Sweep().Info("Sweep pass completed",
		"tenantId", tenantCtx.TenantID,
		"candidates", len(candidates),
		"delivered", sent)

	s.broadcaster.Publish(&messaging.ActivityEvent{
		Type:     messaging.ActivitySweepCompleted,
		TenantID: tenantCtx.TenantID,
		Detail:   map[string]any{"candidates": len(candidates), "delivered": sent},
	})

	return sent, nil
}

// deliverWarmLead dispatches one warm lead and stamps the application on
// success. Delivery happens before the stamp, so a crash in between means
// a possible duplicate rather than a lost lead.
func (s *AbandonmentService) deliverWarmLead(ctx context.Context, tenantCtx *tenant.Context, app *intake.Application, destinationURL, apiKey string) bool {
	heatmap := s.heatmapFor(tenantCtx, app.ID)
	payload := intake.NewWarmLeadNotification(tenantCtx.TenantID, app, heatmap)

	if err := s.dispatcher.Dispatch(ctx, destinationURL, apiKey, payload); err != nil {
		s.logger.Sweep().Error("Warm lead delivery failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", app.ID)
		return false
	}

	sentAt := time.Now().UTC()
	if err := tenantCtx.ApplicationRepo().StampWarmLeadSent(app.ID, sentAt); err != nil {
		// The lead already reached the CRM; the next pass may redeliver it.
		s.logger.Sweep().Error("Warm lead stamp failed after delivery",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", app.ID)
		return true
	}

	s.notifyStaff(tenantCtx, payload)

	s.broadcaster.Publish(&messaging.ActivityEvent{
		Type:          messaging.ActivityWarmLeadSent,
		TenantID:      tenantCtx.TenantID,
		ApplicationID: app.ID,
		Detail:        map[string]any{"abandonedAtStep": app.CurrentStep},
	})

	return true
}

// heatmapFor builds the analytics snapshot attached to a warm lead. A
// failed read degrades to an empty heatmap rather than blocking delivery.
func (s *AbandonmentService) heatmapFor(tenantCtx *tenant.Context, applicationID string) []*analytics.FieldHeatmapEntry {
	events, err := tenantCtx.EventRepo().FindByApplication(applicationID)
	if err != nil {
		s.logger.Sweep().Error("Heatmap read failed, delivering warm lead without analytics",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", applicationID)
		return []*analytics.FieldHeatmapEntry{}
	}
	return BuildHeatmap(events)
}

// notifyStaff sends the best-effort staff alert email for a delivered lead.
func (s *AbandonmentService) notifyStaff(tenantCtx *tenant.Context, payload *intake.WarmLeadNotification) {
	toEmail := tenantCtx.Config.AlertEmailTo
	if toEmail == "" {
		toEmail = config.AlertEmailTo
	}
	if toEmail == "" || s.emailService == nil {
		return
	}

	if err := s.emailService.SendWarmLeadAlert(toEmail, tenantCtx.TenantID, payload); err != nil {
		s.logger.Sweep().Error("Warm lead staff alert failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", payload.ApplicationID)
	}
}

// resolveDestination picks the warm lead endpoint, preferring per-tenant
// configuration over process-wide defaults.
func (s *AbandonmentService) resolveDestination(cfg *tenant.Config) (string, string) {
	url := cfg.WarmLeadDestination()
	if url == "" {
		url = config.WarmLeadDestination()
	}

	apiKey := cfg.CRMAPIKey
	if apiKey == "" {
		apiKey = config.CRMAPIKey
	}

	return url, apiKey
}
