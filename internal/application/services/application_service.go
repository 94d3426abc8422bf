// Package services provides application lifecycle orchestration for the
// intake flow: draft creation, progress saves, and submission.
package services

import (
	"context"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// ApplicationService manages the application lifecycle for the intake flow.
type ApplicationService struct {
	dispatcher  *notification.Dispatcher
	broadcaster *messaging.ActivityBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewApplicationService creates a new application service with its dependencies.
func NewApplicationService(
	dispatcher *notification.Dispatcher,
	broadcaster *messaging.ActivityBroadcaster,
	logger *logging.ChanneledLogger,
	perfTracker *performance.Tracker,
) *ApplicationService {
	return &ApplicationService{
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Create starts a new draft application.
func (s *ApplicationService) Create(tenantCtx *tenant.Context, app *intake.Application) (*intake.Application, error) {
	marker := s.perfTracker.StartOperation("application:create", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)

	if err := tenantCtx.ApplicationRepo().Create(app); err != nil {
		marker.SetError(err)
		return nil, err
	}

	s.logger.System().Info("Application created",
		"tenantId", tenantCtx.TenantID,
		"applicationId", app.ID)
	return app, nil
}

// SaveDraft persists form progress for a draft. This resets the
// abandonment clock via the repository's activity bump.
func (s *ApplicationService) SaveDraft(tenantCtx *tenant.Context, app *intake.Application) error {
	marker := s.perfTracker.StartOperation("application:save_draft", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("applicationId", app.ID)

	existing, err := tenantCtx.ApplicationRepo().FindByID(app.ID)
	if err != nil {
		marker.SetError(err)
		return err
	}
	if existing == nil {
		marker.SetError(analytics.ErrApplicationNotFound)
		return analytics.ErrApplicationNotFound
	}

	if err := tenantCtx.ApplicationRepo().SaveDraft(app); err != nil {
		marker.SetError(err)
		return err
	}
	return nil
}

// Get loads one application.
func (s *ApplicationService) Get(tenantCtx *tenant.Context, applicationID string) (*intake.Application, error) {
	app, err := tenantCtx.ApplicationRepo().FindByID(applicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, analytics.ErrApplicationNotFound
	}
	return app, nil
}

// TouchActivity advances the abandonment clock for an application. Called
// by the explicit activity endpoint, never by event ingestion.
func (s *ApplicationService) TouchActivity(tenantCtx *tenant.Context, applicationID string) error {
	marker := s.perfTracker.StartOperation("application:touch_activity", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("applicationId", applicationID)

	exists, err := tenantCtx.ApplicationRepo().Exists(applicationID)
	if err != nil {
		marker.SetError(err)
		return err
	}
	if !exists {
		marker.SetError(analytics.ErrApplicationNotFound)
		return analytics.ErrApplicationNotFound
	}

	if err := tenantCtx.ApplicationRepo().TouchActivity(applicationID, time.Now().UTC()); err != nil {
		marker.SetError(err)
		return err
	}
	return nil
}

// Submit transitions a draft to submitted and pushes the record to the
// CRM. The push is fire-and-forget: it runs on its own goroutine with a
// detached context, failures are logged, and the submission never waits on
// it or rolls back because of it.
func (s *ApplicationService) Submit(tenantCtx *tenant.Context, applicationID string) (*intake.Application, error) {
	marker := s.perfTracker.StartOperation("application:submit", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("applicationId", applicationID)

	app, err := tenantCtx.ApplicationRepo().FindByID(applicationID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if app == nil {
		marker.SetError(analytics.ErrApplicationNotFound)
		return nil, analytics.ErrApplicationNotFound
	}

	submittedAt := time.Now().UTC()
	if err := tenantCtx.ApplicationRepo().MarkSubmitted(applicationID, submittedAt); err != nil {
		marker.SetError(err)
		return nil, err
	}
	app.Status = intake.StatusSubmitted
	app.SubmittedAt = &submittedAt

	go s.pushToCRM(context.Background(), tenantCtx, app, submittedAt)

	s.broadcaster.Publish(&messaging.ActivityEvent{
		Type:          messaging.ActivitySubmitted,
		TenantID:      tenantCtx.TenantID,
		ApplicationID: applicationID,
	})

	return app, nil
}

// pushToCRM sends the submission payload to the configured CRM endpoint.
func (s *ApplicationService) pushToCRM(ctx context.Context, tenantCtx *tenant.Context, app *intake.Application, submittedAt time.Time) {
	url := tenantCtx.Config.CRMWebhookURL
	if url == "" {
		url = config.CRMWebhookURL
	}
	apiKey := tenantCtx.Config.CRMAPIKey
	if apiKey == "" {
		apiKey = config.CRMAPIKey
	}

	payload := intake.NewSubmissionNotification(tenantCtx.TenantID, app, submittedAt)
	if err := s.dispatcher.Dispatch(ctx, url, apiKey, payload); err != nil {
		s.logger.Dispatch().Error("CRM submission push failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID,
			"applicationId", app.ID)
	}
}
