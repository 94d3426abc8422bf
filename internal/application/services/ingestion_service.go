// Package services provides the application-layer orchestration for the
// interaction analytics pipeline.
package services

import (
	"fmt"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// IngestionService validates and persists batches of interaction events.
type IngestionService struct {
	broadcaster *messaging.ActivityBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewIngestionService creates a new ingestion service with its dependencies.
func NewIngestionService(broadcaster *messaging.ActivityBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *IngestionService {
	return &IngestionService{
		broadcaster: broadcaster,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ProcessBatch validates and atomically stores one batch of events for an
// application. Ingestion never advances the application's activity clock;
// only explicit form-data activity does that.
func (s *IngestionService) ProcessBatch(tenantCtx *tenant.Context, applicationID string, events []*analytics.InteractionEvent) error {
	marker := s.perfTracker.StartOperation("analytics:process_batch", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("applicationId", applicationID)
	marker.AddMetadata("batchSize", len(events))

	if err := s.validateBatch(events); err != nil {
		marker.SetError(err)
		return err
	}

	exists, err := tenantCtx.ApplicationRepo().Exists(applicationID)
	if err != nil {
		marker.SetError(err)
		return fmt.Errorf("failed to verify application: %w", err)
	}
	if !exists {
		marker.SetError(analytics.ErrApplicationNotFound)
		return analytics.ErrApplicationNotFound
	}

	// The URL path owns the application identity and the server owns the
	// clock; client-supplied applicationId or occurredAt values are
	// overwritten.
	receivedAt := time.Now().UTC()
	for _, event := range events {
		event.ApplicationID = applicationID
		event.OccurredAt = receivedAt
	}

	if err := tenantCtx.EventRepo().StoreBatch(events); err != nil {
		marker.SetError(err)
		return err
	}

	s.logger.Analytics().Info("Event batch ingested",
		"tenantId", tenantCtx.TenantID,
		"applicationId", applicationID,
		"batchSize", len(events))

	s.broadcaster.Publish(&messaging.ActivityEvent{
		Type:          messaging.ActivityEventsStored,
		TenantID:      tenantCtx.TenantID,
		ApplicationID: applicationID,
		Detail:        map[string]any{"count": len(events)},
	})

	return nil
}

// validateBatch enforces batch size limits and per-event shape.
func (s *IngestionService) validateBatch(events []*analytics.InteractionEvent) error {
	verr := &analytics.ValidationError{}

	if len(events) == 0 {
		verr.Add("events", "batch must contain at least one event")
		return verr
	}
	if len(events) > config.MaxBatchSize {
		verr.Add("events", fmt.Sprintf("batch exceeds maximum size of %d events", config.MaxBatchSize))
		return verr
	}

	for i, event := range events {
		if event == nil {
			verr.Add(fmt.Sprintf("events[%d]", i), "event must not be null")
			continue
		}
		if !event.EventType.IsValid() {
			verr.Add(fmt.Sprintf("events[%d].eventType", i), fmt.Sprintf("unknown event type %q", event.EventType))
		}
		if event.DurationMs != nil && *event.DurationMs < 0 {
			verr.Add(fmt.Sprintf("events[%d].durationMs", i), "duration must not be negative")
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}
