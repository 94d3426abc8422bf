// Package services provides heatmap aggregation over stored events.
package services

import (
	"sort"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// frictionEventTypes are the signals counted for the tenant friction report.
var frictionEventTypes = []analytics.EventType{
	analytics.EventTypingPause,
	analytics.EventFieldRevisit,
	analytics.EventStepAbandon,
}

// HeatmapService aggregates interaction events into per-field friction views.
type HeatmapService struct {
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewHeatmapService creates a new heatmap service with its dependencies.
func NewHeatmapService(logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *HeatmapService {
	return &HeatmapService{
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Heatmap builds the per-field aggregation for one application, sorted by
// total dwell time descending. Events with no field name roll up into the
// page-level bucket.
func (s *HeatmapService) Heatmap(tenantCtx *tenant.Context, applicationID string) ([]*analytics.FieldHeatmapEntry, error) {
	marker := s.perfTracker.StartOperation("analytics:heatmap", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)
	marker.AddMetadata("applicationId", applicationID)

	exists, err := tenantCtx.ApplicationRepo().Exists(applicationID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if !exists {
		marker.SetError(analytics.ErrApplicationNotFound)
		return nil, analytics.ErrApplicationNotFound
	}

	events, err := tenantCtx.EventRepo().FindByApplication(applicationID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}

	heatmap := BuildHeatmap(events)
	marker.AddMetadata("fieldCount", len(heatmap))
	return heatmap, nil
}

// BuildHeatmap folds raw events into per-field entries. Exposed so the
// sweep path can aggregate without a second repository round trip.
func BuildHeatmap(events []*analytics.InteractionEvent) []*analytics.FieldHeatmapEntry {
	byField := make(map[string]*analytics.FieldHeatmapEntry)
	order := make([]string, 0)

	entryFor := func(fieldName string) *analytics.FieldHeatmapEntry {
		if fieldName == "" {
			fieldName = analytics.PageLevelField
		}
		entry, ok := byField[fieldName]
		if !ok {
			entry = &analytics.FieldHeatmapEntry{FieldName: fieldName}
			byField[fieldName] = entry
			order = append(order, fieldName)
		}
		return entry
	}

	for _, event := range events {
		entry := entryFor(event.FieldName)
		switch event.EventType {
		case analytics.EventFieldFocus:
			entry.FocusCount++
		case analytics.EventFieldBlur:
			if event.DurationMs != nil {
				entry.TotalDurationMs += *event.DurationMs
			}
		case analytics.EventTypingPause:
			entry.PauseCount++
		case analytics.EventFieldRevisit:
			entry.RevisitCount++
		}
	}

	// First-seen order is the tie break; the sort keeps it stable.
	heatmap := make([]*analytics.FieldHeatmapEntry, 0, len(order))
	for _, fieldName := range order {
		heatmap = append(heatmap, byField[fieldName])
	}
	sort.SliceStable(heatmap, func(i, j int) bool {
		return heatmap[i].TotalDurationMs > heatmap[j].TotalDurationMs
	})

	return heatmap
}

// Summary returns the raw per-field, per-event-type aggregation rows for
// one application.
func (s *HeatmapService) Summary(tenantCtx *tenant.Context, applicationID string) ([]*analytics.SummaryRow, error) {
	marker := s.perfTracker.StartOperation("analytics:summary", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)

	exists, err := tenantCtx.ApplicationRepo().Exists(applicationID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	if !exists {
		marker.SetError(analytics.ErrApplicationNotFound)
		return nil, analytics.ErrApplicationNotFound
	}

	rows, err := tenantCtx.EventRepo().Summarize(applicationID)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return rows, nil
}

// TenantFriction returns the tenant-wide worst friction fields across all
// applications, limited to the configured row count.
func (s *HeatmapService) TenantFriction(tenantCtx *tenant.Context) ([]*analytics.SummaryRow, error) {
	marker := s.perfTracker.StartOperation("analytics:tenant_friction", tenantCtx.TenantID)
	defer s.perfTracker.CompleteOperation(marker)

	rows, err := tenantCtx.EventRepo().TenantFriction(frictionEventTypes, config.FrictionQueryLimit)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return rows, nil
}
