package services_test

import (
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func event(eventType analytics.EventType, fieldName string, durationMs *int) *analytics.InteractionEvent {
	return &analytics.InteractionEvent{
		FieldName:  fieldName,
		EventType:  eventType,
		DurationMs: durationMs,
		OccurredAt: time.Now().UTC(),
	}
}

func TestBuildHeatmapAggregatesPerField(t *testing.T) {
	events := []*analytics.InteractionEvent{
		event(analytics.EventFieldFocus, "email", nil),
		event(analytics.EventFieldBlur, "email", intPtr(4000)),
		event(analytics.EventFieldFocus, "email", nil),
		event(analytics.EventFieldBlur, "email", intPtr(2500)),
		event(analytics.EventTypingPause, "email", nil),
		event(analytics.EventFieldRevisit, "email", nil),
		event(analytics.EventFieldFocus, "phone", nil),
		event(analytics.EventFieldBlur, "phone", intPtr(1000)),
	}

	heatmap := services.BuildHeatmap(events)

	require.Len(t, heatmap, 2)

	// Sorted by total duration descending
	assert.Equal(t, "email", heatmap[0].FieldName)
	assert.Equal(t, 2, heatmap[0].FocusCount)
	assert.Equal(t, 6500, heatmap[0].TotalDurationMs)
	assert.Equal(t, 1, heatmap[0].PauseCount)
	assert.Equal(t, 1, heatmap[0].RevisitCount)

	assert.Equal(t, "phone", heatmap[1].FieldName)
	assert.Equal(t, 1000, heatmap[1].TotalDurationMs)
}

func TestBuildHeatmapRollsFieldlessEventsIntoPageBucket(t *testing.T) {
	events := []*analytics.InteractionEvent{
		event(analytics.EventStepView, "", nil),
		event(analytics.EventTypingPause, "", nil),
		event(analytics.EventFieldFocus, "email", nil),
	}

	heatmap := services.BuildHeatmap(events)

	require.Len(t, heatmap, 2)

	var pageEntry *analytics.FieldHeatmapEntry
	for _, entry := range heatmap {
		if entry.FieldName == analytics.PageLevelField {
			pageEntry = entry
		}
	}
	require.NotNil(t, pageEntry)
	assert.Equal(t, 1, pageEntry.PauseCount)
	assert.Equal(t, 0, pageEntry.FocusCount)
}

func TestBuildHeatmapIgnoresBlurWithoutDuration(t *testing.T) {
	events := []*analytics.InteractionEvent{
		event(analytics.EventFieldBlur, "email", nil),
	}

	heatmap := services.BuildHeatmap(events)

	require.Len(t, heatmap, 1)
	assert.Equal(t, 0, heatmap[0].TotalDurationMs)
}

func TestBuildHeatmapKeepsFirstSeenOrderOnTies(t *testing.T) {
	events := []*analytics.InteractionEvent{
		event(analytics.EventFieldFocus, "alpha", nil),
		event(analytics.EventFieldFocus, "beta", nil),
		event(analytics.EventFieldFocus, "gamma", nil),
	}

	heatmap := services.BuildHeatmap(events)

	require.Len(t, heatmap, 3)
	assert.Equal(t, "alpha", heatmap[0].FieldName)
	assert.Equal(t, "beta", heatmap[1].FieldName)
	assert.Equal(t, "gamma", heatmap[2].FieldName)
}

func TestHeatmapRejectsUnknownApplication(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "ghost").Return(false, nil)

	svc := services.NewHeatmapService(newTestLogger(t), newTestTracker())
	_, err := svc.Heatmap(tenantCtx, "ghost")

	require.ErrorIs(t, err, analytics.ErrApplicationNotFound)
}

func TestHeatmapReturnsEmptyForApplicationWithoutEvents(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "app-1").Return(true, nil)
	eventRepo.On("FindByApplication", "app-1").Return([]*analytics.InteractionEvent{}, nil)

	svc := services.NewHeatmapService(newTestLogger(t), newTestTracker())
	heatmap, err := svc.Heatmap(tenantCtx, "app-1")

	require.NoError(t, err)
	assert.Empty(t, heatmap)
}

func TestTenantFrictionQueriesFrictionSignals(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	expected := []*analytics.SummaryRow{
		{FieldName: "ssn", EventType: analytics.EventFieldRevisit, Count: 42},
	}
	eventRepo.On("TenantFriction", []analytics.EventType{
		analytics.EventTypingPause,
		analytics.EventFieldRevisit,
		analytics.EventStepAbandon,
	}, 50).Return(expected, nil)

	svc := services.NewHeatmapService(newTestLogger(t), newTestTracker())
	rows, err := svc.TenantFriction(tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, expected, rows)
}
