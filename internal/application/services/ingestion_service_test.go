package services_test

import (
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newIngestionService(t *testing.T) *services.IngestionService {
	t.Helper()
	return services.NewIngestionService(newTestBroadcaster(), newTestLogger(t), newTestTracker())
}

func validEvent(eventType analytics.EventType, fieldName string) *analytics.InteractionEvent {
	return &analytics.InteractionEvent{
		FieldName: fieldName,
		EventType: eventType,
	}
}

func TestProcessBatchStoresEvents(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "app-1").Return(true, nil)
	eventRepo.On("StoreBatch", mock.Anything).Return(nil)

	events := []*analytics.InteractionEvent{
		validEvent(analytics.EventFieldFocus, "business_name"),
		validEvent(analytics.EventStepView, ""),
	}

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", events)

	require.NoError(t, err)
	eventRepo.AssertCalled(t, "StoreBatch", mock.Anything)

	// The URL path owns the application identity
	for _, event := range events {
		assert.Equal(t, "app-1", event.ApplicationID)
	}
}

func TestProcessBatchStampsServerTimestamps(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "app-1").Return(true, nil)
	eventRepo.On("StoreBatch", mock.Anything).Return(nil)

	// Clients send only fieldName and eventType; the server owns the clock.
	events := []*analytics.InteractionEvent{
		{FieldName: "business_name", EventType: analytics.EventFieldFocus},
		{EventType: analytics.EventStepView},
	}

	before := time.Now().UTC()
	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", events)

	require.NoError(t, err)
	for _, event := range events {
		assert.False(t, event.OccurredAt.IsZero())
		assert.False(t, event.OccurredAt.Before(before))
	}
}

func TestProcessBatchRejectsUnknownApplication(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "ghost").Return(false, nil)

	err := newIngestionService(t).ProcessBatch(tenantCtx, "ghost", []*analytics.InteractionEvent{
		validEvent(analytics.EventFieldFocus, "business_name"),
	})

	require.ErrorIs(t, err, analytics.ErrApplicationNotFound)
	eventRepo.AssertNotCalled(t, "StoreBatch", mock.Anything)
}

func TestProcessBatchRejectsEmptyBatch(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", nil)

	var verr *analytics.ValidationError
	require.ErrorAs(t, err, &verr)
	appRepo.AssertNotCalled(t, "Exists", mock.Anything)
}

func TestProcessBatchRejectsOversizedBatch(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	events := make([]*analytics.InteractionEvent, 101)
	for i := range events {
		events[i] = validEvent(analytics.EventFieldFocus, "business_name")
	}

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", events)

	var verr *analytics.ValidationError
	require.ErrorAs(t, err, &verr)
	eventRepo.AssertNotCalled(t, "StoreBatch", mock.Anything)
}

func TestProcessBatchRejectsUnknownEventType(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	bad := validEvent(analytics.EventType("mouse_wiggle"), "business_name")

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", []*analytics.InteractionEvent{bad})

	var verr *analytics.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Errors)
	eventRepo.AssertNotCalled(t, "StoreBatch", mock.Anything)
}

func TestProcessBatchRejectsNegativeDuration(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	neg := -5
	bad := validEvent(analytics.EventFieldBlur, "business_name")
	bad.DurationMs = &neg

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", []*analytics.InteractionEvent{bad})

	var verr *analytics.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestProcessBatchDoesNotTouchActivityClock(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	appRepo.On("Exists", "app-1").Return(true, nil)
	eventRepo.On("StoreBatch", mock.Anything).Return(nil)

	err := newIngestionService(t).ProcessBatch(tenantCtx, "app-1", []*analytics.InteractionEvent{
		validEvent(analytics.EventFieldFocus, "business_name"),
	})

	require.NoError(t, err)
	appRepo.AssertNotCalled(t, "TouchActivity", mock.Anything, mock.Anything)
}
