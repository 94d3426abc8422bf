package services_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newApplicationService(t *testing.T) *services.ApplicationService {
	t.Helper()
	logger := newTestLogger(t)
	return services.NewApplicationService(
		notification.NewDispatcher(logger),
		newTestBroadcaster(),
		logger,
		newTestTracker(),
	)
}

func TestSubmitMarksApplicationAndPushesToCRM(t *testing.T) {
	var gotPayload intake.SubmissionNotification
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)
	tenantCtx.Config.CRMWebhookURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	draft := abandonedDraft("app-1")
	appRepo.On("FindByID", "app-1").Return(draft, nil)
	appRepo.On("MarkSubmitted", "app-1", mock.Anything).Return(nil)

	submitted, err := newApplicationService(t).Submit(tenantCtx, "app-1")

	require.NoError(t, err)
	assert.Equal(t, intake.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)

	// The push happens off the request path; wait for it to land.
	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "application_submitted", gotPayload.Type)
	assert.Equal(t, "app-1", gotPayload.ApplicationID)
	assert.Equal(t, "ada@example.com", gotPayload.ContactEmail)
}

func TestSubmitDoesNotWaitForCRMPush(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)
	tenantCtx.Config.CRMWebhookURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	appRepo.On("FindByID", "app-1").Return(abandonedDraft("app-1"), nil)
	appRepo.On("MarkSubmitted", "app-1", mock.Anything).Return(nil)

	// The CRM stub blocks until released; Submit must return anyway.
	submitted, err := newApplicationService(t).Submit(tenantCtx, "app-1")

	require.NoError(t, err)
	assert.Equal(t, intake.StatusSubmitted, submitted.Status)
	assert.Equal(t, int32(0), calls.Load())

	close(release)
	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitSucceedsWhenCRMPushFails(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)
	tenantCtx.Config.CRMWebhookURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	appRepo.On("FindByID", "app-1").Return(abandonedDraft("app-1"), nil)
	appRepo.On("MarkSubmitted", "app-1", mock.Anything).Return(nil)

	submitted, err := newApplicationService(t).Submit(tenantCtx, "app-1")

	require.NoError(t, err)
	assert.Equal(t, intake.StatusSubmitted, submitted.Status)

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitRejectsUnknownApplication(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)

	appRepo.On("FindByID", "missing").Return(nil, nil)

	_, err := newApplicationService(t).Submit(tenantCtx, "missing")

	require.ErrorIs(t, err, analytics.ErrApplicationNotFound)
	appRepo.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything)
}

func TestSaveDraftRejectsUnknownApplication(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)

	appRepo.On("FindByID", "missing").Return(nil, nil)

	err := newApplicationService(t).SaveDraft(tenantCtx, &intake.Application{ID: "missing"})

	require.ErrorIs(t, err, analytics.ErrApplicationNotFound)
	appRepo.AssertNotCalled(t, "SaveDraft", mock.Anything)
}

func TestTouchActivityBumpsClock(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)

	appRepo.On("Exists", "app-1").Return(true, nil)
	appRepo.On("TouchActivity", "app-1", mock.MatchedBy(func(at time.Time) bool {
		return time.Since(at) < time.Minute
	})).Return(nil)

	require.NoError(t, newApplicationService(t).TouchActivity(tenantCtx, "app-1"))
	appRepo.AssertExpectations(t)
}

func TestTouchActivityRejectsUnknownApplication(t *testing.T) {
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", nil, appRepo)

	appRepo.On("Exists", "missing").Return(false, nil)

	err := newApplicationService(t).TouchActivity(tenantCtx, "missing")

	require.ErrorIs(t, err, analytics.ErrApplicationNotFound)
	appRepo.AssertNotCalled(t, "TouchActivity", mock.Anything, mock.Anything)
}
