package services_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/email"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAbandonmentService(t *testing.T) *services.AbandonmentService {
	t.Helper()
	logger := newTestLogger(t)
	return services.NewAbandonmentService(
		notification.NewDispatcher(logger),
		email.NewNoopService(),
		newTestBroadcaster(),
		logger,
		newTestTracker(),
	)
}

func abandonedDraft(id string) *intake.Application {
	return &intake.Application{
		ID:                 id,
		Status:             intake.StatusDraft,
		CurrentStep:        3,
		TCPAConsentGranted: true,
		ContactFirstName:   "Ada",
		ContactLastName:    "Lovelace",
		ContactEmail:       "ada@example.com",
		ContactPhone:       "+15551234567",
		BusinessName:       "Analytical Engines LLC",
		LastActivityAt:     time.Now().UTC().Add(-time.Hour),
		CreatedAt:          time.Now().UTC().Add(-2 * time.Hour),
	}
}

func TestSweepTenantDeliversAndStampsWarmLead(t *testing.T) {
	var gotPayload intake.WarmLeadNotification
	var gotAPIKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)
	tenantCtx.Config.WarmLeadURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	app := abandonedDraft("app-1")
	appRepo.On("FindAbandonedCandidates", mock.Anything).Return([]*intake.Application{app}, nil)
	appRepo.On("StampWarmLeadSent", "app-1", mock.Anything).Return(nil)
	eventRepo.On("FindByApplication", "app-1").Return([]*analytics.InteractionEvent{
		event(analytics.EventFieldBlur, "email", intPtr(3000)),
	}, nil)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, "crm-key", gotAPIKey)
	assert.Equal(t, "warm_lead", gotPayload.Type)
	assert.Equal(t, "app-1", gotPayload.ApplicationID)
	assert.Equal(t, "ada@example.com", gotPayload.ContactEmail)
	assert.Equal(t, 3, gotPayload.AbandonedAtStep)
	require.Len(t, gotPayload.AnalyticsHeatmap, 1)
	assert.Equal(t, 3000, gotPayload.AnalyticsHeatmap[0].TotalDurationMs)
	appRepo.AssertCalled(t, "StampWarmLeadSent", "app-1", mock.Anything)
}

func TestSweepTenantDoesNotStampOnDeliveryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)
	tenantCtx.Config.WarmLeadURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	appRepo.On("FindAbandonedCandidates", mock.Anything).Return([]*intake.Application{abandonedDraft("app-1")}, nil)
	eventRepo.On("FindByApplication", "app-1").Return([]*analytics.InteractionEvent{}, nil)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	appRepo.AssertNotCalled(t, "StampWarmLeadSent", mock.Anything, mock.Anything)
}

func TestSweepTenantIsolatesPerApplicationFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First delivery fails, the rest succeed
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)
	tenantCtx.Config.WarmLeadURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	appRepo.On("FindAbandonedCandidates", mock.Anything).Return([]*intake.Application{
		abandonedDraft("app-1"),
		abandonedDraft("app-2"),
	}, nil)
	appRepo.On("StampWarmLeadSent", "app-2", mock.Anything).Return(nil)
	eventRepo.On("FindByApplication", mock.Anything).Return([]*analytics.InteractionEvent{}, nil)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	appRepo.AssertNotCalled(t, "StampWarmLeadSent", "app-1", mock.Anything)
	appRepo.AssertCalled(t, "StampWarmLeadSent", "app-2", mock.Anything)
}

func TestSweepTenantAbortsOnCandidateQueryFailure(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)
	tenantCtx.Config.WarmLeadURL = "http://crm.invalid/webhook"
	tenantCtx.Config.CRMAPIKey = "crm-key"

	appRepo.On("FindAbandonedCandidates", mock.Anything).Return(nil, assert.AnError)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.Error(t, err)
	assert.Equal(t, 0, sent)
}

func TestSweepTenantSkipsWhenDestinationUnconfigured(t *testing.T) {
	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	appRepo.AssertNotCalled(t, "FindAbandonedCandidates", mock.Anything)
}

func TestSweepTenantSkipsIncompleteContactAfterDecryption(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	eventRepo := new(MockEventRepository)
	appRepo := new(MockApplicationRepository)
	tenantCtx := newTestContext("default", eventRepo, appRepo)
	tenantCtx.Config.WarmLeadURL = server.URL
	tenantCtx.Config.CRMAPIKey = "crm-key"

	incomplete := abandonedDraft("app-1")
	incomplete.ContactPhone = ""

	appRepo.On("FindAbandonedCandidates", mock.Anything).Return([]*intake.Application{incomplete}, nil)

	sent, err := newAbandonmentService(t).SweepTenant(context.Background(), tenantCtx)

	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(0), calls.Load())
}

// Covers the fallback path where a tenant has only the general CRM URL
// configured and warm leads reuse it.
func TestTenantConfigWarmLeadDestinationFallsBackToCRMURL(t *testing.T) {
	cfg := &tenant.Config{CRMWebhookURL: "https://crm.example.com/webhook"}
	assert.Equal(t, "https://crm.example.com/webhook", cfg.WarmLeadDestination())

	cfg.WarmLeadURL = "https://crm.example.com/warm-leads"
	assert.Equal(t, "https://crm.example.com/warm-leads", cfg.WarmLeadDestination())
}
