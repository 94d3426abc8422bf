package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/handlers"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryEventRepository is an in-memory event store for handler tests.
type memoryEventRepository struct {
	events []*analytics.InteractionEvent
}

func (r *memoryEventRepository) StoreBatch(events []*analytics.InteractionEvent) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *memoryEventRepository) FindByApplication(string) ([]*analytics.InteractionEvent, error) {
	return r.events, nil
}

func (r *memoryEventRepository) Summarize(string) ([]*analytics.SummaryRow, error) {
	return nil, nil
}

func (r *memoryEventRepository) TenantFriction([]analytics.EventType, int) ([]*analytics.SummaryRow, error) {
	return nil, nil
}

// knownAppRepository answers existence checks from a fixed ID set.
type knownAppRepository struct {
	known map[string]bool
}

func (r *knownAppRepository) Exists(id string) (bool, error) { return r.known[id], nil }

func (r *knownAppRepository) Create(*intake.Application) error             { return nil }
func (r *knownAppRepository) FindByID(string) (*intake.Application, error) { return nil, nil }
func (r *knownAppRepository) SaveDraft(*intake.Application) error          { return nil }
func (r *knownAppRepository) FindAbandonedCandidates(time.Time) ([]*intake.Application, error) {
	return nil, nil
}
func (r *knownAppRepository) StampWarmLeadSent(string, time.Time) error { return nil }
func (r *knownAppRepository) TouchActivity(string, time.Time) error     { return nil }
func (r *knownAppRepository) MarkSubmitted(string, time.Time) error     { return nil }

func newTestRouter(t *testing.T, eventRepo *memoryEventRepository, appRepo *knownAppRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)

	trackerCfg := performance.DefaultTrackerConfig()
	trackerCfg.EnableAlerts = false
	perfTracker := performance.NewTracker(trackerCfg)

	broadcaster := messaging.NewActivityBroadcaster()
	go broadcaster.Run()
	t.Cleanup(broadcaster.Stop)

	ingestion := services.NewIngestionService(broadcaster, logger, perfTracker)
	heatmap := services.NewHeatmapService(logger, perfTracker)
	h := handlers.NewAnalyticsHandlers(ingestion, heatmap, logger, perfTracker)

	tenantCtx := &tenant.Context{
		TenantID:              "default",
		Config:                &tenant.Config{TenantID: "default"},
		Status:                "active",
		EventRepository:       eventRepo,
		ApplicationRepository: appRepo,
	}

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("tenant", tenantCtx) })
	r.POST("/api/v1/analytics/:appId/events", h.PostEvents)
	r.GET("/api/v1/analytics/:appId/heatmap", h.GetHeatmap)
	return r
}

func postEvents(r *gin.Engine, appID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/api/v1/analytics/%s/events", appID), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPostEventsStoresBatch(t *testing.T) {
	eventRepo := &memoryEventRepository{}
	appRepo := &knownAppRepository{known: map[string]bool{"app-1": true}}
	r := newTestRouter(t, eventRepo, appRepo)

	w := postEvents(r, "app-1", `{"events":[
		{"eventType":"field_focus","fieldName":"email"},
		{"eventType":"field_blur","fieldName":"email","durationMs":4200}
	]}`)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
	require.Len(t, eventRepo.events, 2)
	assert.Equal(t, "app-1", eventRepo.events[0].ApplicationID)
	assert.False(t, eventRepo.events[0].OccurredAt.IsZero())
}

func TestPostEventsReturns404ForUnknownApplication(t *testing.T) {
	r := newTestRouter(t, &memoryEventRepository{}, &knownAppRepository{known: map[string]bool{}})

	w := postEvents(r, "ghost", `{"events":[
		{"eventType":"field_focus","fieldName":"email"}
	]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostEventsReturns422ForInvalidEventType(t *testing.T) {
	r := newTestRouter(t, &memoryEventRepository{},
		&knownAppRepository{known: map[string]bool{"app-1": true}})

	w := postEvents(r, "app-1", `{"events":[
		{"eventType":"mouse_wiggle","fieldName":"email"}
	]}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "mouse_wiggle")
}

func TestPostEventsReturns400ForMalformedBody(t *testing.T) {
	r := newTestRouter(t, &memoryEventRepository{},
		&knownAppRepository{known: map[string]bool{"app-1": true}})

	w := postEvents(r, "app-1", `{"events": "nope"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHeatmapAggregatesStoredEvents(t *testing.T) {
	duration := 4200
	eventRepo := &memoryEventRepository{events: []*analytics.InteractionEvent{
		{EventType: analytics.EventFieldFocus, FieldName: "email"},
		{EventType: analytics.EventFieldBlur, FieldName: "email", DurationMs: &duration},
		{EventType: analytics.EventTypingPause, FieldName: "email"},
	}}
	appRepo := &knownAppRepository{known: map[string]bool{"app-1": true}}
	r := newTestRouter(t, eventRepo, appRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/app-1/heatmap", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Heatmap []*analytics.FieldHeatmapEntry `json:"heatmap"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Heatmap, 1)
	assert.Equal(t, "email", resp.Heatmap[0].FieldName)
	assert.Equal(t, 1, resp.Heatmap[0].FocusCount)
	assert.Equal(t, 4200, resp.Heatmap[0].TotalDurationMs)
	assert.Equal(t, 1, resp.Heatmap[0].PauseCount)
}
