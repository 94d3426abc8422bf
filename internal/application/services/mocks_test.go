package services_test

import (
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEventRepository is a testify mock for the event repository.
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) StoreBatch(events []*analytics.InteractionEvent) error {
	args := m.Called(events)
	return args.Error(0)
}

func (m *MockEventRepository) FindByApplication(applicationID string) ([]*analytics.InteractionEvent, error) {
	args := m.Called(applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*analytics.InteractionEvent), args.Error(1)
}

func (m *MockEventRepository) Summarize(applicationID string) ([]*analytics.SummaryRow, error) {
	args := m.Called(applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*analytics.SummaryRow), args.Error(1)
}

func (m *MockEventRepository) TenantFriction(eventTypes []analytics.EventType, limit int) ([]*analytics.SummaryRow, error) {
	args := m.Called(eventTypes, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*analytics.SummaryRow), args.Error(1)
}

// MockApplicationRepository is a testify mock for the application repository.
type MockApplicationRepository struct {
	mock.Mock
}

func (m *MockApplicationRepository) Create(app *intake.Application) error {
	args := m.Called(app)
	return args.Error(0)
}

func (m *MockApplicationRepository) Exists(applicationID string) (bool, error) {
	args := m.Called(applicationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepository) FindByID(applicationID string) (*intake.Application, error) {
	args := m.Called(applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*intake.Application), args.Error(1)
}

func (m *MockApplicationRepository) SaveDraft(app *intake.Application) error {
	args := m.Called(app)
	return args.Error(0)
}

func (m *MockApplicationRepository) FindAbandonedCandidates(cutoff time.Time) ([]*intake.Application, error) {
	args := m.Called(cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*intake.Application), args.Error(1)
}

func (m *MockApplicationRepository) StampWarmLeadSent(applicationID string, sentAt time.Time) error {
	args := m.Called(applicationID, sentAt)
	return args.Error(0)
}

func (m *MockApplicationRepository) TouchActivity(applicationID string, at time.Time) error {
	args := m.Called(applicationID, at)
	return args.Error(0)
}

func (m *MockApplicationRepository) MarkSubmitted(applicationID string, at time.Time) error {
	args := m.Called(applicationID, at)
	return args.Error(0)
}

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func newTestTracker() *performance.Tracker {
	cfg := performance.DefaultTrackerConfig()
	cfg.EnableAlerts = false
	return performance.NewTracker(cfg)
}

func newTestBroadcaster() *messaging.ActivityBroadcaster {
	b := messaging.NewActivityBroadcaster()
	go b.Run()
	return b
}

func newTestContext(tenantID string, eventRepo *MockEventRepository, appRepo *MockApplicationRepository) *tenant.Context {
	ctx := &tenant.Context{
		TenantID: tenantID,
		Config:   &tenant.Config{TenantID: tenantID},
		Status:   "active",
	}
	if eventRepo != nil {
		ctx.EventRepository = eventRepo
	}
	if appRepo != nil {
		ctx.ApplicationRepository = appRepo
	}
	return ctx
}
