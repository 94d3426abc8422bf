package sweep_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/domain/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/email"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/sweep"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubApplicationRepository records candidate queries without a database.
type stubApplicationRepository struct {
	mu      sync.Mutex
	queries int
	block   chan struct{}
}

func (r *stubApplicationRepository) FindAbandonedCandidates(cutoff time.Time) ([]*intake.Application, error) {
	r.mu.Lock()
	r.queries++
	r.mu.Unlock()
	if r.block != nil {
		<-r.block
	}
	return nil, nil
}

func (r *stubApplicationRepository) queryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.queries
}

func (r *stubApplicationRepository) Create(*intake.Application) error            { return nil }
func (r *stubApplicationRepository) Exists(string) (bool, error)                 { return false, nil }
func (r *stubApplicationRepository) FindByID(string) (*intake.Application, error) { return nil, nil }
func (r *stubApplicationRepository) SaveDraft(*intake.Application) error         { return nil }
func (r *stubApplicationRepository) StampWarmLeadSent(string, time.Time) error   { return nil }
func (r *stubApplicationRepository) TouchActivity(string, time.Time) error       { return nil }
func (r *stubApplicationRepository) MarkSubmitted(string, time.Time) error       { return nil }

// stubTenantSource hands out in-memory tenant contexts keyed by ID.
type stubTenantSource struct {
	ids      []string
	contexts map[string]*tenant.Context
	misses   atomic.Int32
}

func (s *stubTenantSource) ActiveTenantIDs() []string { return s.ids }

func (s *stubTenantSource) NewContextFromID(tenantID string) (*tenant.Context, error) {
	ctx, ok := s.contexts[tenantID]
	if !ok {
		s.misses.Add(1)
		return nil, assert.AnError
	}
	return ctx, nil
}

func newSweepLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)
	return logger
}

func newSweepService(logger *logging.ChanneledLogger) (*services.AbandonmentService, *messaging.ActivityBroadcaster) {
	broadcaster := messaging.NewActivityBroadcaster()
	go broadcaster.Run()
	trackerCfg := performance.DefaultTrackerConfig()
	trackerCfg.EnableAlerts = false
	svc := services.NewAbandonmentService(
		notification.NewDispatcher(logger),
		email.NewNoopService(),
		broadcaster,
		logger,
		performance.NewTracker(trackerCfg),
	)
	return svc, broadcaster
}

func sweepContext(tenantID string, repo *stubApplicationRepository) *tenant.Context {
	return &tenant.Context{
		TenantID: tenantID,
		Status:   "active",
		Config: &tenant.Config{
			TenantID:    tenantID,
			WarmLeadURL: "http://crm.invalid/warm-leads",
			CRMAPIKey:   "crm-key",
		},
		ApplicationRepository: repo,
	}
}

func TestRunPassSweepsEveryActiveTenant(t *testing.T) {
	logger := newSweepLogger(t)
	svc, broadcaster := newSweepService(logger)
	defer broadcaster.Stop()

	repoA := &stubApplicationRepository{}
	repoB := &stubApplicationRepository{}
	source := &stubTenantSource{
		ids: []string{"tenant-a", "tenant-b"},
		contexts: map[string]*tenant.Context{
			"tenant-a": sweepContext("tenant-a", repoA),
			"tenant-b": sweepContext("tenant-b", repoB),
		},
	}

	worker := sweep.NewWorker(source, svc, sweep.NewConfig(), logger)
	worker.RunPass(context.Background())

	assert.Equal(t, 1, repoA.queryCount())
	assert.Equal(t, 1, repoB.queryCount())
}

func TestRunPassIsolatesTenantContextFailures(t *testing.T) {
	logger := newSweepLogger(t)
	svc, broadcaster := newSweepService(logger)
	defer broadcaster.Stop()

	repo := &stubApplicationRepository{}
	source := &stubTenantSource{
		ids: []string{"broken", "healthy"},
		contexts: map[string]*tenant.Context{
			"healthy": sweepContext("healthy", repo),
		},
	}

	worker := sweep.NewWorker(source, svc, sweep.NewConfig(), logger)
	worker.RunPass(context.Background())

	assert.Equal(t, int32(1), source.misses.Load())
	assert.Equal(t, 1, repo.queryCount())
}

func TestRunPassSkipsTickWhileSweepInProgress(t *testing.T) {
	logger := newSweepLogger(t)
	svc, broadcaster := newSweepService(logger)
	defer broadcaster.Stop()

	block := make(chan struct{})
	repo := &stubApplicationRepository{block: block}
	source := &stubTenantSource{
		ids:      []string{"tenant-a"},
		contexts: map[string]*tenant.Context{"tenant-a": sweepContext("tenant-a", repo)},
	}

	worker := sweep.NewWorker(source, svc, sweep.NewConfig(), logger)

	done := make(chan struct{})
	go func() {
		worker.RunPass(context.Background())
		close(done)
	}()

	// Wait until the first pass is inside the candidate query, then fire
	// an overlapping pass. It must return immediately without querying.
	require.Eventually(t, func() bool { return repo.queryCount() == 1 }, time.Second, 5*time.Millisecond)
	worker.RunPass(context.Background())
	assert.Equal(t, 1, repo.queryCount())

	close(block)
	<-done

	// With the first pass finished the next tick sweeps again.
	worker.RunPass(context.Background())
	assert.Equal(t, 2, repo.queryCount())
}

func TestStartStopsOnContextCancel(t *testing.T) {
	logger := newSweepLogger(t)
	svc, broadcaster := newSweepService(logger)
	defer broadcaster.Stop()

	source := &stubTenantSource{ids: nil, contexts: map[string]*tenant.Context{}}
	cfg := &sweep.Config{Interval: time.Hour, InitialDelay: time.Hour}
	worker := sweep.NewWorker(source, svc, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
