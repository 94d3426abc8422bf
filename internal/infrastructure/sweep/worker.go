// Package sweep runs the periodic abandonment pass across all active
// tenants.
package sweep

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/pkg/config"
)

// Config holds sweep worker configuration, sourced from the central config
// package.
type Config struct {
	Interval     time.Duration
	InitialDelay time.Duration
}

// NewConfig creates a new sweep configuration by reading values from the
// already-initialized variables in the centralized /pkg/config package.
func NewConfig() *Config {
	return &Config{
		Interval:     config.SweepInterval,
		InitialDelay: config.SweepInitialDelay,
	}
}

// TenantSource supplies the tenants a sweep pass walks. Satisfied by
// *tenant.Manager.
type TenantSource interface {
	ActiveTenantIDs() []string
	NewContextFromID(tenantID string) (*tenant.Context, error)
}

// Worker drives the abandonment sweeps on a fixed interval.
type Worker struct {
	tenantManager TenantSource
	abandonment   *services.AbandonmentService
	config        *Config
	logger        *logging.ChanneledLogger
	running       atomic.Bool
}

// NewWorker creates a new sweep worker with injected configuration.
func NewWorker(tenantManager TenantSource, abandonment *services.AbandonmentService, cfg *Config, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		tenantManager: tenantManager,
		abandonment:   abandonment,
		config:        cfg,
		logger:        logger,
	}
}

// Start begins the sweep loop. The first pass waits for the initial delay
// so sweeps never race tenant activation during boot. Blocks until ctx is
// cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Sweep().Info("Abandonment sweep worker started",
		"interval", w.config.Interval.String(),
		"initialDelay", w.config.InitialDelay.String())

	select {
	case <-ctx.Done():
		w.logger.Sweep().Info("Abandonment sweep worker stopping before first pass")
		return
	case <-time.After(w.config.InitialDelay):
	}

	w.RunPass(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Sweep().Info("Abandonment sweep worker stopping")
			return
		case <-ticker.C:
			w.RunPass(ctx)
		}
	}
}

// RunPass executes one sweep across all active tenants. If a previous pass
// is still running the tick is skipped rather than queued, so slow tenants
// never pile up overlapping sweeps.
func (w *Worker) RunPass(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Sweep().Warn("Previous sweep pass still running, skipping tick")
		return
	}
	defer w.running.Store(false)

	start := time.Now()
	tenantIDs := w.tenantManager.ActiveTenantIDs()

	var totalSent int
	for _, tenantID := range tenantIDs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sent, err := w.sweepTenant(ctx, tenantID)
		if err != nil {
			// One tenant's failure never blocks the others.
			w.logger.Sweep().Error("Tenant sweep failed",
				"error", err.Error(),
				"tenantId", tenantID)
			continue
		}
		totalSent += sent
	}

	w.logger.Sweep().Info("Sweep pass finished",
		"tenants", len(tenantIDs),
		"warmLeadsSent", totalSent,
		"duration", time.Since(start).String())
}

func (w *Worker) sweepTenant(ctx context.Context, tenantID string) (int, error) {
	tenantCtx, err := w.tenantManager.NewContextFromID(tenantID)
	if err != nil {
		return 0, err
	}
	defer tenantCtx.Close()

	return w.abandonment.SweepTenant(ctx, tenantCtx)
}
