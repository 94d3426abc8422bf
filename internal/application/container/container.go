// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/FundingReach/intakeflow-go/internal/application/services"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/email"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/notification"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/performance"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application services (stateless singletons)
	IngestionService   *services.IngestionService
	HeatmapService     *services.HeatmapService
	AbandonmentService *services.AbandonmentService
	ApplicationService *services.ApplicationService
	AuthService        *services.AuthService

	// Infrastructure
	TenantManager *tenant.Manager
	Dispatcher    *notification.Dispatcher
	EmailService  email.Service
	Broadcaster   *messaging.ActivityBroadcaster
	Logger        *logging.ChanneledLogger
	PerfTracker   *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(tenantManager *tenant.Manager, logger *logging.ChanneledLogger) *Container {
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig())
	dispatcher := notification.NewDispatcher(logger)

	emailService, err := email.NewService()
	if err != nil {
		// Warm lead delivery does not depend on email; staff alerts are
		// simply disabled until a key is configured.
		logger.Startup().Warn("Email service unavailable, staff alerts disabled",
			"reason", err.Error())
		emailService = email.NewNoopService()
	}

	broadcaster := messaging.NewActivityBroadcaster()
	go broadcaster.Run()

	return &Container{
		IngestionService:   services.NewIngestionService(broadcaster, logger, perfTracker),
		HeatmapService:     services.NewHeatmapService(logger, perfTracker),
		AbandonmentService: services.NewAbandonmentService(dispatcher, emailService, broadcaster, logger, perfTracker),
		ApplicationService: services.NewApplicationService(dispatcher, broadcaster, logger, perfTracker),
		AuthService:        services.NewAuthService(logger),

		TenantManager: tenantManager,
		Dispatcher:    dispatcher,
		EmailService:  emailService,
		Broadcaster:   broadcaster,
		Logger:        logger,
		PerfTracker:   perfTracker,
	}
}

// Close releases container-held resources.
func (c *Container) Close() {
	c.Broadcaster.Stop()
}
