// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FundingReach/intakeflow-go/internal/application/container"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/database"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/sweep"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/tenant"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/server"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete multi-tenant startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	// Step 1: Create the channeled logger before anything that logs
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Startup().Info("IntakeFlow server starting")

	// Step 2: Initialize tenant system
	logger.Startup().Info("Initializing tenant system...")
	tenantManager := tenant.NewManager(logger)

	// Step 3: Load tenant registry to discover all tenants
	registry, err := tenant.LoadTenantRegistry()
	if err != nil {
		return fmt.Errorf("failed to load tenant registry: %w", err)
	}

	if len(registry.Tenants) == 0 {
		logger.Startup().Info("No tenants found in registry, creating default tenant")
		if err := tenant.RegisterTenant("default"); err != nil {
			return fmt.Errorf("failed to register default tenant: %w", err)
		}
		registry, err = tenant.LoadTenantRegistry()
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}
	}

	logger.Startup().Info("Tenant registry loaded", "tenants", len(registry.Tenants))

	// Step 4: Pre-activate inactive tenants only
	if err := tenantManager.PreActivateAllTenants(); err != nil {
		return fmt.Errorf("tenant pre-activation failed: %w", err)
	}

	// Step 5: Ensure the schema exists in every active tenant database
	if err := ensureSchemas(tenantManager); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	// Step 6: Validate tenant activation
	if err := tenantManager.ValidatePreActivation(); err != nil {
		return fmt.Errorf("tenant validation failed: %w", err)
	}

	activeCount, err := tenantManager.GetActiveTenantCount()
	if err != nil {
		return fmt.Errorf("failed to get active tenant count: %w", err)
	}
	logger.Startup().Info("Active tenant connections verified", "count", activeCount)

	// Step 7: Create dependency injection container
	appContainer := container.NewContainer(tenantManager, logger)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 8: Start background abandonment sweep worker
	sweepWorker := sweep.NewWorker(tenantManager, appContainer.AbandonmentService, sweep.NewConfig(), logger)
	go sweepWorker.Start(ctx)
	logger.Startup().Info("Abandonment sweep worker started")

	// Step 9: Start HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start).String(),
		"activeTenants", activeCount,
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()
	cancelBackgroundTasks()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	appContainer.Close()

	if err := tenantManager.Close(); err != nil {
		logger.Shutdown().Error("Error closing tenant manager", "error", err.Error())
	} else {
		logger.Shutdown().Info("Tenant manager closed successfully")
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start).String(),
		"shutdownDuration", time.Since(shutdownStart).String())

	return logger.Close()
}

// ensureSchemas runs table creation against every active tenant database.
func ensureSchemas(tenantManager *tenant.Manager) error {
	creator := database.NewTableCreator()
	for _, tenantID := range tenantManager.ActiveTenantIDs() {
		tenantCtx, err := tenantManager.NewContextFromID(tenantID)
		if err != nil {
			return fmt.Errorf("tenant %s: %w", tenantID, err)
		}
		err = creator.CreateSchema(tenantCtx.Database.Conn)
		tenantCtx.Close()
		if err != nil {
			return fmt.Errorf("tenant %s: %w", tenantID, err)
		}
	}
	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
