// Package tenant provides tenant context management for multi-tenant support.
package tenant

import (
	domainAnalytics "github.com/FundingReach/intakeflow-go/internal/domain/analytics"
	domainIntake "github.com/FundingReach/intakeflow-go/internal/domain/intake"
	persistenceAnalytics "github.com/FundingReach/intakeflow-go/internal/infrastructure/persistence/analytics"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/persistence/database"
	persistenceIntake "github.com/FundingReach/intakeflow-go/internal/infrastructure/persistence/intake"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
)

// Context holds tenant-specific request context
type Context struct {
	TenantID string
	Config   *Config
	Database *Database
	Status   string
	Logger   *logging.ChanneledLogger

	// Repository overrides for tests. When nil the SQL-backed
	// implementations are built from the tenant database.
	EventRepository       domainAnalytics.EventRepository
	ApplicationRepository domainIntake.ApplicationRepository
}

// Close cleans up the tenant context
func (ctx *Context) Close() error {
	if ctx.Database != nil {
		return ctx.Database.Close()
	}
	return nil
}

// GetTenantID returns the tenant ID for this context
func (ctx *Context) GetTenantID() string {
	return ctx.TenantID
}

// GetConfig returns the tenant configuration
func (ctx *Context) GetConfig() *Config {
	return ctx.Config
}

// GetDatabase returns the tenant database connection
func (ctx *Context) GetDatabase() *Database {
	return ctx.Database
}

// GetStatus returns the tenant status
func (ctx *Context) GetStatus() string {
	return ctx.Status
}

// IsActive returns true if the tenant is active
func (ctx *Context) IsActive() bool {
	return ctx.Status == "active"
}

// GetDatabaseInfo returns database connection information for logging
func (ctx *Context) GetDatabaseInfo() string {
	if ctx.Database != nil {
		return ctx.Database.GetConnectionInfo()
	}
	return "no database connection"
}

// =============================================================================
// Repository Factory Methods
// =============================================================================

// EventRepo returns an interaction event repository instance.
// It returns the interface type from the domain layer.
func (ctx *Context) EventRepo() domainAnalytics.EventRepository {
	if ctx.EventRepository != nil {
		return ctx.EventRepository
	}
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceAnalytics.NewEventRepository(db, ctx.TenantID, ctx.Logger)
}

// ApplicationRepo returns an application repository instance.
// It returns the interface type from the domain layer.
func (ctx *Context) ApplicationRepo() domainIntake.ApplicationRepository {
	if ctx.ApplicationRepository != nil {
		return ctx.ApplicationRepository
	}
	db := &database.DB{DB: ctx.Database.Conn}
	return persistenceIntake.NewApplicationRepository(db, ctx.TenantID, ctx.Config.AESKey, ctx.Logger)
}
