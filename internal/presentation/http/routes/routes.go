// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/FundingReach/intakeflow-go/internal/application/container"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/handlers"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	analyticsHandlers := handlers.NewAnalyticsHandlers(container.IngestionService, container.HeatmapService, container.Logger, container.PerfTracker)
	applicationHandlers := handlers.NewApplicationHandlers(container.ApplicationService, container.Logger, container.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	activityHandlers := handlers.NewActivityHandlers(container.Broadcaster, container.Logger)
	dbHandlers := handlers.NewDBHandlers(container.Logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes with tenant middleware
	api := r.Group("/api/v1")
	api.Use(middleware.TenantMiddleware(container.TenantManager, container.PerfTracker))
	{
		// Guest-facing intake flow endpoints
		applications := api.Group("/applications")
		{
			applications.POST("", applicationHandlers.PostApplication)
			applications.PUT("/:appId", applicationHandlers.PutApplication)
			applications.POST("/:appId/activity", applicationHandlers.PostActivity)
			applications.POST("/:appId/submit", applicationHandlers.PostSubmit)
		}

		// Guest-facing event ingestion
		api.POST("/analytics/:appId/events", analyticsHandlers.PostEvents)

		// Staff authentication
		api.POST("/auth/login", authHandlers.PostLogin)

		// Staff-only analytics reads
		staff := api.Group("/analytics")
		staff.Use(middleware.StaffAuthMiddleware(container.AuthService))
		{
			staff.GET("/tenant/friction", analyticsHandlers.GetTenantFriction)
			staff.GET("/:appId/heatmap", analyticsHandlers.GetHeatmap)
			staff.GET("/:appId/summary", analyticsHandlers.GetSummary)
		}

		// Staff-only database status
		db := api.Group("/db")
		db.Use(middleware.StaffAuthMiddleware(container.AuthService))
		{
			db.GET("/status", dbHandlers.GetDatabaseStatus)
		}

		// Staff-only live activity stream
		activity := api.Group("/activity")
		activity.Use(middleware.StaffAuthMiddleware(container.AuthService))
		{
			activity.GET("/ws", activityHandlers.GetActivityStream)
		}
	}

	return r
}
