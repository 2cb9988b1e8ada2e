// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/JonathanYesh279/tenuto-go/internal/application/container"
	"github.com/JonathanYesh279/tenuto-go/internal/presentation/http/handlers"
	"github.com/JonathanYesh279/tenuto-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	// Initialize handlers
	deletionHandlers := handlers.NewDeletionHandlers(container.DeletionService, container.Logger, container.PerfTracker)
	integrityHandlers := handlers.NewIntegrityHandlers(container.IntegrityService, container.Logger, container.PerfTracker)
	orphanHandlers := handlers.NewOrphanHandlers(container.OrphanService, container.Logger, container.PerfTracker)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	streamHandlers := handlers.NewStreamHandlers(container.Broadcaster, container.Logger)
	eventsHandlers := handlers.NewEventsHandlers(container.EventsHub, container.Logger)
	healthHandlers := handlers.NewHealthHandlers(container.DB, container.CacheManager, container.PerfTracker, container.Logger)

	api := r.Group("/api/v1")
	{
		// Liveness and diagnostics
		api.GET("/health", healthHandlers.GetHealth)
		api.GET("/health/stats", healthHandlers.GetStats)

		// Authentication
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandlers.PostLogin)
			auth.POST("/logout", authHandlers.PostLogout)
			auth.GET("/status", authHandlers.GetAuthStatus)
		}

		// Cascade deletion
		deletion := api.Group("/deletion")
		deletion.Use(authHandlers.AuthMiddleware())
		{
			deletion.GET("/preview/:kind/:id", deletionHandlers.GetPreview)
			deletion.POST("/execute/:kind/:id", deletionHandlers.PostExecute)
			deletion.GET("/operations", deletionHandlers.GetOperations)
			deletion.GET("/operations/:id", deletionHandlers.GetOperation)
			deletion.POST("/operations/:id/cancel", deletionHandlers.PostCancel)
			deletion.GET("/operations/:id/stream", streamHandlers.GetOperationStream)
		}

		// Integrity validation and repair
		integrity := api.Group("/integrity")
		integrity.Use(authHandlers.AuthMiddleware())
		{
			integrity.POST("/validate", integrityHandlers.PostValidate)
			integrity.GET("/validation", integrityHandlers.GetValidation)
			integrity.POST("/repair", integrityHandlers.PostRepair)
			integrity.GET("/events", integrityHandlers.GetEvents)
			integrity.GET("/errors", integrityHandlers.GetErrorLog)
		}

		// Orphaned reference cleanup
		orphans := api.Group("/orphans")
		orphans.Use(authHandlers.AuthMiddleware())
		{
			orphans.POST("/preview", orphanHandlers.PostPreview)
			orphans.POST("/cleanup", orphanHandlers.PostCleanup)
		}

		// Real-time event ingestion over websocket
		events := api.Group("/events")
		events.Use(authHandlers.AuthMiddleware())
		{
			events.GET("/ws", eventsHandlers.GetEventsWS)
		}

		// Log streaming and level management
		logs := api.Group("/logs")
		logs.Use(authHandlers.AuthMiddleware())
		{
			logs.GET("/stream", streamHandlers.GetLogStream)
			logs.GET("/levels", streamHandlers.GetLogLevels)
			logs.POST("/levels", streamHandlers.SetLogLevel)
		}
	}

	return r
}
