package routes

import (
	"github.com/Allmight-456/event-management-go/internal/api/handlers"
	"github.com/Allmight-456/event-management-go/internal/api/middleware"
	"github.com/Allmight-456/event-management-go/pkg/security/auth"
	"github.com/gin-gonic/gin"
)

// EventRoutes handles the setup of event-related routes
type EventRoutes struct {
	events        *handlers.EventHandler
	versions      *handlers.VersionHandler
	collaboration *handlers.CollaborationHandler
	jwt           *auth.JWTService
}

// NewEventRoutes creates a new EventRoutes instance
func NewEventRoutes(events *handlers.EventHandler, versions *handlers.VersionHandler, collaboration *handlers.CollaborationHandler, jwt *auth.JWTService) *EventRoutes {
	return &EventRoutes{
		events:        events,
		versions:      versions,
		collaboration: collaboration,
		jwt:           jwt,
	}
}

// RegisterRoutes registers all event-related routes
func (er *EventRoutes) RegisterRoutes(router *gin.Engine) {
	eventGroup := router.Group("/api/events")
	eventGroup.Use(middleware.NewAuthMiddleware(er.jwt))

	{
		eventGroup.POST("", er.events.CreateEvent)
		eventGroup.POST("/batch", er.events.CreateBatch)
		eventGroup.GET("", er.events.ListEvents)
		eventGroup.GET("/:id", er.events.GetEvent)
		eventGroup.PUT("/:id", er.events.UpdateEvent)
		eventGroup.DELETE("/:id", er.events.DeleteEvent)

		// Version history
		eventGroup.GET("/:id/history", er.versions.History)
		eventGroup.GET("/:id/history/:version", er.versions.GetVersion)
		eventGroup.GET("/:id/diff/:version1/:version2", er.versions.Compare)
		eventGroup.GET("/:id/changelog", er.versions.Changelog)
		eventGroup.POST("/:id/rollback/:version", er.versions.Rollback)

		// Collaboration
		eventGroup.POST("/:id/share", er.collaboration.Share)
		eventGroup.GET("/:id/permissions", er.collaboration.ListPermissions)
		eventGroup.DELETE("/:id/permissions/:userId", er.collaboration.Revoke)
	}
}
