package routes

import (
	"github.com/Allmight-456/event-management-go/internal/api/handlers"
	"github.com/Allmight-456/event-management-go/internal/api/middleware"
	"github.com/Allmight-456/event-management-go/pkg/security/auth"
	"github.com/gin-gonic/gin"
)

// AuthRoutes handles the setup of authentication routes
type AuthRoutes struct {
	handler *handlers.AuthHandler
	jwt     *auth.JWTService
}

// NewAuthRoutes creates a new AuthRoutes instance
func NewAuthRoutes(handler *handlers.AuthHandler, jwt *auth.JWTService) *AuthRoutes {
	return &AuthRoutes{handler: handler, jwt: jwt}
}

// RegisterRoutes registers all authentication routes
func (ar *AuthRoutes) RegisterRoutes(router *gin.Engine) {
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", ar.handler.Register)
		authGroup.POST("/login", ar.handler.Login)
	}

	me := router.Group("/api/auth")
	me.Use(middleware.NewAuthMiddleware(ar.jwt))
	me.GET("/me", ar.handler.Me)
}
