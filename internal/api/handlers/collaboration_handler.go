package handlers

import (
	"net/http"

	"github.com/Allmight-456/event-management-go/internal/api/middleware"
	"github.com/Allmight-456/event-management-go/internal/domain/collaboration"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CollaborationHandler handles HTTP requests for event sharing
type CollaborationHandler struct {
	service collaboration.Service
}

// NewCollaborationHandler creates a new collaboration handler instance
func NewCollaborationHandler(service collaboration.Service) *CollaborationHandler {
	return &CollaborationHandler{service: service}
}

func (h *CollaborationHandler) Share(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}

	var req collaboration.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	results, err := h.service.Share(c.Request.Context(), eventID, userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *CollaborationHandler) ListPermissions(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	entries, err := h.service.ListPermissions(c.Request.Context(), eventID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": entries})
}

func (h *CollaborationHandler) Revoke(c *gin.Context) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return
	}

	granteeID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	removed, err := h.service.Revoke(c.Request.Context(), eventID, userID, granteeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "no permission found for user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "permission revoked"})
}
