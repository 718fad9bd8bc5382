package handlers

import (
	"net/http"
	"strconv"

	"github.com/Allmight-456/event-management-go/internal/api/middleware"
	"github.com/Allmight-456/event-management-go/internal/domain/version"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// VersionHandler handles HTTP requests for event version history
type VersionHandler struct {
	store version.Store
}

// NewVersionHandler creates a new version handler instance
func NewVersionHandler(store version.Store) *VersionHandler {
	return &VersionHandler{store: store}
}

func (h *VersionHandler) History(c *gin.Context) {
	eventID, userID, ok := h.identifiers(c)
	if !ok {
		return
	}

	versions, err := h.store.History(c.Request.Context(), eventID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
}

func (h *VersionHandler) GetVersion(c *gin.Context) {
	eventID, userID, ok := h.identifiers(c)
	if !ok {
		return
	}

	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil || versionNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	v, err := h.store.Get(c.Request.Context(), eventID, versionNumber, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *VersionHandler) Compare(c *gin.Context) {
	eventID, userID, ok := h.identifiers(c)
	if !ok {
		return
	}

	v1, err := strconv.Atoi(c.Param("version1"))
	if err != nil || v1 < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}
	v2, err := strconv.Atoi(c.Param("version2"))
	if err != nil || v2 < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	result, err := h.store.Compare(c.Request.Context(), eventID, v1, v2, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *VersionHandler) Changelog(c *gin.Context) {
	eventID, userID, ok := h.identifiers(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.store.Changelog(c.Request.Context(), eventID, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"changelog": entries, "count": len(entries)})
}

func (h *VersionHandler) Rollback(c *gin.Context) {
	eventID, userID, ok := h.identifiers(c)
	if !ok {
		return
	}

	versionNumber, err := strconv.Atoi(c.Param("version"))
	if err != nil || versionNumber < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
		return
	}

	e, err := h.store.Rollback(c.Request.Context(), eventID, versionNumber, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, e)
}

func (h *VersionHandler) identifiers(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	eventID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event ID"})
		return uuid.Nil, uuid.Nil, false
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return uuid.Nil, uuid.Nil, false
	}
	return eventID, userID, true
}
