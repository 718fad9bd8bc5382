package handlers

import (
	"net/http"

	"github.com/Allmight-456/event-management-go/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// respondError maps a core error to an HTTP status through its kind.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindPermissionDenied:
		status = http.StatusForbidden
	case apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindValidation, apperrors.KindBatchFailure:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
