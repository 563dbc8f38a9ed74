package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"asset-booking-backend/internal/apperr"
	"asset-booking-backend/internal/model"
)

const actionReload = "reload and retry"

// respondError maps an engine error to its HTTP status.
func respondError(c *gin.Context, err error) {
	var conflict *apperr.ConflictError
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"error":           err.Error(),
			"resourceId":      conflict.ResourceID,
			"expectedVersion": conflict.Expected,
			"currentVersion":  conflict.Actual,
			"action":          actionReload,
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrResourceUnavailable), errors.Is(err, apperr.ErrAlreadyDecided):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrInvariantViolation):
		log.Printf("INVARIANT VIOLATION on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		log.Printf("Error handling %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondCommand writes the outcome of a two-resource command. A partial
// failure is reported as 207 with the resource that did change, so the
// client can compensate against its new version.
func respondCommand(c *gin.Context, err error, succeeded model.Resource, body any) {
	var partial *apperr.PartialFailureError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, body)
	case errors.As(err, &partial):
		c.JSON(http.StatusMultiStatus, gin.H{
			"error":            err.Error(),
			"operation":        partial.Op,
			"resource":         succeeded,
			"succeeded":        partial.Succeeded,
			"succeededVersion": partial.SucceededVersion,
			"failed":           partial.Failed,
			"action":           "release " + partial.Succeeded + " to undo, or " + actionReload + " on " + partial.Failed,
		})
	default:
		respondError(c, err)
	}
}

// bindJSON binds an optional JSON body; an empty body leaves req zeroed.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return false
	}
	return true
}

// bindRequiredJSON binds a JSON body that must be present.
func bindRequiredJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "detail": err.Error()})
		return false
	}
	return true
}
