package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripdesk/marketplace-backend/internal/models"
)

// respondError translates a domain error into an HTTP response. Every typed
// domain error has a fixed status; anything else is a 500 and gets logged.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		forbiddenErr  *models.ForbiddenError
		transitionErr *models.InvalidTransitionError
		concurrentErr *models.ConcurrentModificationError
		duplicateErr  *models.DuplicateRequestError
		catalogErr    *models.CatalogUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"message": validationErr.Error(),
			"field":   validationErr.Field,
		})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": forbiddenErr.Error(),
		})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": notFoundErr.Error(),
		})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "invalid_transition",
			"message":   transitionErr.Error(),
			"current":   transitionErr.Current,
			"requested": transitionErr.Requested,
		})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "duplicate_request",
			"message": duplicateErr.Error(),
		})
	case errors.As(err, &concurrentErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "concurrent_modification",
			"message": concurrentErr.Error(),
		})
	case errors.As(err, &catalogErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "catalog_unavailable",
			"message": catalogErr.Error(),
		})
	default:
		logger.WithError(err).Error("Unhandled error in request")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "An internal error occurred",
		})
	}
}
