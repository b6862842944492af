package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/reorder-planner/internal/domain"
	"github.com/andresuchdata/reorder-planner/internal/service"
	"github.com/andresuchdata/reorder-planner/internal/state"
	"github.com/andresuchdata/reorder-planner/internal/storage"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, storage.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConfiguration),
		errors.Is(err, domain.ErrInvalidHistoryLength),
		errors.Is(err, domain.ErrMissingSKU),
		errors.Is(err, domain.ErrNoRecentHistory),
		errors.Is(err, domain.ErrInvalidMonth),
		errors.Is(err, domain.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, state.ErrNoGenerator):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoStorage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

func badRequest(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
