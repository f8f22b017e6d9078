package v1

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/gin-gonic/gin"
)

// abortWithError writes the response for a pipeline error.
func abortWithError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, itinerary.ErrUnsupportedPayload):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
	case errors.Is(err, itinerary.ErrMissingRequiredField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, itinerary.ErrPermutationMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, itinerary.ErrTripNotFound),
		errors.Is(err, itinerary.ErrWaypointNotFound),
		errors.Is(err, itinerary.ErrPlanNotArchived):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	case errors.Is(err, itinerary.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, itinerary.ErrNotFound):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Could not find that place"})
	case errors.Is(err, context.Canceled):
		slog.Warn(op, "error", err)
		c.Status(499)
	default:
		slog.Error(op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
	}
}
