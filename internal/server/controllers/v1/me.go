package v1

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	v1 "github.com/USA-RedDragon/itinerary-server/internal/server/apimodels/v1"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GETMe(c *gin.Context) {
	user, ok := c.MustGet("user").(*models.User)
	if !ok {
		slog.Error("Failed to get user from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	trips, err := models.CountTripsByOwnerID(db.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		slog.Error("Failed to count trips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	c.JSON(http.StatusOK, v1.GETMeResponse{
		ID:             user.ID,
		Email:          user.Email,
		RegisteredDate: uint(user.CreatedAt.Unix()),
		Trips:          int(trips),
	})
}
