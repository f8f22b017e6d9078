package v1

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	v1 "github.com/USA-RedDragon/itinerary-server/internal/server/apimodels/v1"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GETWaypoints(c *gin.Context) {
	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	waypoints, err := models.FindWaypointsByTripID(db.WithContext(c.Request.Context()), c.Param("trip_id"))
	if err != nil {
		slog.Error("Failed to list waypoints", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	if waypoints == nil {
		waypoints = []models.Waypoint{}
	}
	c.JSON(http.StatusOK, waypoints)
}

func POSTWaypoint(c *gin.Context) {
	user, ok := c.MustGet("user").(*models.User)
	if !ok {
		slog.Error("Failed to get user from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	svc, ok := c.MustGet("itinerary").(*itinerary.Service)
	if !ok {
		slog.Error("Failed to get itinerary service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var req v1.POSTWaypointRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	waypoint, err := svc.AddWaypoint(c.Request.Context(), c.Param("trip_id"), req.Address, user.Email)
	if err != nil {
		abortWithError(c, "POSTWaypoint", err)
		return
	}
	c.JSON(http.StatusCreated, waypoint)
}

func PUTWaypointOrder(c *gin.Context) {
	user, ok := c.MustGet("user").(*models.User)
	if !ok {
		slog.Error("Failed to get user from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	svc, ok := c.MustGet("itinerary").(*itinerary.Service)
	if !ok {
		slog.Error("Failed to get itinerary service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	var req v1.PUTWaypointOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is required"})
		return
	}

	if err := svc.Reorder(c.Request.Context(), c.Param("trip_id"), user.ID, req.Order); err != nil {
		abortWithError(c, "PUTWaypointOrder", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": 1})
}

func DELETEWaypoint(c *gin.Context) {
	user, ok := c.MustGet("user").(*models.User)
	if !ok {
		slog.Error("Failed to get user from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	svc, ok := c.MustGet("itinerary").(*itinerary.Service)
	if !ok {
		slog.Error("Failed to get itinerary service from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	if err := svc.RemoveWaypoint(c.Request.Context(), c.Param("trip_id"), user.ID, c.Param("waypoint_id")); err != nil {
		abortWithError(c, "DELETEWaypoint", err)
		return
	}
	c.Status(http.StatusNoContent)
}
