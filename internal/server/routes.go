package server

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/itinerary-server/internal/config"
	controllersV1 "github.com/USA-RedDragon/itinerary-server/internal/server/controllers/v1"
	"github.com/gin-gonic/gin"
)

func applyRoutes(r *gin.Engine, config *config.Config) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	apiV1 := r.Group("/v1")
	v1(apiV1, config)

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

func v1(group *gin.RouterGroup, config *config.Config) {
	authed := group.Group("", requireAuth(config))
	authed.GET("/me", controllersV1.GETMe)

	trips := authed.Group("/trips")
	trips.GET("", controllersV1.GETTrips)
	trips.POST("", controllersV1.POSTTrip)

	trip := trips.Group("/:trip_id", requireTripOwner())
	trip.GET("", controllersV1.GETTrip)
	trip.DELETE("", controllersV1.DELETETrip)
	trip.GET("/waypoints", controllersV1.GETWaypoints)
	trip.POST("/waypoints", controllersV1.POSTWaypoint)
	trip.PUT("/waypoints/order", controllersV1.PUTWaypointOrder)
	trip.DELETE("/waypoints/:waypoint_id", controllersV1.DELETEWaypoint)
	trip.GET("/plan", controllersV1.GETTripPlan)
}
