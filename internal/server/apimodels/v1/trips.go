package v1

import "github.com/USA-RedDragon/itinerary-server/internal/db/models"

type TripResponse struct {
	models.Trip
	// DistanceMeters is the great-circle length of the route through the
	// resolved waypoints, in order. Unresolved waypoints are skipped.
	DistanceMeters    float64 `json:"distance_meters"`
	ResolvedWaypoints int     `json:"resolved_waypoints"`
}

type POSTTripResponse struct {
	Trip             TripResponse `json:"trip"`
	WaypointsCreated int          `json:"waypoints_created"`
}

type POSTWaypointRequest struct {
	Address string `json:"address" form:"address" binding:"required"`
}

type PUTWaypointOrderRequest struct {
	Order []string `json:"order" binding:"required"`
}
