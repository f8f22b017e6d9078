package v1

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	v1 "github.com/USA-RedDragon/itinerary-server/internal/server/apimodels/v1"
	"github.com/USA-RedDragon/itinerary-server/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const maxPlanBytes = 4 << 20

func newTripResponse(trip models.Trip) v1.TripResponse {
	resp := v1.TripResponse{Trip: trip}
	route := make([]utils.Point, 0, len(trip.Waypoints))
	for _, wp := range trip.Waypoints {
		if !wp.Resolved() {
			continue
		}
		route = append(route, utils.Point{Lat: wp.Latitude.Float64Value(), Lng: wp.Longitude.Float64Value()})
	}
	resp.ResolvedWaypoints = len(route)
	resp.DistanceMeters = utils.PathLength(route)
	return resp
}

func readPayload(c *gin.Context) (itinerary.Payload, error) {
	kind, err := itinerary.PayloadKindFromContentType(c.ContentType())
	if err != nil {
		return itinerary.Payload{}, err
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPlanBytes)
	switch kind {
	case itinerary.PayloadForm:
		err := c.Request.ParseMultipartForm(maxPlanBytes)
		if err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return itinerary.Payload{}, errors.Join(itinerary.ErrMissingRequiredField, err)
		}
		return itinerary.FormPayload(c.Request.PostForm), nil
	default:
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return itinerary.Payload{}, errors.Join(itinerary.ErrMissingRequiredField, err)
		}
		return itinerary.JSONPayload(body), nil
	}
}

func POSTTrip(c *gin.Context) {
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

	payload, err := readPayload(c)
	if err != nil {
		abortWithError(c, "POSTTrip", err)
		return
	}
	plan, err := itinerary.Parse(payload)
	if err != nil {
		abortWithError(c, "POSTTrip", err)
		return
	}

	trip, created, err := svc.CreateTrip(c.Request.Context(), user.ID, plan, user.Email)
	if err != nil && trip.ID == "" {
		abortWithError(c, "POSTTrip", err)
		return
	}
	if err != nil {
		slog.Warn("Trip created with an incomplete itinerary", "trip_id", trip.ID, "error", err)
	}

	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	full, err := models.FindTripWithWaypoints(db.WithContext(c.Request.Context()), trip.ID)
	if err != nil {
		slog.Error("Failed to reload trip", "trip_id", trip.ID, "error", err)
		full = trip
	}

	c.JSON(http.StatusCreated, v1.POSTTripResponse{
		Trip:             newTripResponse(full),
		WaypointsCreated: created,
	})
}

func GETTrips(c *gin.Context) {
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

	trips, err := models.ListTripsByOwnerID(db.WithContext(c.Request.Context()), user.ID)
	if err != nil {
		slog.Error("Failed to list trips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	resp := make([]v1.TripResponse, 0, len(trips))
	for _, trip := range trips {
		resp = append(resp, v1.TripResponse{Trip: trip})
	}
	c.JSON(http.StatusOK, resp)
}

func GETTrip(c *gin.Context) {
	tripID := c.Param("trip_id")
	db, ok := c.MustGet("db").(*gorm.DB)
	if !ok {
		slog.Error("Failed to get db from context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}

	trip, err := models.FindTripWithWaypoints(db.WithContext(c.Request.Context()), tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		slog.Error("Failed to get trip", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Try again later"})
		return
	}
	c.JSON(http.StatusOK, newTripResponse(trip))
}

func DELETETrip(c *gin.Context) {
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

	if err := svc.DeleteTrip(c.Request.Context(), c.Param("trip_id"), user.ID); err != nil {
		abortWithError(c, "DELETETrip", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": 1})
}

// GETTripPlan returns the payload the trip was created from, in the encoding
// it arrived in.
func GETTripPlan(c *gin.Context) {
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

	trip, err := svc.Authorize(c.Request.Context(), c.Param("trip_id"), user.ID)
	if err != nil {
		abortWithError(c, "GETTripPlan", err)
		return
	}
	payload, err := svc.ArchivedPlan(c.Request.Context(), trip)
	if err != nil {
		abortWithError(c, "GETTripPlan", err)
		return
	}
	contentType := "application/x-www-form-urlencoded"
	if json.Valid(payload) {
		contentType = "application/json"
	}
	c.Data(http.StatusOK, contentType, payload)
}
