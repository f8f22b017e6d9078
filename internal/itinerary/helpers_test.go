package itinerary_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"gorm.io/gorm"
)

func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func seedTrip(t *testing.T, db *gorm.DB, email string) (models.User, models.Trip) {
	t.Helper()
	user, err := models.FindOrCreateUserByEmail(db, email)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	trip := models.Trip{
		OwnerID:     user.ID,
		Title:       "Kyoto",
		Description: "Temples",
		StartDate:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&trip).Error; err != nil {
		t.Fatalf("failed to create trip: %v", err)
	}
	return user, trip
}

func seedWaypoints(t *testing.T, db *gorm.DB, tripID string, titles ...string) []models.Waypoint {
	t.Helper()
	waypoints := make([]models.Waypoint, 0, len(titles))
	for i, title := range titles {
		wp := models.Waypoint{TripID: tripID, Title: title, Order: i}
		if err := models.CreateWaypoint(db, &wp); err != nil {
			t.Fatalf("failed to create waypoint: %v", err)
		}
		waypoints = append(waypoints, wp)
	}
	return waypoints
}

// assertContiguous checks that the trip's orders are exactly 0..n-1.
func assertContiguous(t *testing.T, db *gorm.DB, tripID string, n int) []models.Waypoint {
	t.Helper()
	waypoints, err := models.FindWaypointsByTripID(db, tripID)
	if err != nil {
		t.Fatalf("failed to load waypoints: %v", err)
	}
	if len(waypoints) != n {
		t.Fatalf("expected %d waypoints, got %d", n, len(waypoints))
	}
	for i, wp := range waypoints {
		if wp.Order != i {
			t.Errorf("expected order %d at index %d, got %d", i, i, wp.Order)
		}
	}
	return waypoints
}

func ids(waypoints []models.Waypoint) []string {
	out := make([]string, len(waypoints))
	for i, wp := range waypoints {
		out[i] = wp.ID
	}
	return out
}
