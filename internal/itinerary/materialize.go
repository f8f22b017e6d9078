package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/events"
	"github.com/mattn/go-nulltype"
)

// Materialize appends one waypoint per day, in day order, after the trip's
// existing waypoints. A day whose title cannot be geocoded is still stored,
// with null coordinates. A day that fails to persist is logged and skipped,
// and the order is compacted before returning.
//
// Every day is geocoded before the trip lock is taken, so the lock only
// covers the count and the inserts.
func (s *Service) Materialize(ctx context.Context, tripID string, days []Day, requester string) (int, error) {
	waypoints := make([]models.Waypoint, 0, len(days))
	results := make([]string, 0, len(days))
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		waypoint := models.Waypoint{
			TripID:      tripID,
			Title:       day.Title,
			Description: day.Description(),
		}
		result := "unresolved"
		if candidate, ok := s.normalizer.Resolve(ctx, day.Title, requester); ok {
			waypoint.Latitude = nulltype.NullFloat64Of(candidate.Latitude)
			waypoint.Longitude = nulltype.NullFloat64Of(candidate.Longitude)
			result = "resolved"
		}
		waypoints = append(waypoints, waypoint)
		results = append(results, result)
	}

	unlock, err := s.lock(ctx, tripID)
	if err != nil {
		return 0, err
	}
	defer unlock()

	db := s.db.WithContext(ctx)
	base, err := models.CountWaypointsByTripID(db, tripID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	created := 0
	gaps := false
	defer func() {
		if gaps {
			if err := s.compact(context.WithoutCancel(ctx), tripID); err != nil {
				slog.Error("Failed to compact waypoint order", "trip_id", tripID, "error", err)
			}
		}
	}()

	for i := range waypoints {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		waypoint := &waypoints[i]
		waypoint.Order = base + i
		if err := models.CreateWaypoint(db, waypoint); err != nil {
			slog.Error("Failed to create waypoint", "trip_id", tripID, "day", days[i].Number, "order", waypoint.Order, "error", err)
			s.metrics.ObserveWaypoint("failed")
			gaps = true
			continue
		}
		s.metrics.ObserveWaypoint(results[i])
		created++
	}
	return created, nil
}

// AddWaypoint appends a single user-entered stop. Unlike Materialize, input
// that cannot be geocoded is not stored and ErrNotFound is returned.
func (s *Service) AddWaypoint(ctx context.Context, tripID string, raw string, requester string) (models.Waypoint, error) {
	raw = strings.TrimSpace(raw)
	candidate, ok := s.normalizer.Resolve(ctx, raw, requester)
	if !ok {
		return models.Waypoint{}, ErrNotFound
	}

	unlock, err := s.lock(ctx, tripID)
	if err != nil {
		return models.Waypoint{}, err
	}
	defer unlock()

	db := s.db.WithContext(ctx)
	count, err := models.CountWaypointsByTripID(db, tripID)
	if err != nil {
		return models.Waypoint{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	title := raw
	if candidate.FromCoordinates {
		title = candidate.Label
	}
	waypoint := models.Waypoint{
		TripID:    tripID,
		Title:     title,
		Latitude:  nulltype.NullFloat64Of(candidate.Latitude),
		Longitude: nulltype.NullFloat64Of(candidate.Longitude),
		Order:     count,
	}
	if err := models.CreateWaypoint(db, &waypoint); err != nil {
		return models.Waypoint{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.ObserveWaypoint("resolved")
	s.publish(ctx, events.Event{Type: events.EventTypeWaypointAdded, TripID: tripID, Waypoints: count + 1})
	return waypoint, nil
}
