package itinerary

import (
	"context"
	"errors"
	"fmt"

	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/events"
	"gorm.io/gorm"
)

// Reorder sets each waypoint's order to its index in orderedIDs. orderedIDs
// must be a permutation of the trip's waypoint IDs. Either every row is
// renumbered or none is.
func (s *Service) Reorder(ctx context.Context, tripID string, ownerID uint, orderedIDs []string) error {
	if _, err := s.Authorize(ctx, tripID, ownerID); err != nil {
		s.metrics.ObserveReorder("rejected")
		return err
	}

	unlock, err := s.lock(ctx, tripID)
	if err != nil {
		return err
	}
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := models.ListWaypointIDsByTripID(tx, tripID)
		if err != nil {
			return err
		}
		if !isPermutation(current, orderedIDs) {
			return ErrPermutationMismatch
		}
		return renumber(tx, tripID, orderedIDs)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrPermutationMismatch):
		s.metrics.ObserveReorder("mismatch")
		return err
	default:
		s.metrics.ObserveReorder("failed")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.ObserveReorder("ok")
	s.publish(ctx, events.Event{Type: events.EventTypeTripReordered, TripID: tripID, OwnerID: ownerID, Waypoints: len(orderedIDs)})
	return nil
}

// RemoveWaypoint deletes one waypoint and closes the gap it leaves, in one
// transaction.
func (s *Service) RemoveWaypoint(ctx context.Context, tripID string, ownerID uint, waypointID string) error {
	if _, err := s.Authorize(ctx, tripID, ownerID); err != nil {
		return err
	}

	unlock, err := s.lock(ctx, tripID)
	if err != nil {
		return err
	}
	defer unlock()

	remaining := 0
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := models.DeleteWaypoint(tx, tripID, waypointID)
		if err != nil {
			return err
		}
		if !found {
			return ErrWaypointNotFound
		}
		ids, err := models.ListWaypointIDsByTripID(tx, tripID)
		if err != nil {
			return err
		}
		remaining = len(ids)
		return renumber(tx, tripID, ids)
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrWaypointNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.publish(ctx, events.Event{Type: events.EventTypeWaypointRemoved, TripID: tripID, OwnerID: ownerID, Waypoints: remaining})
	return nil
}

// compact renumbers the trip's waypoints to 0..N-1 keeping their relative
// order. The caller holds the trip lock.
func (s *Service) compact(ctx context.Context, tripID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := models.ListWaypointIDsByTripID(tx, tripID)
		if err != nil {
			return err
		}
		return renumber(tx, tripID, ids)
	})
}

// renumber must run inside a transaction. Rows are first parked at negative
// positions so no intermediate state collides on (trip_id, position).
func renumber(tx *gorm.DB, tripID string, orderedIDs []string) error {
	err := tx.Model(&models.Waypoint{}).
		Where("trip_id = ?", tripID).
		Update("position", gorm.Expr("-(position + 1)")).Error
	if err != nil {
		return err
	}
	for i, id := range orderedIDs {
		res := tx.Model(&models.Waypoint{}).
			Where("id = ? AND trip_id = ?", id, tripID).
			Update("position", i)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("waypoint %s: %w", id, gorm.ErrRecordNotFound)
		}
	}
	return nil
}

func isPermutation(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	remaining := make(map[string]struct{}, len(current))
	for _, id := range current {
		remaining[id] = struct{}{}
	}
	for _, id := range proposed {
		if _, ok := remaining[id]; !ok {
			return false
		}
		delete(remaining, id)
	}
	return len(remaining) == 0
}
