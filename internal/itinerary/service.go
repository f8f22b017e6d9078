// Package itinerary turns ingested travel plans into ordered waypoints and
// keeps each trip's waypoint order contiguous across appends and reorders.
package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/USA-RedDragon/itinerary-server/internal/archive"
	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/events"
	"github.com/USA-RedDragon/itinerary-server/internal/geocode"
	"github.com/USA-RedDragon/itinerary-server/internal/metrics"
	"github.com/mattn/go-nulltype"
	"gorm.io/gorm"
)

type Service struct {
	db         *gorm.DB
	normalizer *Normalizer
	locker     TripLocker
	publisher  events.Publisher
	archive    *archive.Archive
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLocker(locker TripLocker) Option {
	return func(s *Service) { s.locker = locker }
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

func WithArchive(a *archive.Archive) Option {
	return func(s *Service) { s.archive = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(db *gorm.DB, geocoder geocode.Geocoder, opts ...Option) *Service {
	s := &Service{
		db:         db,
		normalizer: NewNormalizer(geocoder),
		locker:     NewLocalLocker(),
		publisher:  events.Noop{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) lock(ctx context.Context, tripID string) (func(), error) {
	start := time.Now()
	unlock, err := s.locker.Lock(ctx, tripID)
	s.metrics.ObserveLockWait(time.Since(start).Seconds())
	return unlock, err
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("Failed to publish event", "type", event.Type, "trip_id", event.TripID, "error", err)
	}
}

// CreateTrip validates the plan, stores the trip, archives the raw payload
// and materializes the plan's days. Geocoding failures never fail the call.
func (s *Service) CreateTrip(ctx context.Context, ownerID uint, plan Plan, requester string) (models.Trip, int, error) {
	if err := plan.Validate(); err != nil {
		return models.Trip{}, 0, err
	}
	start, end, err := plan.Dates()
	if err != nil {
		return models.Trip{}, 0, err
	}
	trip := models.Trip{
		OwnerID:     ownerID,
		Title:       plan.Title,
		Description: plan.Description,
		StartDate:   start,
		EndDate:     end,
	}
	if plan.ImageURL != "" {
		trip.ImageURL = nulltype.NullStringOf(plan.ImageURL)
	}
	if err := s.db.WithContext(ctx).Create(&trip).Error; err != nil {
		return models.Trip{}, 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.metrics.IncrementTripsCreated()

	if s.archive != nil && len(plan.Raw) > 0 {
		key := archive.KeyForTrip(trip.ID)
		if err := s.archive.Put(ctx, key, plan.Raw); err != nil {
			slog.Error("Failed to archive plan", "trip_id", trip.ID, "error", err)
		} else {
			trip.PlanArchiveKey = nulltype.NullStringOf(key)
			if err := s.db.WithContext(ctx).Model(&trip).Update("plan_archive_key", key).Error; err != nil {
				slog.Error("Failed to record plan archive key", "trip_id", trip.ID, "error", err)
			}
		}
	}

	created, err := s.Materialize(ctx, trip.ID, plan.Days, requester)
	s.publish(ctx, events.Event{Type: events.EventTypeTripCreated, TripID: trip.ID, OwnerID: ownerID, Waypoints: created})
	if err != nil {
		return trip, created, err
	}
	return trip, created, nil
}

// Authorize loads the trip and checks that ownerID owns it.
func (s *Service) Authorize(ctx context.Context, tripID string, ownerID uint) (models.Trip, error) {
	trip, err := models.FindTripByID(s.db.WithContext(ctx), tripID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trip{}, ErrTripNotFound
		}
		return models.Trip{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if trip.OwnerID != ownerID {
		return models.Trip{}, ErrForbidden
	}
	return trip, nil
}

// DeleteTrip removes the trip, its waypoints and its archived plan.
func (s *Service) DeleteTrip(ctx context.Context, tripID string, ownerID uint) error {
	trip, err := s.Authorize(ctx, tripID, ownerID)
	if err != nil {
		return err
	}
	unlock, err := s.lock(ctx, tripID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := models.DeleteTrip(s.db.WithContext(ctx), tripID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTripNotFound
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if s.archive != nil && trip.PlanArchiveKey.Valid() {
		if err := s.archive.Delete(ctx, trip.PlanArchiveKey.StringValue()); err != nil {
			slog.Warn("Failed to delete archived plan", "trip_id", tripID, "error", err)
		}
	}
	s.publish(ctx, events.Event{Type: events.EventTypeTripDeleted, TripID: tripID, OwnerID: ownerID})
	return nil
}

// ArchivedPlan returns the payload the trip was created from, as received.
func (s *Service) ArchivedPlan(ctx context.Context, trip models.Trip) ([]byte, error) {
	if s.archive == nil || !trip.PlanArchiveKey.Valid() {
		return nil, ErrPlanNotArchived
	}
	payload, err := s.archive.Get(ctx, trip.PlanArchiveKey.StringValue())
	if errors.Is(err, archive.ErrNotFound) {
		return nil, ErrPlanNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return payload, nil
}
