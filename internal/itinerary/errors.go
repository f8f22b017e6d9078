package itinerary

import (
	"github.com/USA-RedDragon/itinerary-server/internal/geocode"
	"github.com/go-errors/errors"
)

var (
	ErrNotFound             = geocode.ErrNotFound
	ErrProviderError        = geocode.ErrProvider
	ErrUnsupportedPayload   = errors.New("unsupported payload")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrPermutationMismatch  = errors.New("order does not match the trip's waypoints")
	ErrPersistence          = errors.New("persistence failure")
	ErrTripNotFound         = errors.New("trip not found")
	ErrForbidden            = errors.New("trip belongs to another user")
	ErrWaypointNotFound     = errors.New("waypoint not found")
	ErrPlanNotArchived      = errors.New("no archived plan for this trip")
)
