package events

import (
	"context"
	"time"
)

type EventType string

const (
	EventTypeTripCreated     EventType = "trip.created"
	EventTypeTripDeleted     EventType = "trip.deleted"
	EventTypeTripReordered   EventType = "trip.reordered"
	EventTypeWaypointAdded   EventType = "waypoint.added"
	EventTypeWaypointRemoved EventType = "waypoint.removed"
)

type Event struct {
	Type      EventType `json:"type"`
	TripID    string    `json:"trip_id"`
	OwnerID   uint      `json:"owner_id"`
	Waypoints int       `json:"waypoints,omitempty"`
	Time      time.Time `json:"time"`
}

func (e Event) GetType() EventType {
	return e.Type
}

// Publisher delivers itinerary change notifications. Delivery is best-effort:
// a failed publish never undoes the write that produced it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	events chan Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{events: make(chan Event, size)}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	select {
	case r.events <- event:
	default:
	}
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) GetChannel() chan Event {
	return r.events
}
