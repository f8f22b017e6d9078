package events_test

import (
	"context"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/internal/events"
)

func TestSubject(t *testing.T) {
	t.Parallel()
	got := events.Subject("itinerary.events", events.EventTypeTripReordered)
	if got != "itinerary.events.trip.reordered" {
		t.Errorf("unexpected subject %q", got)
	}
}

func TestRecorderDropsWhenFull(t *testing.T) {
	t.Parallel()
	r := events.NewRecorder(1)
	ctx := context.Background()
	if err := r.Publish(ctx, events.Event{Type: events.EventTypeTripCreated, TripID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Publish(ctx, events.Event{Type: events.EventTypeTripDeleted, TripID: "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := <-r.GetChannel()
	if got.GetType() != events.EventTypeTripCreated {
		t.Errorf("expected first event to be kept, got %s", got.GetType())
	}
	select {
	case e := <-r.GetChannel():
		t.Errorf("expected second event to be dropped, got %s", e.GetType())
	default:
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()
	var p events.Publisher = events.Noop{}
	if err := p.Publish(context.Background(), events.Event{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
