package itinerary_test

import (
	"context"
	"errors"
	"testing"

	"github.com/USA-RedDragon/itinerary-server/internal/archive"
	"github.com/USA-RedDragon/itinerary-server/internal/db/models"
	"github.com/USA-RedDragon/itinerary-server/internal/itinerary"
	"github.com/USA-RedDragon/itinerary-server/internal/testutils"
)

func TestArchivedPlan(t *testing.T) {
	t.Parallel()
	db := testutils.NewDB(t)
	backend, err := archive.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	plans, err := archive.New(backend)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	t.Cleanup(func() {
		_ = plans.Close()
	})
	user, err := models.FindOrCreateUserByEmail(db, "archive@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc := itinerary.NewService(db, kyotoGeocoder(), itinerary.WithArchive(plans))

	body := []byte(`{"title":"Kyoto","startDate":"2025-04-01","endDate":"2025-04-02",` + kyotoItinerary[1:])
	plan, err := itinerary.Parse(itinerary.JSONPayload(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	trip, _, err := svc.CreateTrip(context.Background(), user.ID, plan, user.Email)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, err := models.FindTripByID(db, trip.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := svc.ArchivedPlan(context.Background(), stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("expected the submitted payload, got %s", got)
	}

	if err := plans.Delete(context.Background(), stored.PlanArchiveKey.StringValue()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.ArchivedPlan(context.Background(), stored); !errors.Is(err, itinerary.ErrPlanNotArchived) {
		t.Errorf("expected ErrPlanNotArchived once the entry is gone, got %v", err)
	}

	bare := itinerary.NewService(db, kyotoGeocoder())
	if _, err := bare.ArchivedPlan(context.Background(), stored); !errors.Is(err, itinerary.ErrPlanNotArchived) {
		t.Errorf("expected ErrPlanNotArchived without an archive, got %v", err)
	}
}
