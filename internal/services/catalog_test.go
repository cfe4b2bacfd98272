package services

import (
	"context"
	"testing"
	"time"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

func TestListActiveRidesExcludesBookedAndCancelled(t *testing.T) {
	db := setupTestDB(t)
	bookings := NewBookingService(db)
	catalog := NewCatalogService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)

	open := mustCreateRide(t, db, driver.ID, 3, 1)
	booked := mustCreateRide(t, db, driver.ID, 3, 1)
	cancelled := mustCreateRide(t, db, driver.ID, 3, 1)

	if _, err := bookings.Reserve(ctx, ReserveInput{RideID: booked.ID, PassengerID: passenger.ID, Seats: 1}); err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if err := bookings.CancelRide(ctx, cancelled.ID, driver.ID, "weather"); err != nil {
		t.Fatalf("CancelRide failed: %v", err)
	}

	rides, err := catalog.ListActiveRides(ctx, CatalogFilters{})
	if err != nil {
		t.Fatalf("ListActiveRides failed: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != open.ID {
		ids := make([]uint, len(rides))
		for i, r := range rides {
			ids[i] = r.ID
		}
		t.Errorf("listing = %v, want only ride %d", ids, open.ID)
	}
}

func TestListBookedAndPostedRides(t *testing.T) {
	db := setupTestDB(t)
	bookings := NewBookingService(db)
	catalog := NewCatalogService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	booking, err := bookings.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	items, err := catalog.ListBookedRides(ctx, passenger.ID)
	if err != nil {
		t.Fatalf("ListBookedRides failed: %v", err)
	}
	if len(items) != 1 || items[0].Status != models.BookingStatusUpcoming {
		t.Fatalf("booked listing = %+v, want one upcoming item", items)
	}

	posted, err := catalog.ListPostedRides(ctx, driver.ID)
	if err != nil {
		t.Fatalf("ListPostedRides failed: %v", err)
	}
	if len(posted) != 1 || posted[0].Status != models.RideStatusActive {
		t.Fatalf("posted listing = %+v, want one active item", posted)
	}
	if posted[0].Booking == nil || posted[0].Booking.ID != booking.ID {
		t.Error("posted item should carry the active booking")
	}

	// Hiding removes rows from each party's own listing only
	if err := bookings.HideForPassenger(ctx, booking.ID, passenger.ID); err != nil {
		t.Fatalf("HideForPassenger failed: %v", err)
	}
	items, _ = catalog.ListBookedRides(ctx, passenger.ID)
	if len(items) != 0 {
		t.Error("hidden booking should not be listed")
	}

	if err := catalog.HideForDriver(ctx, ride.ID, driver.ID); err != nil {
		t.Fatalf("HideForDriver failed: %v", err)
	}
	posted, _ = catalog.ListPostedRides(ctx, driver.ID)
	if len(posted) != 0 {
		t.Error("hidden ride should not be listed")
	}
}

func TestListActiveRidesTimeWindow(t *testing.T) {
	db := setupTestDB(t)
	catalog := NewCatalogService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	soon := mustCreateRide(t, db, driver.ID, 2, 0)
	later := mustCreateRide(t, db, driver.ID, 2, 0)

	in10 := time.Now().Add(10 * time.Minute)
	db.Model(soon).Updates(map[string]interface{}{
		"departure_date": in10.Format("2006-01-02"),
		"departure_time": in10.Format("15:04"),
	})
	in3h := time.Now().Add(3 * time.Hour)
	db.Model(later).Updates(map[string]interface{}{
		"departure_date": in3h.Format("2006-01-02"),
		"departure_time": in3h.Format("15:04"),
	})

	rides, err := catalog.ListActiveRides(ctx, CatalogFilters{})
	if err != nil {
		t.Fatalf("ListActiveRides failed: %v", err)
	}
	for _, ride := range rides {
		if ride.ID == soon.ID {
			t.Error("ride departing in 10 minutes should be filtered out")
		}
	}
	found := false
	for _, ride := range rides {
		if ride.ID == later.ID {
			found = true
		}
	}
	if !found {
		t.Error("ride departing in 3 hours should be listed")
	}
}
