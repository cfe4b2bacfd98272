package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

// setupTestDB connects to the database named by RIBIT_TEST_DSN and resets
// the tables this package touches. Tests are skipped when the variable is
// unset so the suite runs without infrastructure.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("RIBIT_TEST_DSN")
	if dsn == "" {
		t.Skip("RIBIT_TEST_DSN not set; skipping database tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{}, &models.City{}, &models.CityPoint{},
		&models.Ride{}, &models.Booking{},
		&models.LiveTrackingSession{}, &models.TrackingCoordinate{},
		&models.RideReview{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	for _, table := range []string{
		"ride_reviews", "tracking_coordinates", "live_tracking_sessions",
		"bookings", "rides", "city_points", "cities", "users",
	} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("failed to reset table %s: %v", table, err)
		}
	}

	return db
}

func mustCreateUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()
	user := &models.User{
		Username: fmt.Sprintf("user-%d", time.Now().UnixNano()),
		Email:    fmt.Sprintf("u%d@test.local", time.Now().UnixNano()),
		Password: "secret",
		UserType: string(userType),
	}
	if err := user.HashPassword(); err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func mustCreateCity(t *testing.T, db *gorm.DB, name string) *models.City {
	t.Helper()
	city := &models.City{Name: name, State: "FL", IsActive: true}
	if err := db.Create(city).Error; err != nil {
		t.Fatalf("failed to create city: %v", err)
	}
	return city
}

func mustCreateRide(t *testing.T, db *gorm.DB, driverID uint, seats, luggage int) *models.Ride {
	t.Helper()
	from := mustCreateCity(t, db, fmt.Sprintf("From-%d", time.Now().UnixNano()))
	to := mustCreateCity(t, db, fmt.Sprintf("To-%d", time.Now().UnixNano()))
	departure := time.Now().Add(48 * time.Hour)
	ride := &models.Ride{
		DriverID:         driverID,
		FromCityID:       from.ID,
		ToCityID:         to.ID,
		DepartureDate:    departure.Format("2006-01-02"),
		DepartureTime:    departure.Format("15:04"),
		Price:            80,
		TotalSeats:       seats,
		AvailableSeats:   seats,
		TotalLuggage:     luggage,
		AvailableLuggage: luggage,
		IsActive:         true,
	}
	if err := db.Create(ride).Error; err != nil {
		t.Fatalf("failed to create ride: %v", err)
	}
	return ride
}

func assertCapacityConserved(t *testing.T, db *gorm.DB, rideID uint) {
	t.Helper()

	var ride models.Ride
	if err := db.First(&ride, rideID).Error; err != nil {
		t.Fatalf("failed to reload ride: %v", err)
	}

	var seats, luggage int
	row := db.Model(&models.Booking{}).
		Select("COALESCE(SUM(seats_booked), 0), COALESCE(SUM(luggage_booked), 0)").
		Where("ride_id = ? AND is_cancelled = ?", rideID, false).
		Row()
	if err := row.Scan(&seats, &luggage); err != nil {
		t.Fatalf("failed to sum bookings: %v", err)
	}

	if ride.AvailableSeats+seats != ride.TotalSeats {
		t.Errorf("seat conservation violated: available %d + booked %d != total %d",
			ride.AvailableSeats, seats, ride.TotalSeats)
	}
	if ride.AvailableLuggage+luggage != ride.TotalLuggage {
		t.Errorf("luggage conservation violated: available %d + booked %d != total %d",
			ride.AvailableLuggage, luggage, ride.TotalLuggage)
	}
}

func TestReserve(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 3, 2)

	booking, err := svc.Reserve(ctx, ReserveInput{
		RideID: ride.ID, PassengerID: passenger.ID, Seats: 2, Luggage: 1,
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if len(booking.PassengerPIN) != 4 {
		t.Errorf("expected 4-digit PIN, got %q", booking.PassengerPIN)
	}
	if booking.TotalPrice != 72.00 { // 80 * 0.90 for two seats
		t.Errorf("TotalPrice = %v, want 72.00", booking.TotalPrice)
	}

	var reloaded models.Ride
	if err := db.First(&reloaded, ride.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !reloaded.IsBooked {
		t.Error("ride should be flagged booked")
	}
	if reloaded.AvailableSeats != 1 || reloaded.AvailableLuggage != 1 {
		t.Errorf("counters = %d seats, %d luggage; want 1, 1",
			reloaded.AvailableSeats, reloaded.AvailableLuggage)
	}
	assertCapacityConserved(t, db, ride.ID)

	// Remaining seats do not reopen the ride to a second party
	other := mustCreateUser(t, db, models.UserTypePassenger)
	_, err = svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: other.ID, Seats: 1})
	if !errors.Is(err, ErrRideUnavailable) {
		t.Errorf("second booking should fail with ErrRideUnavailable, got %v", err)
	}
}

func TestReserveFailureClassification(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)

	t.Run("not found", func(t *testing.T) {
		_, err := svc.Reserve(ctx, ReserveInput{RideID: 999999, PassengerID: passenger.ID, Seats: 1})
		if !errors.Is(err, ErrRideNotFound) {
			t.Errorf("got %v, want ErrRideNotFound", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		ride := mustCreateRide(t, db, driver.ID, 2, 0)
		now := time.Now()
		db.Model(ride).Updates(map[string]interface{}{"cancelled_at": now})
		_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1})
		if !errors.Is(err, ErrRideCancelled) {
			t.Errorf("got %v, want ErrRideCancelled", err)
		}
	})

	t.Run("inactive", func(t *testing.T) {
		ride := mustCreateRide(t, db, driver.ID, 2, 0)
		db.Model(ride).Update("is_active", false)
		_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1})
		if !errors.Is(err, ErrRideInactive) {
			t.Errorf("got %v, want ErrRideInactive", err)
		}
	})

	t.Run("insufficient seats", func(t *testing.T) {
		ride := mustCreateRide(t, db, driver.ID, 2, 0)
		_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 3})
		if !errors.Is(err, ErrInsufficientSeats) {
			t.Errorf("got %v, want ErrInsufficientSeats", err)
		}
	})

	t.Run("insufficient luggage", func(t *testing.T) {
		ride := mustCreateRide(t, db, driver.ID, 3, 1)
		_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1, Luggage: 2})
		if !errors.Is(err, ErrInsufficientLuggage) {
			t.Errorf("got %v, want ErrInsufficientLuggage", err)
		}
	})

	t.Run("own ride", func(t *testing.T) {
		ride := mustCreateRide(t, db, driver.ID, 2, 0)
		_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: driver.ID, Seats: 1})
		if !errors.Is(err, ErrOwnRide) {
			t.Errorf("got %v, want ErrOwnRide", err)
		}
		// The rollback must leave the ride bookable
		var reloaded models.Ride
		db.First(&reloaded, ride.ID)
		if reloaded.IsBooked || reloaded.AvailableSeats != 2 {
			t.Errorf("failed reserve leaked state: booked=%v seats=%d",
				reloaded.IsBooked, reloaded.AvailableSeats)
		}
	})
}

func TestConcurrentReserveSameRide(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	ride := mustCreateRide(t, db, driver.ID, 3, 2)

	const attempts = 8
	passengers := make([]*models.User, attempts)
	for i := range passengers {
		passengers[i] = mustCreateUser(t, db, models.UserTypePassenger)
	}

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(p *models.User) {
			defer wg.Done()
			_, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: p.ID, Seats: 1})
			errs <- err
		}(passengers[i])
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, ErrRideUnavailable) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful reserve, got %d", success)
	}
	assertCapacityConserved(t, db, ride.ID)
}

func TestCancelByPassenger(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 4, 3)

	booking, err := svc.Reserve(ctx, ReserveInput{
		RideID: ride.ID, PassengerID: passenger.ID, Seats: 2, Luggage: 1,
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := svc.CancelByPassenger(ctx, booking.ID, passenger.ID, "change of plans"); err != nil {
		t.Fatalf("CancelByPassenger failed: %v", err)
	}

	var reloaded models.Ride
	db.First(&reloaded, ride.ID)
	if reloaded.AvailableSeats != 4 || reloaded.AvailableLuggage != 3 {
		t.Errorf("capacity not restored: %d seats, %d luggage",
			reloaded.AvailableSeats, reloaded.AvailableLuggage)
	}
	if !reloaded.IsBooked {
		t.Error("is_booked must stay set after passenger cancellation")
	}
	assertCapacityConserved(t, db, ride.ID)

	if err := svc.CancelByPassenger(ctx, booking.ID, passenger.ID, "again"); !errors.Is(err, ErrBookingCancelled) {
		t.Errorf("double cancel should fail with ErrBookingCancelled, got %v", err)
	}
}

func TestConcurrentCancelSameBooking(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 3, 2)

	booking, err := svc.Reserve(ctx, ReserveInput{
		RideID: ride.ID, PassengerID: passenger.ID, Seats: 2, Luggage: 1,
	})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	const attempts = 4
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.CancelByPassenger(ctx, booking.ID, passenger.ID, "racing cancel")
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
		} else if !errors.Is(err, ErrBookingCancelled) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful cancel, got %d", success)
	}

	// Capacity is restored exactly once
	var reloaded models.Ride
	db.First(&reloaded, ride.ID)
	if reloaded.AvailableSeats != 3 || reloaded.AvailableLuggage != 2 {
		t.Errorf("counters restored more than once: %d seats, %d luggage",
			reloaded.AvailableSeats, reloaded.AvailableLuggage)
	}
	assertCapacityConserved(t, db, ride.ID)
}

func TestCancelByPassengerAfterVerification(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	booking, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}
	if _, err := svc.VerifyPickup(ctx, booking.ID, driver.ID, booking.PassengerPIN); err != nil {
		t.Fatalf("VerifyPickup failed: %v", err)
	}

	err = svc.CancelByPassenger(ctx, booking.ID, passenger.ID, "too late")
	if !errors.Is(err, ErrBookingVerified) {
		t.Errorf("verified booking cancel should fail with ErrBookingVerified, got %v", err)
	}
}

func TestVerifyPickup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	booking, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 1})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if _, err := svc.VerifyPickup(ctx, booking.ID, driver.ID, "0000"); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("wrong PIN should fail with ErrInvalidPin, got %v", err)
	}
	var unchanged models.Booking
	db.First(&unchanged, booking.ID)
	if unchanged.PickupVerified {
		t.Error("wrong PIN must not verify the booking")
	}

	if _, err := svc.VerifyPickup(ctx, booking.ID, passenger.ID, booking.PassengerPIN); !errors.Is(err, ErrNotRideDriver) {
		t.Errorf("non-driver should fail with ErrNotRideDriver, got %v", err)
	}

	verified, err := svc.VerifyPickup(ctx, booking.ID, driver.ID, booking.PassengerPIN)
	if err != nil {
		t.Fatalf("VerifyPickup failed: %v", err)
	}
	if !verified.PickupVerified {
		t.Error("booking should be verified")
	}

	// Re-verifying is a harmless short-circuit, even with a wrong PIN
	again, err := svc.VerifyPickup(ctx, booking.ID, driver.ID, "0000")
	if err != nil || !again.PickupVerified {
		t.Errorf("re-verify should short-circuit to success, got %v", err)
	}
}

func TestCancelRideCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := NewBookingService(db)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 3, 1)

	booking, err := svc.Reserve(ctx, ReserveInput{RideID: ride.ID, PassengerID: passenger.ID, Seats: 2, Luggage: 1})
	if err != nil {
		t.Fatalf("Reserve failed: %v", err)
	}

	if err := svc.CancelRide(ctx, ride.ID, passenger.ID, "not mine"); !errors.Is(err, ErrNotRideDriver) {
		t.Errorf("non-driver cancel should fail with ErrNotRideDriver, got %v", err)
	}

	if err := svc.CancelRide(ctx, ride.ID, driver.ID, "car trouble"); err != nil {
		t.Fatalf("CancelRide failed: %v", err)
	}

	var reloadedRide models.Ride
	db.First(&reloadedRide, ride.ID)
	if reloadedRide.IsActive || reloadedRide.CancelledAt == nil || reloadedRide.AvailableSeats != 0 {
		t.Errorf("ride not deactivated: active=%v cancelledAt=%v seats=%d",
			reloadedRide.IsActive, reloadedRide.CancelledAt, reloadedRide.AvailableSeats)
	}

	var reloadedBooking models.Booking
	db.First(&reloadedBooking, booking.ID)
	if !reloadedBooking.IsCancelled {
		t.Error("booking should be cancelled by the ride cancellation")
	}
	if reloadedBooking.CancellationReason == "" {
		t.Error("cascaded cancellation should record a reason")
	}

	if err := svc.CancelRide(ctx, ride.ID, driver.ID, "again"); !errors.Is(err, ErrRideCancelled) {
		t.Errorf("double ride cancel should fail with ErrRideCancelled, got %v", err)
	}
}
