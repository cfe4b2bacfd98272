package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

var (
	ErrRideNotFound        = errors.New("ride not found")
	ErrRideUnavailable     = errors.New("ride already booked")
	ErrRideCancelled       = errors.New("ride has been cancelled")
	ErrRideInactive        = errors.New("ride is no longer active")
	ErrInsufficientSeats   = errors.New("not enough seats available")
	ErrInsufficientLuggage = errors.New("not enough luggage space available")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingCancelled    = errors.New("booking already cancelled")
	ErrBookingVerified     = errors.New("booking already verified at pickup")
	ErrInvalidPin          = errors.New("invalid pickup PIN")
	ErrNotRideDriver       = errors.New("caller is not the ride's driver")
	ErrOwnRide             = errors.New("drivers cannot book their own ride")
)

// PartialCancellationError reports a ride cancellation where some bookings
// could not be cancelled. The ride is left untouched in that case.
type PartialCancellationError struct {
	Failed int
}

func (e *PartialCancellationError) Error() string {
	return fmt.Sprintf("failed to cancel %d booking(s); ride left active", e.Failed)
}

// BookingService owns every mutation of a ride's seat and luggage counters.
// Nothing else writes them.
type BookingService struct {
	db *gorm.DB
}

func NewBookingService(db *gorm.DB) *BookingService {
	return &BookingService{db: db}
}

// ReserveInput is one passenger party's booking request
type ReserveInput struct {
	RideID          uint
	PassengerID     uint
	Seats           int
	Luggage         int
	PaymentIntentID string
}

// Reserve books the whole ride for one passenger party. The capacity check
// and the counter decrement are a single conditional UPDATE so two
// concurrent calls can never both pass the precondition read; exactly one
// wins and the rest are classified by re-reading the row.
func (s *BookingService) Reserve(ctx context.Context, input ReserveInput) (*models.Booking, error) {
	if input.Seats < 1 {
		return nil, fmt.Errorf("seats must be at least 1")
	}
	if input.Luggage < 0 {
		return nil, fmt.Errorf("luggage must not be negative")
	}

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Ride{}).
			Where("id = ? AND is_active = ? AND cancelled_at IS NULL AND is_booked = ? AND available_seats >= ? AND available_luggage >= ?",
				input.RideID, true, false, input.Seats, input.Luggage).
			Updates(map[string]interface{}{
				"is_booked":         true,
				"available_seats":   gorm.Expr("available_seats - ?", input.Seats),
				"available_luggage": gorm.Expr("available_luggage - ?", input.Luggage),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return s.classifyReserveFailure(tx, input)
		}

		var ride models.Ride
		if err := tx.First(&ride, input.RideID).Error; err != nil {
			return err
		}
		if ride.DriverID == input.PassengerID {
			return ErrOwnRide
		}

		booking = &models.Booking{
			RideID:          input.RideID,
			PassengerID:     input.PassengerID,
			SeatsBooked:     input.Seats,
			LuggageBooked:   input.Luggage,
			TotalPrice:      utils.PassengerCost(ride.Price, input.Seats),
			PassengerPIN:    utils.GeneratePickupPIN(),
			PaymentIntentID: input.PaymentIntentID,
		}
		return tx.Create(booking).Error
	})
	if err != nil {
		return nil, err
	}

	BookingsCreated.Inc()
	log.Printf("Booking %d created for ride %d (%d seats, %d luggage)",
		booking.ID, input.RideID, input.Seats, input.Luggage)
	return booking, nil
}

// classifyReserveFailure re-reads the ride after the conditional UPDATE
// matched nothing, so the caller gets a precise reason instead of a generic
// failure. Checked in the order: missing, booked, cancelled, inactive,
// seats, luggage.
func (s *BookingService) classifyReserveFailure(tx *gorm.DB, input ReserveInput) error {
	var ride models.Ride
	if err := tx.First(&ride, input.RideID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRideNotFound
		}
		return err
	}
	switch {
	case ride.IsBooked:
		return ErrRideUnavailable
	case ride.CancelledAt != nil:
		return ErrRideCancelled
	case !ride.IsActive:
		return ErrRideInactive
	case ride.AvailableSeats < input.Seats:
		return ErrInsufficientSeats
	case ride.AvailableLuggage < input.Luggage:
		return ErrInsufficientLuggage
	default:
		// The row qualified on re-read; the UPDATE lost a race it should
		// have won. Treat as unavailable so the passenger retries.
		return ErrRideUnavailable
	}
}

// VerifyPickup checks the supplied PIN against the booking and marks it
// verified. Re-verifying an already-verified booking short-circuits to
// success. A mismatch never changes state and is retryable without limit.
func (s *BookingService) VerifyPickup(ctx context.Context, bookingID, driverID uint, suppliedPin string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.db.WithContext(ctx).Preload("Ride").First(&booking, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if booking.Ride.DriverID != driverID {
		return nil, ErrNotRideDriver
	}
	if booking.IsCancelled {
		return nil, ErrBookingCancelled
	}
	if booking.PickupVerified {
		return &booking, nil
	}
	if booking.PassengerPIN != suppliedPin {
		PinMismatches.Inc()
		log.Printf("PIN mismatch for booking %d", bookingID)
		return nil, ErrInvalidPin
	}

	if err := s.db.WithContext(ctx).Model(&booking).Update("pickup_verified", true).Error; err != nil {
		return nil, err
	}
	booking.PickupVerified = true
	PickupsVerified.Inc()
	return &booking, nil
}

// CancelByPassenger cancels the passenger's own booking and restores the
// seats and luggage onto the ride. The ride's is_booked flag is left set:
// a ride that has ever been booked never returns to the catalog
// (models.OneTimeBookingPerRide). Verified bookings can no longer be
// cancelled by the passenger.
func (s *BookingService) CancelByPassenger(ctx context.Context, bookingID, passengerID uint, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.First(&booking, bookingID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.PassengerID != passengerID {
			return ErrBookingNotFound
		}
		if booking.IsCancelled {
			return ErrBookingCancelled
		}
		if booking.PickupVerified {
			return ErrBookingVerified
		}

		if err := cancelBookingRow(tx, booking.ID, reason); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"available_seats":   gorm.Expr("available_seats + ?", booking.SeatsBooked),
			"available_luggage": gorm.Expr("available_luggage + ?", booking.LuggageBooked),
		}
		if err := tx.Model(&models.Ride{}).Where("id = ?", booking.RideID).Updates(updates).Error; err != nil {
			return err
		}

		BookingsCancelled.Inc()
		log.Printf("Booking %d cancelled by passenger %d", bookingID, passengerID)
		return nil
	})
}

// CancelRide cancels every non-cancelled booking on the ride, each row
// individually so per-row failure is observable, then deactivates the ride
// with its seats zeroed. All-or-nothing: if any booking fails to cancel the
// transaction rolls back and the ride stays active.
func (s *BookingService) CancelRide(ctx context.Context, rideID, driverID uint, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, rideID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRideNotFound
			}
			return err
		}
		if ride.DriverID != driverID {
			return ErrNotRideDriver
		}
		if ride.CancelledAt != nil {
			return ErrRideCancelled
		}

		var bookings []models.Booking
		if err := tx.Where("ride_id = ? AND is_cancelled = ?", rideID, false).Find(&bookings).Error; err != nil {
			return err
		}

		failed := 0
		for i := range bookings {
			err := cancelBookingRow(tx, bookings[i].ID, "Ride cancelled by driver: "+reason)
			if errors.Is(err, ErrBookingCancelled) {
				// The passenger cancelled it concurrently; nothing left to do
				continue
			}
			if err != nil {
				log.Printf("Failed to cancel booking %d during ride %d cancellation: %v",
					bookings[i].ID, rideID, err)
				failed++
			}
		}
		if failed > 0 {
			return &PartialCancellationError{Failed: failed}
		}

		now := time.Now()
		return tx.Model(&ride).Updates(map[string]interface{}{
			"is_active":           false,
			"available_seats":     0,
			"cancelled_at":        now,
			"cancellation_reason": reason,
		}).Error
	})
	if err != nil {
		return err
	}

	RidesCancelled.Inc()
	log.Printf("Ride %d cancelled by driver %d", rideID, driverID)
	return nil
}

// cancelBookingRow flips a booking to cancelled only if it still isn't,
// the same conditional UPDATE pattern as Reserve. Concurrent cancels of
// one booking resolve to exactly one winner; losers get
// ErrBookingCancelled, so the ride counters are restored at most once.
func cancelBookingRow(tx *gorm.DB, bookingID uint, reason string) error {
	result := tx.Model(&models.Booking{}).
		Where("id = ? AND is_cancelled = ?", bookingID, false).
		Updates(map[string]interface{}{
			"is_cancelled":        true,
			"cancelled_at":        time.Now(),
			"cancellation_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingCancelled
	}
	return nil
}

// GetBooking loads a booking with its ride for the given passenger
func (s *BookingService) GetBooking(ctx context.Context, bookingID, passengerID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).Preload("Ride").Preload("Ride.Driver").
		Where("id = ? AND passenger_id = ?", bookingID, passengerID).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// HideForPassenger soft-deletes a booking from the passenger's own list.
// Hidden bookings still count for review eligibility.
func (s *BookingService) HideForPassenger(ctx context.Context, bookingID, passengerID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND passenger_id = ?", bookingID, passengerID).
		Update("hidden_by_passenger", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}
	return nil
}
