package models

import (
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	// BookingStatusCancelled means the passenger cancelled their own booking
	BookingStatusCancelled BookingStatus = "cancelled"
	// BookingStatusRideCancelled means the driver cancelled the whole ride
	BookingStatusRideCancelled BookingStatus = "ride_cancelled"
	BookingStatusCompleted     BookingStatus = "completed"
	BookingStatusUpcoming      BookingStatus = "upcoming"
)

type Booking struct {
	gorm.Model
	RideID      uint `json:"rideId" gorm:"column:ride_id;not null;index"`
	Ride        Ride `json:"ride"`
	PassengerID uint `json:"passengerId" gorm:"column:passenger_id;not null;index"`
	Passenger   User `json:"passenger"`

	SeatsBooked   int `json:"seatsBooked" gorm:"column:seats_booked;not null"`
	LuggageBooked int `json:"luggageBooked" gorm:"column:luggage_booked;not null;default:0"`

	// TotalPrice is the authoritative passenger charge, computed from the
	// tier model at booking time. Per-seat figures are display only.
	TotalPrice float64 `json:"totalPrice" gorm:"column:total_price;not null"`

	// PassengerPIN is shown to the passenger and entered by the driver at
	// pickup. Generated once, never rotated.
	PassengerPIN   string `json:"-" gorm:"column:passenger_pin;not null"`
	PickupVerified bool   `json:"pickupVerified" gorm:"column:pickup_verified;default:false"`

	PaymentIntentID string `json:"-" gorm:"column:payment_intent_id"`

	IsCancelled        bool       `json:"isCancelled" gorm:"column:is_cancelled;default:false"`
	CancelledAt        *time.Time `json:"cancelledAt" gorm:"column:cancelled_at"`
	CancellationReason string     `json:"cancellationReason" gorm:"column:cancellation_reason"`

	HiddenByPassenger bool `json:"-" gorm:"column:hidden_by_passenger;default:false"`
	Reviewed          bool `json:"reviewed" gorm:"column:reviewed;default:false"`
}

func (Booking) TableName() string {
	return "bookings"
}

// DisplayStatus derives the status shown in a passenger's bookings list.
// Precedence: own cancellation, then ride cancellation, then completion,
// then upcoming.
func (b *Booking) DisplayStatus() BookingStatus {
	if b.IsCancelled {
		return BookingStatusCancelled
	}
	if b.Ride.CancelledAt != nil {
		return BookingStatusRideCancelled
	}
	if !b.Ride.IsActive {
		return BookingStatusCompleted
	}
	return BookingStatusUpcoming
}
