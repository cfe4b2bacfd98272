package models

import (
	"testing"
	"time"
)

func TestBookingDisplayStatusPrecedence(t *testing.T) {
	cancelled := time.Now()

	tests := []struct {
		name    string
		booking Booking
		want    BookingStatus
	}{
		{
			"upcoming",
			Booking{Ride: Ride{IsActive: true}},
			BookingStatusUpcoming,
		},
		{
			"completed",
			Booking{Ride: Ride{IsActive: false}},
			BookingStatusCompleted,
		},
		{
			"ride cancelled beats completed",
			Booking{Ride: Ride{IsActive: false, CancelledAt: &cancelled}},
			BookingStatusRideCancelled,
		},
		{
			"own cancellation beats ride cancellation",
			Booking{IsCancelled: true, Ride: Ride{IsActive: false, CancelledAt: &cancelled}},
			BookingStatusCancelled,
		},
	}
	for _, tt := range tests {
		if got := tt.booking.DisplayStatus(); got != tt.want {
			t.Errorf("%s: DisplayStatus() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
