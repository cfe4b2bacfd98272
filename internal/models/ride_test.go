package models

import (
	"testing"
	"time"
)

func rideAt(t time.Time) Ride {
	return Ride{
		DepartureDate: t.Format("2006-01-02"),
		DepartureTime: t.Format("15:04"),
	}
}

func TestDepartsAfterLead(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		departure time.Time
		want      bool
	}{
		{"yesterday", now.Add(-24 * time.Hour), false},
		{"earlier today", now.Add(-2 * time.Hour), false},
		{"today in 10 minutes", now.Add(10 * time.Minute), false},
		{"today in 14 minutes", now.Add(14 * time.Minute), false},
		{"today in 16 minutes", now.Add(16 * time.Minute), true},
		{"today in 5 hours", now.Add(5 * time.Hour), true},
		{"tomorrow morning", now.Add(20 * time.Hour), true},
		{"next week", now.Add(7 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ride := rideAt(tt.departure)
			if got := ride.DepartsAfterLead(now); got != tt.want {
				t.Errorf("DepartsAfterLead(%s %s) = %v, want %v",
					ride.DepartureDate, ride.DepartureTime, got, tt.want)
			}
		})
	}
}

func TestDepartsAfterLeadBadInput(t *testing.T) {
	ride := Ride{DepartureDate: "soon", DepartureTime: "whenever"}
	if ride.DepartsAfterLead(time.Now()) {
		t.Error("unparseable departure should not be listable")
	}
}

func TestRideStatusPrecedence(t *testing.T) {
	cancelled := time.Now()

	tests := []struct {
		name string
		ride Ride
		want RideStatus
	}{
		{"active", Ride{IsActive: true}, RideStatusActive},
		{"completed", Ride{IsActive: false}, RideStatusCompleted},
		{"cancelled beats completed", Ride{IsActive: false, CancelledAt: &cancelled}, RideStatusCancelled},
		{"cancelled beats active", Ride{IsActive: true, CancelledAt: &cancelled}, RideStatusCancelled},
	}
	for _, tt := range tests {
		if got := tt.ride.Status(); got != tt.want {
			t.Errorf("%s: Status() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
