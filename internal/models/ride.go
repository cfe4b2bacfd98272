package models

import (
	"time"

	"gorm.io/gorm"
)

// OneTimeBookingPerRide is the marketplace's booking policy: once any
// passenger party has booked a ride it never returns to the catalog, even
// if that booking is later cancelled. IsBooked is never reset.
const OneTimeBookingPerRide = true

// MinBookingLeadTime is how far in the future a ride departing today must
// be to remain listable.
const MinBookingLeadTime = 15 * time.Minute

type RideStatus string

const (
	RideStatusActive    RideStatus = "active"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

type Ride struct {
	gorm.Model
	DriverID uint `json:"driverId" gorm:"column:driver_id;not null;index"`
	Driver   User `json:"driver"`

	FromCityID uint `json:"fromCityId" gorm:"column:from_city_id;not null"`
	FromCity   City `json:"fromCity"`
	ToCityID   uint `json:"toCityId" gorm:"column:to_city_id;not null"`
	ToCity     City `json:"toCity"`

	PickupPointID  *uint      `json:"pickupPointId" gorm:"column:pickup_point_id"`
	PickupPoint    *CityPoint `json:"pickupPoint,omitempty"`
	DropoffPointID *uint      `json:"dropoffPointId" gorm:"column:dropoff_point_id"`
	DropoffPoint   *CityPoint `json:"dropoffPoint,omitempty"`

	PickupLabel  string   `json:"pickupLabel" gorm:"column:pickup_label"`
	PickupLat    *float64 `json:"pickupLat" gorm:"column:pickup_lat"`
	PickupLng    *float64 `json:"pickupLng" gorm:"column:pickup_lng"`
	DropoffLabel string   `json:"dropoffLabel" gorm:"column:dropoff_label"`
	DropoffLat   *float64 `json:"dropoffLat" gorm:"column:dropoff_lat"`
	DropoffLng   *float64 `json:"dropoffLng" gorm:"column:dropoff_lng"`

	// Local date and time strings as entered by the driver, no timezone
	// conversion. DepartureDate is YYYY-MM-DD, DepartureTime is HH:MM.
	DepartureDate string `json:"departureDate" gorm:"column:departure_date;not null"`
	DepartureTime string `json:"departureTime" gorm:"column:departure_time;not null"`

	Price float64 `json:"price" gorm:"column:price;not null"`

	TotalSeats       int `json:"totalSeats" gorm:"column:total_seats;not null"`
	AvailableSeats   int `json:"availableSeats" gorm:"column:available_seats;not null"`
	TotalLuggage     int `json:"totalLuggage" gorm:"column:total_luggage;not null;default:0"`
	AvailableLuggage int `json:"availableLuggage" gorm:"column:available_luggage;not null;default:0"`

	// Pickup/dropoff flexibility in miles: 0, 5, 10 or 15
	ExtraMiles int `json:"extraMiles" gorm:"column:extra_miles;not null;default:0"`

	IsActive bool `json:"isActive" gorm:"column:is_active;default:true"`
	// IsBooked gates at-most-one-booking-per-ride. True once any passenger
	// has booked, regardless of remaining seats.
	IsBooked bool `json:"isBooked" gorm:"column:is_booked;default:false"`

	CancelledAt        *time.Time `json:"cancelledAt" gorm:"column:cancelled_at"`
	CancellationReason string     `json:"cancellationReason" gorm:"column:cancellation_reason"`

	HiddenByDriver bool `json:"-" gorm:"column:hidden_by_driver;default:false"`
}

func (Ride) TableName() string {
	return "rides"
}

// Status derives the display status at read time. There is no explicit
// "completed" write; a ride becomes historical once deactivated without a
// cancellation.
func (r *Ride) Status() RideStatus {
	if r.CancelledAt != nil {
		return RideStatusCancelled
	}
	if !r.IsActive {
		return RideStatusCompleted
	}
	return RideStatusActive
}

// DepartureAt parses the stored local date/time strings. Seconds in the
// time component are tolerated.
func (r *Ride) DepartureAt() (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", r.DepartureDate+" "+r.DepartureTime, time.Local)
	if err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04", r.DepartureDate+" "+r.DepartureTime, time.Local)
}

// DepartsAfterLead reports whether the ride is still listable at the given
// instant: past departures are out, and same-day departures need at least
// MinBookingLeadTime of lead. Rides whose date/time strings fail to parse
// are treated as unlistable.
func (r *Ride) DepartsAfterLead(now time.Time) bool {
	departure, err := r.DepartureAt()
	if err != nil {
		return false
	}
	if departure.Before(now) {
		return false
	}
	sameDay := departure.Year() == now.Year() && departure.YearDay() == now.YearDay()
	if sameDay && departure.Sub(now) < MinBookingLeadTime {
		return false
	}
	return true
}
