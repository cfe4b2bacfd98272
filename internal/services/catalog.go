package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

// CatalogService reads ride state written by the booking service. It never
// mutates counters.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// CatalogFilters narrows the active listing
type CatalogFilters struct {
	FromCityID uint
	ToCityID   uint
	Date       string // YYYY-MM-DD, exact match when set
}

// ListActiveRides returns bookable rides: active, not cancelled, never
// booked, with seats left, ordered by departure. The departure time window
// is applied in-process after the fetch because the stored date/time are
// local strings the database cannot compare against "now".
func (s *CatalogService) ListActiveRides(ctx context.Context, filters CatalogFilters) ([]models.Ride, error) {
	query := s.db.WithContext(ctx).
		Preload("Driver").Preload("FromCity").Preload("ToCity").
		Preload("PickupPoint").Preload("DropoffPoint").
		Where("is_active = ? AND cancelled_at IS NULL AND is_booked = ? AND available_seats > 0", true, false)

	if filters.FromCityID != 0 {
		query = query.Where("from_city_id = ?", filters.FromCityID)
	}
	if filters.ToCityID != 0 {
		query = query.Where("to_city_id = ?", filters.ToCityID)
	}
	if filters.Date != "" {
		query = query.Where("departure_date = ?", filters.Date)
	}

	var rides []models.Ride
	if err := query.Order("departure_date ASC, departure_time ASC").Find(&rides).Error; err != nil {
		return nil, err
	}

	return FilterDepartingAfterLead(rides, time.Now()), nil
}

// FilterDepartingAfterLead drops past departures and same-day departures
// with under 15 minutes of lead. Split out so the window logic is testable
// without a database.
func FilterDepartingAfterLead(rides []models.Ride, now time.Time) []models.Ride {
	listable := make([]models.Ride, 0, len(rides))
	for _, ride := range rides {
		if ride.DepartsAfterLead(now) {
			listable = append(listable, ride)
		}
	}
	return listable
}

// BookedRideItem is one row in a passenger's bookings list
type BookedRideItem struct {
	Booking models.Booking       `json:"booking"`
	Status  models.BookingStatus `json:"status"`
}

// ListBookedRides returns the passenger's bookings with driver and ride
// details and the derived display status. Hidden bookings are excluded from
// the listing but remain visible to the review-eligibility check.
func (s *CatalogService) ListBookedRides(ctx context.Context, passengerID uint) ([]BookedRideItem, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Preload("Ride").Preload("Ride.Driver").
		Preload("Ride.FromCity").Preload("Ride.ToCity").
		Where("passenger_id = ? AND hidden_by_passenger = ?", passengerID, false).
		Order("created_at DESC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}

	items := make([]BookedRideItem, 0, len(bookings))
	for _, booking := range bookings {
		items = append(items, BookedRideItem{
			Booking: booking,
			Status:  booking.DisplayStatus(),
		})
	}
	return items, nil
}

// PostedRideItem is one row in a driver's posted rides list
type PostedRideItem struct {
	Ride    models.Ride       `json:"ride"`
	Status  models.RideStatus `json:"status"`
	Booking *models.Booking   `json:"booking,omitempty"`
}

// ListPostedRides returns the driver's rides with their derived status and
// the active booking's passenger details when one exists.
func (s *CatalogService) ListPostedRides(ctx context.Context, driverID uint) ([]PostedRideItem, error) {
	var rides []models.Ride
	err := s.db.WithContext(ctx).
		Preload("FromCity").Preload("ToCity").
		Where("driver_id = ? AND hidden_by_driver = ?", driverID, false).
		Order("departure_date DESC, departure_time DESC").
		Find(&rides).Error
	if err != nil {
		return nil, err
	}

	items := make([]PostedRideItem, 0, len(rides))
	for _, ride := range rides {
		item := PostedRideItem{Ride: ride, Status: ride.Status()}

		if ride.IsBooked {
			var booking models.Booking
			err := s.db.WithContext(ctx).Preload("Passenger").
				Where("ride_id = ? AND is_cancelled = ?", ride.ID, false).
				First(&booking).Error
			if err == nil {
				item.Booking = &booking
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// HideForDriver soft-deletes a ride from the driver's own listing. It does
// not affect passengers' historical bookings.
func (s *CatalogService) HideForDriver(ctx context.Context, rideID, driverID uint) error {
	result := s.db.WithContext(ctx).Model(&models.Ride{}).
		Where("id = ? AND driver_id = ?", rideID, driverID).
		Update("hidden_by_driver", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRideNotFound
	}
	return nil
}
