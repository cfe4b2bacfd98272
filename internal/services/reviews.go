package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

var (
	ErrAlreadyReviewed  = errors.New("booking already reviewed")
	ErrReviewTooEarly   = errors.New("ride has not finished yet")
	ErrReviewNotAllowed = errors.New("booking is not reviewable")
)

// ReviewDelay is how long after a ride's estimated arrival the review
// window opens.
const ReviewDelay = 4 * time.Hour

// ReviewService handles the one post-ride review per booking. Eligibility
// is anchored to the ride's departure plus its estimated duration, so the
// window opens at the same instant no matter when it is checked.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

// reviewableAt computes the instant the review window opens for a ride
func reviewableAt(ride *models.Ride) (time.Time, error) {
	departure, err := ride.DepartureAt()
	if err != nil {
		return time.Time{}, err
	}

	// Highway estimate from the static distance table; an unknown pair
	// contributes no travel time, leaving departure + delay.
	var tripMinutes int
	if miles, ok := utils.DistanceBetweenCities(ride.FromCity.Name, ride.ToCity.Name); ok {
		tripMinutes = utils.EstimateTripMinutes(miles, 60)
	}

	return departure.Add(time.Duration(tripMinutes) * time.Minute).Add(ReviewDelay), nil
}

// Eligible reports whether the booking can be reviewed now. Hidden
// bookings still qualify; hiding only removes them from listings.
func (s *ReviewService) Eligible(ctx context.Context, bookingID, passengerID uint) (bool, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).
		Preload("Ride").Preload("Ride.FromCity").Preload("Ride.ToCity").
		Where("id = ? AND passenger_id = ?", bookingID, passengerID).
		First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrBookingNotFound
		}
		return false, err
	}

	if booking.IsCancelled || booking.Reviewed || booking.Ride.CancelledAt != nil {
		return false, nil
	}

	openAt, err := reviewableAt(&booking.Ride)
	if err != nil {
		return false, nil
	}
	return !time.Now().Before(openAt), nil
}

// Submit records the review and marks the booking reviewed, atomically
func (s *ReviewService) Submit(ctx context.Context, bookingID, passengerID uint, rating int, comment string) (*models.RideReview, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	var review *models.RideReview
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		err := tx.Preload("Ride").Preload("Ride.FromCity").Preload("Ride.ToCity").
			Where("id = ? AND passenger_id = ?", bookingID, passengerID).
			First(&booking).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Reviewed {
			return ErrAlreadyReviewed
		}
		if booking.IsCancelled || booking.Ride.CancelledAt != nil {
			return ErrReviewNotAllowed
		}

		openAt, err := reviewableAt(&booking.Ride)
		if err != nil {
			return ErrReviewNotAllowed
		}
		if time.Now().Before(openAt) {
			return ErrReviewTooEarly
		}

		review = &models.RideReview{
			BookingID:  bookingID,
			RideID:     booking.RideID,
			ReviewerID: passengerID,
			Rating:     rating,
			Comment:    comment,
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return tx.Model(&booking).Update("reviewed", true).Error
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// DriverRating aggregates a driver's review scores across their rides
func (s *ReviewService) DriverRating(ctx context.Context, driverID uint) (avg float64, count int64, err error) {
	row := s.db.WithContext(ctx).
		Model(&models.RideReview{}).
		Select("COALESCE(AVG(ride_reviews.rating), 0), COUNT(*)").
		Joins("JOIN rides ON rides.id = ride_reviews.ride_id").
		Where("rides.driver_id = ?", driverID).
		Row()
	if err := row.Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
