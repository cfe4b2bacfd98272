package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/internal/services"
	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

func reserveErrorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrRideNotFound):
		return 404
	case errors.Is(err, services.ErrRideUnavailable),
		errors.Is(err, services.ErrRideCancelled),
		errors.Is(err, services.ErrRideInactive),
		errors.Is(err, services.ErrInsufficientSeats),
		errors.Is(err, services.ErrInsufficientLuggage),
		errors.Is(err, services.ErrOwnRide):
		return 409
	default:
		return 500
	}
}

// CreatePaymentIntent opens a payment intent for a prospective booking so
// the client can collect payment before reserving.
func CreatePaymentIntent(db *gorm.DB, payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			RideID uint `json:"rideId" binding:"required"`
			Seats  int  `json:"seats" binding:"required,gt=0"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		if err := db.First(&ride, input.RideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		totalCost := utils.PassengerCost(ride.Price, input.Seats)
		intentID, clientSecret, err := payments.CreateIntent(utils.Cents(totalCost), ride.ID, userId)
		if err != nil {
			c.JSON(502, gin.H{"error": "Failed to create payment intent"})
			return
		}

		c.JSON(200, gin.H{
			"paymentIntentId": intentID,
			"clientSecret":    clientSecret,
			"amount":          totalCost,
		})
	}
}

// CreateBooking reserves a ride for the passenger once payment has
// succeeded for the full party cost. The reservation itself is a single
// atomic update, so losing a race reports the ride as unavailable rather
// than overselling it.
func CreateBooking(db *gorm.DB, bookings *services.BookingService, payments *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypePassenger) {
			c.JSON(403, gin.H{"error": "Only passengers can book rides"})
			return
		}

		var input struct {
			RideID          uint   `json:"rideId" binding:"required"`
			Seats           int    `json:"seats" binding:"required,gt=0"`
			Luggage         int    `json:"luggage" binding:"gte=0"`
			PaymentIntentID string `json:"paymentIntentId"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		var ride models.Ride
		if err := db.First(&ride, input.RideID).Error; err != nil {
			c.JSON(404, gin.H{"error": "Ride not found"})
			return
		}

		expected := utils.Cents(utils.PassengerCost(ride.Price, input.Seats))
		if err := payments.VerifyIntent(input.PaymentIntentID, expected); err != nil {
			if errors.Is(err, services.ErrPaymentNotSucceeded) ||
				errors.Is(err, services.ErrPaymentAmountMismatch) {
				c.JSON(402, gin.H{"error": err.Error()})
				return
			}
			c.JSON(502, gin.H{"error": "Failed to verify payment"})
			return
		}

		booking, err := bookings.Reserve(c.Request.Context(), services.ReserveInput{
			RideID:          input.RideID,
			PassengerID:     userId,
			Seats:           input.Seats,
			Luggage:         input.Luggage,
			PaymentIntentID: input.PaymentIntentID,
		})
		if err != nil {
			c.JSON(reserveErrorStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(201, gin.H{
			"booking": booking,
			// The PIN is returned once at creation; the passenger shows it
			// to the driver at pickup.
			"passengerPin": booking.PassengerPIN,
		})
	}
}

// GetBookingDetail returns one of the passenger's bookings
func GetBookingDetail(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		booking, err := bookings.GetBooking(c.Request.Context(), uint(bookingID), userId)
		if err != nil {
			if errors.Is(err, services.ErrBookingNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch booking"})
			return
		}

		c.JSON(200, gin.H{"booking": booking, "status": booking.DisplayStatus()})
	}
}

// GetBookings lists the passenger's bookings with display status
func GetBookings(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		items, err := catalog.ListBookedRides(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch bookings"})
			return
		}

		c.JSON(200, items)
	}
}

// VerifyPickup lets the driver confirm the passenger's PIN at pickup
func VerifyPickup(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		var input struct {
			Pin string `json:"pin" binding:"required,len=4"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		booking, err := bookings.VerifyPickup(c.Request.Context(), uint(bookingID), userId, input.Pin)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBookingNotFound):
				c.JSON(404, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrNotRideDriver):
				c.JSON(403, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrBookingCancelled):
				c.JSON(409, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrInvalidPin):
				c.JSON(400, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": "Failed to verify pickup"})
			}
			return
		}

		c.JSON(200, gin.H{"message": "Pickup verified", "booking": booking})
	}
}

// CancelBooking cancels the passenger's own booking
func CancelBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&input)

		err = bookings.CancelByPassenger(c.Request.Context(), uint(bookingID), userId, input.Reason)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBookingNotFound):
				c.JSON(404, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrBookingCancelled),
				errors.Is(err, services.ErrBookingVerified):
				c.JSON(409, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": "Failed to cancel booking"})
			}
			return
		}

		c.JSON(200, gin.H{"message": "Booking cancelled"})
	}
}

// HideBooking removes a booking from the passenger's own listing
func HideBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		if err := bookings.HideForPassenger(c.Request.Context(), uint(bookingID), userId); err != nil {
			if errors.Is(err, services.ErrBookingNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to hide booking"})
			return
		}

		c.JSON(200, gin.H{"message": "Booking hidden"})
	}
}

// GetReviewEligibility reports whether the booking can be reviewed yet
func GetReviewEligibility(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		eligible, err := reviews.Eligible(c.Request.Context(), uint(bookingID), userId)
		if err != nil {
			if errors.Is(err, services.ErrBookingNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to check eligibility"})
			return
		}

		c.JSON(200, gin.H{"eligible": eligible})
	}
}

// SubmitReview records the passenger's one post-ride review
func SubmitReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		bookingID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid booking id"})
			return
		}

		var input struct {
			Rating  int    `json:"rating" binding:"required,min=1,max=5"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		review, err := reviews.Submit(c.Request.Context(), uint(bookingID), userId, input.Rating, input.Comment)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBookingNotFound):
				c.JSON(404, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrAlreadyReviewed),
				errors.Is(err, services.ErrReviewNotAllowed):
				c.JSON(409, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrReviewTooEarly):
				c.JSON(400, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": "Failed to submit review"})
			}
			return
		}

		c.JSON(201, review)
	}
}
