package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/internal/services"
	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

// cityAreaRadiusMiles bounds how far a custom pickup or dropoff spot may
// sit from its city center before extra-miles flexibility is added.
const cityAreaRadiusMiles = 15.0

// CreateRide handles the creation of a new ride by a driver
func CreateRide(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		userType := c.GetString("userType")

		if userType != string(models.UserTypeDriver) {
			c.JSON(403, gin.H{"error": "Only drivers can create rides"})
			return
		}

		var input struct {
			FromCityID     uint     `json:"fromCityId" binding:"required"`
			ToCityID       uint     `json:"toCityId" binding:"required"`
			PickupPointID  *uint    `json:"pickupPointId"`
			DropoffPointID *uint    `json:"dropoffPointId"`
			PickupLabel    string   `json:"pickupLabel"`
			PickupLat      *float64 `json:"pickupLat"`
			PickupLng      *float64 `json:"pickupLng"`
			DropoffLabel   string   `json:"dropoffLabel"`
			DropoffLat     *float64 `json:"dropoffLat"`
			DropoffLng     *float64 `json:"dropoffLng"`
			DepartureDate  string   `json:"departureDate" binding:"required"`
			DepartureTime  string   `json:"departureTime" binding:"required"`
			Price          float64  `json:"price" binding:"required,gt=0"`
			TotalSeats     int      `json:"totalSeats" binding:"required,gt=0"`
			TotalLuggage   int      `json:"totalLuggage" binding:"gte=0"`
			ExtraMiles     int      `json:"extraMiles" binding:"oneof=0 5 10 15"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if input.FromCityID == input.ToCityID {
			c.JSON(400, gin.H{"error": "Origin and destination must differ"})
			return
		}

		var fromCity, toCity models.City
		if err := db.First(&fromCity, input.FromCityID).Error; err != nil {
			c.JSON(400, gin.H{"error": "Unknown origin city"})
			return
		}
		if err := db.First(&toCity, input.ToCityID).Error; err != nil {
			c.JSON(400, gin.H{"error": "Unknown destination city"})
			return
		}

		validation, err := utils.ValidateDriverPrice(input.Price, fromCity.Name, toCity.Name)
		if err != nil {
			c.JSON(400, gin.H{"error": validation.Error, "maxPrice": validation.MaxPrice})
			return
		}

		// Custom coordinates must stay within the city area plus the ride's
		// extra-miles flexibility.
		flexRadius := cityAreaRadiusMiles + float64(input.ExtraMiles)
		if input.PickupLat != nil && input.PickupLng != nil {
			if !utils.IsWithinRadiusMiles(fromCity.Lat, fromCity.Lng, *input.PickupLat, *input.PickupLng, flexRadius) {
				c.JSON(400, gin.H{"error": "Pickup location is too far from the origin city"})
				return
			}
		}
		if input.DropoffLat != nil && input.DropoffLng != nil {
			if !utils.IsWithinRadiusMiles(toCity.Lat, toCity.Lng, *input.DropoffLat, *input.DropoffLng, flexRadius) {
				c.JSON(400, gin.H{"error": "Dropoff location is too far from the destination city"})
				return
			}
		}

		ride := models.Ride{
			DriverID:         userId,
			FromCityID:       input.FromCityID,
			ToCityID:         input.ToCityID,
			PickupPointID:    input.PickupPointID,
			DropoffPointID:   input.DropoffPointID,
			PickupLabel:      input.PickupLabel,
			PickupLat:        input.PickupLat,
			PickupLng:        input.PickupLng,
			DropoffLabel:     input.DropoffLabel,
			DropoffLat:       input.DropoffLat,
			DropoffLng:       input.DropoffLng,
			DepartureDate:    input.DepartureDate,
			DepartureTime:    input.DepartureTime,
			Price:            input.Price,
			TotalSeats:       input.TotalSeats,
			AvailableSeats:   input.TotalSeats,
			TotalLuggage:     input.TotalLuggage,
			AvailableLuggage: input.TotalLuggage,
			ExtraMiles:       input.ExtraMiles,
			IsActive:         true,
		}

		if !ride.DepartsAfterLead(time.Now()) {
			c.JSON(400, gin.H{"error": "Departure must be at least 15 minutes in the future"})
			return
		}

		if err := db.Create(&ride).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to create ride"})
			return
		}

		c.JSON(201, ride)
	}
}

// GetActiveRides retrieves bookable rides with optional city and date filters
func GetActiveRides(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filters services.CatalogFilters
		if from := c.Query("fromCityId"); from != "" {
			id, err := strconv.ParseUint(from, 10, 32)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid fromCityId"})
				return
			}
			filters.FromCityID = uint(id)
		}
		if to := c.Query("toCityId"); to != "" {
			id, err := strconv.ParseUint(to, 10, 32)
			if err != nil {
				c.JSON(400, gin.H{"error": "Invalid toCityId"})
				return
			}
			filters.ToCityID = uint(id)
		}
		filters.Date = c.Query("date")

		rides, err := catalog.ListActiveRides(c.Request.Context(), filters)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch rides"})
			return
		}

		c.JSON(200, rides)
	}
}

// GetPostedRides retrieves the driver's rides with derived status
func GetPostedRides(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		items, err := catalog.ListPostedRides(c.Request.Context(), userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch posted rides"})
			return
		}

		c.JSON(200, items)
	}
}

// CancelRide cancels a ride and every booking on it
func CancelRide(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		rideID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride id"})
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		c.ShouldBindJSON(&input)

		err = bookings.CancelRide(c.Request.Context(), uint(rideID), userId, input.Reason)
		if err != nil {
			var partial *services.PartialCancellationError
			switch {
			case errors.Is(err, services.ErrRideNotFound):
				c.JSON(404, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrNotRideDriver):
				c.JSON(403, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrRideCancelled):
				c.JSON(409, gin.H{"error": err.Error()})
			case errors.As(err, &partial):
				c.JSON(409, gin.H{"error": err.Error(), "failedCount": partial.Failed})
			default:
				c.JSON(500, gin.H{"error": "Failed to cancel ride"})
			}
			return
		}

		c.JSON(200, gin.H{"message": "Ride cancelled"})
	}
}

// HideRide removes a ride from the driver's own listing
func HideRide(catalog *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		rideID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid ride id"})
			return
		}

		if err := catalog.HideForDriver(c.Request.Context(), uint(rideID), userId); err != nil {
			if errors.Is(err, services.ErrRideNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to hide ride"})
			return
		}

		c.JSON(200, gin.H{"message": "Ride hidden"})
	}
}
