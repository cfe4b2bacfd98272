package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
	"github.com/ribit-tech/ribit-backend/internal/services"
)

// requireVerifiedParticipant checks that the user is the ride's driver or
// the passenger of its pickup-verified booking. Tracking is only offered
// once pickup has been verified.
func requireVerifiedParticipant(db *gorm.DB, rideID, userID uint) error {
	var ride models.Ride
	if err := db.First(&ride, rideID).Error; err != nil {
		return services.ErrRideNotFound
	}

	var booking models.Booking
	err := db.Where("ride_id = ? AND is_cancelled = ? AND pickup_verified = ?", rideID, false, true).
		First(&booking).Error
	if err != nil {
		return errors.New("ride has no verified pickup")
	}

	if userID != ride.DriverID && userID != booking.PassengerID {
		return errors.New("not a participant of this ride")
	}
	return nil
}

// StartTracking opens (or resumes) a live tracking session for the ride
func StartTracking(db *gorm.DB, tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")

		var input struct {
			RideID uint `json:"rideId" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		if err := requireVerifiedParticipant(db, input.RideID, userId); err != nil {
			if errors.Is(err, services.ErrRideNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(403, gin.H{"error": err.Error()})
			return
		}

		session, err := tracking.Start(c.Request.Context(), input.RideID, userId)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to start tracking"})
			return
		}

		c.JSON(201, gin.H{
			"session":  session,
			"shareUrl": services.ShareURL(session.SessionToken),
		})
	}
}

// StopTracking ends the user's session
func StopTracking(tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		sessionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid session id"})
			return
		}

		if err := tracking.Stop(c.Request.Context(), uint(sessionID), userId); err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to stop tracking"})
			return
		}

		c.JSON(200, gin.H{"message": "Tracking stopped"})
	}
}

// GetActiveTracking returns the user's live session for a ride, if any
func GetActiveTracking(tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		rideID, err := strconv.ParseUint(c.Query("rideId"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid rideId"})
			return
		}

		session, err := tracking.GetActiveSession(c.Request.Context(), uint(rideID), userId)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to fetch session"})
			return
		}

		c.JSON(200, gin.H{
			"session":  session,
			"shareUrl": services.ShareURL(session.SessionToken),
		})
	}
}

// coordinateInput uses pointer fields so a legitimate 0 coordinate (the
// equator or prime meridian) passes "required"; only a missing field fails.
type coordinateInput struct {
	Lat *float64 `json:"lat" binding:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" binding:"required,min=-180,max=180"`
}

// AddTrackingCoordinate appends a position sample to the user's session
func AddTrackingCoordinate(tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		sessionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid session id"})
			return
		}

		var input coordinateInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		err = tracking.AddCoordinate(c.Request.Context(), uint(sessionID), userId, *input.Lat, *input.Lng)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrSessionNotFound):
				c.JSON(404, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrSessionNotActive):
				c.JSON(409, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": "Failed to record coordinate"})
			}
			return
		}

		c.JSON(201, gin.H{"message": "Coordinate recorded"})
	}
}

// GetShareURL returns the public link for the user's session
func GetShareURL(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userId := c.GetUint("userId")
		sessionID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid session id"})
			return
		}

		var session models.LiveTrackingSession
		if err := db.Where("id = ? AND user_id = ?", uint(sessionID), userId).First(&session).Error; err != nil {
			c.JSON(404, gin.H{"error": "Tracking session not found"})
			return
		}

		c.JSON(200, gin.H{"shareUrl": services.ShareURL(session.SessionToken)})
	}
}

// ResolveTracking is the public endpoint behind shared tracking links
func ResolveTracking(tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		public, err := tracking.ResolveToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(404, gin.H{"error": "Tracking link not found or expired"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to resolve tracking link"})
			return
		}

		c.JSON(200, public)
	}
}
