package models

import (
	"time"

	"gorm.io/gorm"
)

// TrackingSessionTTL is how long a live tracking session stays valid after
// it starts.
const TrackingSessionTTL = 12 * time.Hour

type LiveTrackingSession struct {
	gorm.Model
	RideID uint `json:"rideId" gorm:"column:ride_id;not null;index"`
	Ride   Ride `json:"-"`
	UserID uint `json:"userId" gorm:"column:user_id;not null;index"`

	// SessionToken is the opaque shareable handle embedded in the public
	// tracking URL.
	SessionToken string    `json:"sessionToken" gorm:"column:session_token;unique;not null"`
	ExpiresAt    time.Time `json:"expiresAt" gorm:"column:expires_at;not null"`
	IsActive     bool      `json:"isActive" gorm:"column:is_active;default:true"`
}

func (LiveTrackingSession) TableName() string {
	return "live_tracking_sessions"
}

// Expired reports whether the session has passed its expiry, regardless of
// the IsActive flag.
func (s *LiveTrackingSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// TrackingCoordinate is an append-only position sample. Rows are never
// updated or deleted while their session lives.
type TrackingCoordinate struct {
	gorm.Model
	SessionID  uint      `json:"sessionId" gorm:"column:session_id;not null;index"`
	Lat        float64   `json:"lat" gorm:"column:lat;not null"`
	Lng        float64   `json:"lng" gorm:"column:lng;not null"`
	RecordedAt time.Time `json:"recordedAt" gorm:"column:recorded_at;not null;index"`
}

func (TrackingCoordinate) TableName() string {
	return "tracking_coordinates"
}
