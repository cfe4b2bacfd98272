package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

var (
	ErrSessionNotFound  = errors.New("tracking session not found or expired")
	ErrSessionNotActive = errors.New("tracking session is not active")
)

// TrackingService manages live tracking sessions and their coordinate
// streams. It does not know about booking state; callers gate tracking on
// pickup verification, and the service itself only checks session liveness.
type TrackingService struct {
	db  *gorm.DB
	hub *Hub
}

func NewTrackingService(db *gorm.DB, hub *Hub) *TrackingService {
	return &TrackingService{db: db, hub: hub}
}

// newSessionToken returns an opaque shareable handle
func newSessionToken() string {
	var buf [9]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("track_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf[:]))
}

// Start opens a 12-hour tracking session for the user on a ride. An
// existing active unexpired session for the same (user, ride) pair is
// returned instead of minting a duplicate.
func (s *TrackingService) Start(ctx context.Context, rideID, userID uint) (*models.LiveTrackingSession, error) {
	var existing models.LiveTrackingSession
	err := s.db.WithContext(ctx).
		Where("ride_id = ? AND user_id = ? AND is_active = ? AND expires_at > ?",
			rideID, userID, true, time.Now()).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	session := models.LiveTrackingSession{
		RideID:       rideID,
		UserID:       userID,
		SessionToken: newSessionToken(),
		ExpiresAt:    time.Now().Add(models.TrackingSessionTTL),
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, err
	}

	TrackingSessionsStarted.Inc()
	log.Printf("Tracking session %d started for ride %d", session.ID, rideID)
	return &session, nil
}

// Stop ends a session the user owns
func (s *TrackingService) Stop(ctx context.Context, sessionID, userID uint) error {
	var session models.LiveTrackingSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := s.db.WithContext(ctx).Model(&session).Update("is_active", false).Error; err != nil {
		return err
	}

	s.hub.SendSessionEnded(session.SessionToken, "stopped")
	return nil
}

// GetActiveSession returns the user's live session for a ride. A session
// past its expiry that is still flagged active is stopped as a side effect
// of the read, so expiry heals itself without a writer.
func (s *TrackingService) GetActiveSession(ctx context.Context, rideID, userID uint) (*models.LiveTrackingSession, error) {
	var session models.LiveTrackingSession
	err := s.db.WithContext(ctx).
		Where("ride_id = ? AND user_id = ? AND is_active = ?", rideID, userID, true).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.Expired(time.Now()) {
		if err := s.db.WithContext(ctx).Model(&session).Update("is_active", false).Error; err != nil {
			log.Printf("Failed to lazily expire session %d: %v", session.ID, err)
		}
		return nil, ErrSessionNotFound
	}

	return &session, nil
}

// AddCoordinate appends a position sample to an active session. Rows are
// append-only; samples for stopped or expired sessions are rejected rather
// than trusted to never arrive.
func (s *TrackingService) AddCoordinate(ctx context.Context, sessionID, userID uint, lat, lng float64) error {
	var session models.LiveTrackingSession
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if !session.IsActive || session.Expired(time.Now()) {
		return ErrSessionNotActive
	}

	coord := models.TrackingCoordinate{
		SessionID:  sessionID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&coord).Error; err != nil {
		return err
	}

	latest := LatestCoordinate{Lat: lat, Lng: lng, RecordedAt: coord.RecordedAt}
	if err := SetLatestCoordinate(ctx, session.SessionToken, latest); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		log.Printf("Failed to cache latest coordinate for session %d: %v", sessionID, err)
	}
	if err := PublishCoordinate(ctx, session.SessionToken, latest); err != nil && !errors.Is(err, ErrCacheUnavailable) {
		log.Printf("Failed to publish coordinate for session %d: %v", sessionID, err)
	}

	CoordinatesRecorded.Inc()
	return nil
}

// PublicSession is what a share-link recipient may see
type PublicSession struct {
	SessionToken     string            `json:"sessionToken"`
	ExpiresAt        time.Time         `json:"expiresAt"`
	FromCity         string            `json:"fromCity"`
	ToCity           string            `json:"toCity"`
	DepartureDate    string            `json:"departureDate"`
	DepartureTime    string            `json:"departureTime"`
	DriverName       string            `json:"driverName"`
	LatestCoordinate *LatestCoordinate `json:"latestCoordinate,omitempty"`
}

// ResolveToken resolves a shared token into the ride's public summary and
// the latest reported position. Expired-but-active sessions are stopped on
// the way through, the same self-healing read as GetActiveSession.
func (s *TrackingService) ResolveToken(ctx context.Context, token string) (*PublicSession, error) {
	var session models.LiveTrackingSession
	err := s.db.WithContext(ctx).
		Preload("Ride").Preload("Ride.Driver").
		Preload("Ride.FromCity").Preload("Ride.ToCity").
		Where("session_token = ? AND is_active = ?", token, true).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if session.Expired(time.Now()) {
		if err := s.db.WithContext(ctx).Model(&session).Update("is_active", false).Error; err != nil {
			log.Printf("Failed to lazily expire session %d: %v", session.ID, err)
		}
		return nil, ErrSessionNotFound
	}

	public := &PublicSession{
		SessionToken:  session.SessionToken,
		ExpiresAt:     session.ExpiresAt,
		FromCity:      session.Ride.FromCity.Name,
		ToCity:        session.Ride.ToCity.Name,
		DepartureDate: session.Ride.DepartureDate,
		DepartureTime: session.Ride.DepartureTime,
		DriverName:    session.Ride.Driver.Username,
	}

	latest, err := GetLatestCoordinate(ctx, token)
	if err == nil {
		public.LatestCoordinate = &latest
	} else {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, ErrCacheUnavailable) {
			log.Printf("Latest coordinate cache read failed for %s: %v", token, err)
		}
		var coord models.TrackingCoordinate
		dbErr := s.db.WithContext(ctx).
			Where("session_id = ?", session.ID).
			Order("recorded_at DESC").
			First(&coord).Error
		if dbErr == nil {
			public.LatestCoordinate = &LatestCoordinate{
				Lat: coord.Lat, Lng: coord.Lng, RecordedAt: coord.RecordedAt,
			}
		}
	}

	return public, nil
}

// ShareURL builds the public link for a session token
func ShareURL(token string) string {
	host := os.Getenv("PUBLIC_HOST")
	if host == "" {
		host = "https://ribit.app"
	}
	return fmt.Sprintf("%s/live-tracking/%s", host, token)
}

// CleanupExpiredSessions bulk-stops sessions past their expiry. Run from a
// janitor; lazy expiry on reads covers anything between sweeps.
func (s *TrackingService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.LiveTrackingSession{}).
		Where("is_active = ? AND expires_at < ?", true, time.Now()).
		Update("is_active", false)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected > 0 {
		log.Printf("Expired %d stale tracking sessions", result.RowsAffected)
	}
	return result.RowsAffected, nil
}

// RunJanitor sweeps expired sessions every interval until ctx ends
func (s *TrackingService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpiredSessions(ctx); err != nil {
				log.Printf("Tracking janitor sweep failed: %v", err)
			}
		}
	}
}
