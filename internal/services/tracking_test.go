package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

func setupTrackingService(t *testing.T) (*TrackingService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	hub := NewHub()
	go hub.Run()
	return NewTrackingService(db, hub), db
}

func TestStartSession(t *testing.T) {
	svc, db := setupTrackingService(t)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	session, err := svc.Start(ctx, ride.ID, passenger.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !strings.HasPrefix(session.SessionToken, "track_") {
		t.Errorf("unexpected token format: %q", session.SessionToken)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl < 11*time.Hour+59*time.Minute || ttl > models.TrackingSessionTTL {
		t.Errorf("expiry not ~12h out: %v", ttl)
	}

	// A second start for the same pair reuses the live session
	again, err := svc.Start(ctx, ride.ID, passenger.ID)
	if err != nil {
		t.Fatalf("second Start failed: %v", err)
	}
	if again.ID != session.ID {
		t.Errorf("expected session reuse, got new session %d", again.ID)
	}
}

func TestAddCoordinateAndResolve(t *testing.T) {
	svc, db := setupTrackingService(t)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	session, err := svc.Start(ctx, ride.ID, driver.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := svc.AddCoordinate(ctx, session.ID, driver.ID, 29.6516, -82.3248); err != nil {
		t.Fatalf("AddCoordinate failed: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	// Zero latitude is a valid position on the equator
	if err := svc.AddCoordinate(ctx, session.ID, driver.ID, 0, -82.40); err != nil {
		t.Fatalf("second AddCoordinate failed: %v", err)
	}

	// Samples are append-only; each report adds a row
	var count int64
	db.Model(&models.TrackingCoordinate{}).Where("session_id = ?", session.ID).Count(&count)
	if count != 2 {
		t.Errorf("%d coordinate rows, want 2", count)
	}

	public, err := svc.ResolveToken(ctx, session.SessionToken)
	if err != nil {
		t.Fatalf("ResolveToken failed: %v", err)
	}
	if public.DriverName != driver.Username {
		t.Errorf("DriverName = %q, want %q", public.DriverName, driver.Username)
	}
	if public.FromCity == "" || public.ToCity == "" {
		t.Errorf("city names not resolved: %q -> %q", public.FromCity, public.ToCity)
	}
	if public.LatestCoordinate == nil {
		t.Fatal("LatestCoordinate not populated")
	}
	if public.LatestCoordinate.Lat != 0 || public.LatestCoordinate.Lng != -82.40 {
		t.Errorf("latest = (%v, %v), want the newest sample (0, -82.40)",
			public.LatestCoordinate.Lat, public.LatestCoordinate.Lng)
	}
}

func TestSessionExpiry(t *testing.T) {
	svc, db := setupTrackingService(t)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	passenger := mustCreateUser(t, db, models.UserTypePassenger)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	session, err := svc.Start(ctx, ride.ID, passenger.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Force the session past its expiry while leaving is_active set
	past := time.Now().Add(-time.Minute)
	if err := db.Model(session).Update("expires_at", past).Error; err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetActiveSession(ctx, ride.ID, passenger.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expired session should read as not found, got %v", err)
	}

	// The read lazily stopped it
	var reloaded models.LiveTrackingSession
	db.First(&reloaded, session.ID)
	if reloaded.IsActive {
		t.Error("expired session should be stopped by the read")
	}

	if err := svc.AddCoordinate(ctx, session.ID, passenger.ID, 29.65, -82.32); !errors.Is(err, ErrSessionNotActive) {
		t.Errorf("coordinate on expired session should fail with ErrSessionNotActive, got %v", err)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	svc, db := setupTrackingService(t)
	ctx := context.Background()

	driver := mustCreateUser(t, db, models.UserTypeDriver)
	ride := mustCreateRide(t, db, driver.ID, 2, 0)

	for i := 0; i < 3; i++ {
		passenger := mustCreateUser(t, db, models.UserTypePassenger)
		session, err := svc.Start(ctx, ride.ID, passenger.ID)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		if i < 2 {
			db.Model(session).Update("expires_at", time.Now().Add(-time.Hour))
		}
	}

	swept, err := svc.CleanupExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredSessions failed: %v", err)
	}
	if swept != 2 {
		t.Errorf("swept %d sessions, want 2", swept)
	}

	var active int64
	db.Model(&models.LiveTrackingSession{}).Where("is_active = ?", true).Count(&active)
	if active != 1 {
		t.Errorf("%d sessions still active, want 1", active)
	}
}
