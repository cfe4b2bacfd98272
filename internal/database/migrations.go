package database

import (
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.City{},
		&models.CityPoint{},
		&models.Ride{},
		&models.Booking{},
		&models.LiveTrackingSession{},
		&models.TrackingCoordinate{},
		&models.RideReview{},
	)
	if err != nil {
		return err
	}

	// Columns added after the initial schema shipped
	if db.Migrator().HasTable(&models.User{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS avatar_url text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS license_url text DEFAULT ''",
			"ADD COLUMN IF NOT EXISTS driver_verified boolean DEFAULT false",
		}
		for _, column := range columns {
			if err := db.Exec("ALTER TABLE users " + column).Error; err != nil {
				return err
			}
		}

		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_user_type_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_user_type_check CHECK (user_type IN ('passenger', 'driver'))`)
	}

	if db.Migrator().HasTable(&models.Ride{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS extra_miles integer DEFAULT 0",
			"ADD COLUMN IF NOT EXISTS hidden_by_driver boolean DEFAULT false",
			"ADD COLUMN IF NOT EXISTS total_luggage integer DEFAULT 0",
			"ADD COLUMN IF NOT EXISTS available_luggage integer DEFAULT 0",
		}
		for _, column := range columns {
			if err := db.Exec("ALTER TABLE rides " + column).Error; err != nil {
				return err
			}
		}

		db.Exec(`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_extra_miles_check`)
		db.Exec(`ALTER TABLE rides ADD CONSTRAINT rides_extra_miles_check CHECK (extra_miles IN (0, 5, 10, 15))`)
		db.Exec(`ALTER TABLE rides DROP CONSTRAINT IF EXISTS rides_seats_check`)
		db.Exec(`ALTER TABLE rides ADD CONSTRAINT rides_seats_check CHECK (available_seats >= 0 AND available_seats <= total_seats)`)
	}

	if db.Migrator().HasTable(&models.Booking{}) {
		columns := []string{
			"ADD COLUMN IF NOT EXISTS hidden_by_passenger boolean DEFAULT false",
			"ADD COLUMN IF NOT EXISTS reviewed boolean DEFAULT false",
			"ADD COLUMN IF NOT EXISTS payment_intent_id text DEFAULT ''",
		}
		for _, column := range columns {
			if err := db.Exec("ALTER TABLE bookings " + column).Error; err != nil {
				return err
			}
		}
	}

	return seedCities(db)
}

// seedCities inserts the supported Florida cities on first boot. Rides can
// only be posted between cities the pricing table knows.
func seedCities(db *gorm.DB) error {
	cities := []models.City{
		{Name: "Gainesville", State: "FL", Lat: 29.6516, Lng: -82.3248, IsActive: true},
		{Name: "Orlando", State: "FL", Lat: 28.5384, Lng: -81.3789, IsActive: true},
		{Name: "Tampa", State: "FL", Lat: 27.9506, Lng: -82.4572, IsActive: true},
		{Name: "Miami", State: "FL", Lat: 25.7617, Lng: -80.1918, IsActive: true},
	}

	for _, city := range cities {
		var count int64
		if err := db.Model(&models.City{}).Where("name = ?", city.Name).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&city).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
