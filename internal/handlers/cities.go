package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ribit-tech/ribit-backend/internal/models"
)

// GetCities lists the supported cities
func GetCities(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var cities []models.City
		if err := db.Where("is_active = ?", true).Order("name ASC").Find(&cities).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch cities"})
			return
		}

		c.JSON(200, cities)
	}
}

// GetCityPoints lists a city's curated pickup or dropoff spots
func GetCityPoints(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cityID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(400, gin.H{"error": "Invalid city id"})
			return
		}

		query := db.Where("city_id = ?", uint(cityID))
		if kind := c.Query("kind"); kind != "" {
			if kind != string(models.PointKindPickup) && kind != string(models.PointKindDropoff) {
				c.JSON(400, gin.H{"error": "kind must be pickup or dropoff"})
				return
			}
			query = query.Where("kind = ?", kind)
		}

		var points []models.CityPoint
		if err := query.Order("name ASC").Find(&points).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch city points"})
			return
		}

		c.JSON(200, points)
	}
}
