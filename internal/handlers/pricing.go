package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ribit-tech/ribit-backend/pkg/utils"
)

// GetQuote returns the passenger cost breakdown for a route, price and
// seat count, validating the price against the route cap on the way.
func GetQuote() gin.HandlerFunc {
	return func(c *gin.Context) {
		fromCity := c.Query("from")
		toCity := c.Query("to")
		price, err := strconv.ParseFloat(c.Query("price"), 64)
		if err != nil || price <= 0 {
			c.JSON(400, gin.H{"error": "Invalid price"})
			return
		}
		seats, err := strconv.Atoi(c.DefaultQuery("seats", "1"))
		if err != nil || seats < 1 {
			c.JSON(400, gin.H{"error": "Invalid seats"})
			return
		}

		validation, err := utils.ValidateDriverPrice(price, fromCity, toCity)
		if err != nil {
			if errors.Is(err, utils.ErrRouteUnsupported) {
				c.JSON(400, gin.H{"error": validation.Error, "supportedCities": utils.SupportedCities()})
				return
			}
			c.JSON(400, gin.H{"error": validation.Error, "maxPrice": validation.MaxPrice})
			return
		}

		c.JSON(200, gin.H{
			"maxPrice":  validation.MaxPrice,
			"breakdown": utils.GetPassengerPricingBreakdown(price, seats),
		})
	}
}

// GetDriverBreakdown shows what passengers would pay for each seat tier
func GetDriverBreakdown() gin.HandlerFunc {
	return func(c *gin.Context) {
		price, err := strconv.ParseFloat(c.Query("price"), 64)
		if err != nil || price <= 0 {
			c.JSON(400, gin.H{"error": "Invalid price"})
			return
		}

		c.JSON(200, utils.GetDriverPricingBreakdown(price))
	}
}

// GetFees reports the platform margin per seat tier
func GetFees() gin.HandlerFunc {
	return func(c *gin.Context) {
		price, err := strconv.ParseFloat(c.Query("price"), 64)
		if err != nil || price <= 0 {
			c.JSON(400, gin.H{"error": "Invalid price"})
			return
		}

		c.JSON(200, utils.GetPlatformFees(price))
	}
}
