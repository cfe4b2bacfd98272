package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ribit-tech/ribit-backend/internal/services"
)

// GetRoute returns the driving route between two cities or two coordinate
// pairs. Results are served from a 24h cache when possible.
func GetRoute(directions *services.DirectionsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromCity := c.Query("fromCity")
		toCity := c.Query("toCity")

		if fromCity != "" && toCity != "" {
			route, err := directions.RouteByCities(c.Request.Context(), fromCity, toCity)
			if err != nil {
				if errors.Is(err, services.ErrNoRoute) {
					c.JSON(404, gin.H{"error": err.Error()})
					return
				}
				c.JSON(502, gin.H{"error": "Failed to fetch route"})
				return
			}
			c.JSON(200, route)
			return
		}

		coords := make([]float64, 4)
		for i, name := range []string{"fromLat", "fromLng", "toLat", "toLng"} {
			v, err := strconv.ParseFloat(c.Query(name), 64)
			if err != nil {
				c.JSON(400, gin.H{"error": "Provide fromCity/toCity or all of fromLat, fromLng, toLat, toLng"})
				return
			}
			coords[i] = v
		}

		route, err := directions.RouteByCoords(c.Request.Context(), coords[0], coords[1], coords[2], coords[3])
		if err != nil {
			if errors.Is(err, services.ErrNoRoute) {
				c.JSON(404, gin.H{"error": err.Error()})
				return
			}
			c.JSON(502, gin.H{"error": "Failed to fetch route"})
			return
		}

		c.JSON(200, route)
	}
}
