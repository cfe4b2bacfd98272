package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ribit-tech/ribit-backend/internal/services"
)

// TrackingWebSocket upgrades a share-link viewer to a live coordinate
// stream for one session token. The token is validated (and lazily
// expired) before the upgrade.
func TrackingWebSocket(hub *services.Hub, tracking *services.TrackingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		if _, err := tracking.ResolveToken(c.Request.Context(), token); err != nil {
			if errors.Is(err, services.ErrSessionNotFound) {
				c.JSON(404, gin.H{"error": "Tracking link not found or expired"})
				return
			}
			c.JSON(500, gin.H{"error": "Failed to resolve tracking link"})
			return
		}

		services.HandleWebSocket(hub, c.Writer, c.Request, token)
	}
}
