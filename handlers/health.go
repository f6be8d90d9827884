package handlers

import (
	"net/http"
	"time"

	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
)

func HealthCheck(connections *services.ConnectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions := connections.Sessions()
		connected := 0
		for _, s := range sessions {
			if s.State == services.StateConnected.String() {
				connected++
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "API is running",
			"data": gin.H{
				"status":            "ok",
				"timestamp":         time.Now(),
				"sessions":          len(sessions),
				"connectedSessions": connected,
			},
		})
	}
}

func WsHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "WebSocket server is healthy",
		"data": gin.H{
			"status":    "ok",
			"timestamp": time.Now(),
		},
	})
}
