package handlers

import (
	"net/http"

	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetQueues - GET /api/connections/:id/queues
func GetQueues(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		queues, err := data.GetQueues(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, queues)
	}
}
