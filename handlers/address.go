package handlers

import (
	"net/http"

	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetAddresses - GET /api/connections/:id/addresses
func GetAddresses(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		addrs, err := data.GetAddresses(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, addrs)
	}
}
