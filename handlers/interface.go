package handlers

import (
	"net/http"

	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetInterfaces - GET /api/connections/:id/interfaces
func GetInterfaces(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ifaces, err := data.GetInterfaces(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, ifaces)
	}
}

// EnableInterface - POST /api/connections/:id/interfaces/:name/enable
func EnableInterface(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return setInterfaceDisabled(data, log, false, "interface enabled")
}

// DisableInterface - POST /api/connections/:id/interfaces/:name/disable
func DisableInterface(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return setInterfaceDisabled(data, log, true, "interface disabled")
}

func setInterfaceDisabled(data *services.RouterData, log *zap.Logger, disabled bool, msg string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, name := c.Param("id"), c.Param("name")
		if err := data.SetInterfaceDisabled(c.Request.Context(), id, name, disabled); err != nil {
			respondError(c, log, err)
			return
		}
		log.Info(msg, zap.String("connection_id", id), zap.String("interface", name))
		respondMessage(c, msg)
	}
}

// GetTraffic - GET /api/connections/:id/traffic?interface=ether1
func GetTraffic(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		iface := c.Query("interface")
		if iface == "" {
			badRequest(c, "parameter 'interface' is required")
			return
		}
		stats, err := data.GetInterfaceTraffic(c.Request.Context(), c.Param("id"), iface)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, stats)
	}
}
