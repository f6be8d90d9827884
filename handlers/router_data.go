package handlers

import (
	"net/http"
	"strconv"

	"Mikrotik-Dashboard/models"
	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// query adapts a facade method that only needs the connection id.
func query[T any](log *zap.Logger, fn func(c *gin.Context, id string) (T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := fn(c, c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, out)
	}
}

// GetResources - GET /api/connections/:id/resources
func GetResources(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) (*models.ResourceInfo, error) {
		return data.GetResourceInfo(c.Request.Context(), id)
	})
}

// GetWireless - GET /api/connections/:id/wireless
func GetWireless(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.WirelessNetwork, error) {
		return data.GetWirelessNetworks(c.Request.Context(), id)
	})
}

// GetWirelessClients - GET /api/connections/:id/wireless/clients
func GetWirelessClients(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.WirelessClient, error) {
		return data.GetWirelessClients(c.Request.Context(), id)
	})
}

// GetFirewall - GET /api/connections/:id/firewall?chain=input
func GetFirewall(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.FirewallRule, error) {
		return data.GetFirewallRules(c.Request.Context(), id, c.Query("chain"))
	})
}

// GetRouting - GET /api/connections/:id/routing
func GetRouting(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.RoutingRule, error) {
		return data.GetRoutingRules(c.Request.Context(), id)
	})
}

// GetArp - GET /api/connections/:id/arp
func GetArp(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.ArpEntry, error) {
		return data.GetArpEntries(c.Request.Context(), id)
	})
}

// GetLogs - GET /api/connections/:id/logs?limit=50
func GetLogs(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				badRequest(c, "parameter 'limit' must be a positive integer")
				return
			}
			limit = n
		}
		logs, err := data.GetLogs(c.Request.Context(), c.Param("id"), limit)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, logs)
	}
}

// GetUsers - GET /api/connections/:id/users
func GetUsers(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.RouterUser, error) {
		return data.GetUsers(c.Request.Context(), id)
	})
}

// GetDhcpLeases - GET /api/connections/:id/dhcp/leases
func GetDhcpLeases(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return query(log, func(c *gin.Context, id string) ([]models.DhcpLease, error) {
		return data.GetDhcpLeases(c.Request.Context(), id)
	})
}

// ExecuteCommand - POST /api/connections/:id/command
func ExecuteCommand(data *services.RouterData, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CommandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "field 'command' is required")
			return
		}
		res, err := data.ExecuteRawCommand(c.Request.Context(), c.Param("id"), req.Command)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, res)
	}
}
