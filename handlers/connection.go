package handlers

import (
	"net/http"

	"Mikrotik-Dashboard/models"
	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ListConnections - GET /api/connections
func ListConnections(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := svc.List(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, recs)
	}
}

// CreateConnection - POST /api/connections
func CreateConnection(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConnectionCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		rec, err := svc.Create(c.Request.Context(), &req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusCreated, rec)
	}
}

// GetConnection - GET /api/connections/:id
func GetConnection(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, rec)
	}
}

// UpdateConnection - PUT /api/connections/:id
func UpdateConnection(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ConnectionUpdateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		rec, err := svc.Update(c.Request.Context(), c.Param("id"), &req)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, rec)
	}
}

// DeleteConnection - DELETE /api/connections/:id
func DeleteConnection(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		respondMessage(c, "connection deleted")
	}
}

// SetDefaultConnection - POST /api/connections/:id/default
func SetDefaultConnection(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := svc.SetDefault(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, rec)
	}
}

// ConnectRouter - POST /api/connections/:id/connect
func ConnectRouter(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		status, err := svc.Connect(c.Request.Context(), id)
		if err != nil {
			respondError(c, log, err)
			return
		}
		log.Info("router connected on request", zap.String("connection_id", id))
		c.JSON(http.StatusOK, models.ApiResponse{
			Success: true,
			Message: "connected",
			Data:    status,
		})
	}
}

// DisconnectRouter - POST /api/connections/:id/disconnect. Always succeeds.
func DisconnectRouter(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Disconnect(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, log, err)
			return
		}
		respondMessage(c, "disconnected")
	}
}

// ConnectionStatus - GET /api/connections/:id/status
func ConnectionStatus(svc *services.ConnectionService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, err := svc.Status(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, status)
	}
}

// ListSessions - GET /api/connections/sessions
func ListSessions(svc *services.ConnectionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondData(c, http.StatusOK, svc.Sessions())
	}
}
