package handlers

import (
	"net/http"

	"Mikrotik-Dashboard/auth"
	"Mikrotik-Dashboard/middleware"
	"Mikrotik-Dashboard/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Login - POST /api/auth/login
func Login(svc *auth.Service, limiter *auth.LoginLimiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			log.Warn("login rate limited", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ApiResponse{
				Success: false,
				Error:   "too many login attempts, try again later",
			})
			return
		}

		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "username and password are required")
			return
		}

		resp, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, log, err)
			return
		}
		respondData(c, http.StatusOK, resp)
	}
}

// Logout - POST /api/auth/logout. Tokens are stateless; the client drops it.
func Logout(c *gin.Context) {
	respondMessage(c, "logged out")
}

// AuthStatus - GET /api/auth/status
func AuthStatus(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Validate(middleware.BearerToken(c))
		if err != nil {
			respondData(c, http.StatusOK, gin.H{"authenticated": false})
			return
		}
		respondData(c, http.StatusOK, gin.H{
			"authenticated": true,
			"username":      claims.Username,
			"expiresAt":     claims.ExpiresAt.Time,
		})
	}
}
