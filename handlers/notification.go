package handlers

import (
	"net/http"
	"time"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/middleware"
	"Mikrotik-Dashboard/models"
	"Mikrotik-Dashboard/notifications"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testNotificationRule = "test"

// SendTestNotification - POST /api/notifications/test
func SendTestNotification(dispatcher *notifications.Dispatcher, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if dispatcher == nil || dispatcher.Len() == 0 {
			respondError(c, log, errs.New(errs.Validation, "no notification channels are configured"))
			return
		}

		requestedBy := "unknown"
		if claims := middleware.ClaimsFrom(c); claims != nil {
			requestedBy = claims.Username
		}
		now := time.Now()
		msg := notifications.Message{
			DeviceName: "Mikrotik Dashboard",
			Rule:       testNotificationRule,
			Severity:   notifications.SeverityWarning,
			Text:       "test notification requested by " + requestedBy,
			Time:       now,
		}

		if err := dispatcher.Send(c.Request.Context(), msg); err != nil {
			log.Warn("test notification failed",
				zap.String("requested_by", requestedBy),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusBadGateway, models.ApiResponse{
				Success: false,
				Error:   "notification delivery failed on at least one channel",
			})
			return
		}

		log.Info("test notification sent",
			zap.String("requested_by", requestedBy),
			zap.Strings("channels", dispatcher.Channels()),
		)
		respondData(c, http.StatusOK, gin.H{
			"channels": dispatcher.Channels(),
			"sentAt":   now,
		})
	}
}
