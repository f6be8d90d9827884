package handlers

import (
	"errors"
	"net/http"

	"Mikrotik-Dashboard/errs"
	"Mikrotik-Dashboard/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps the error taxonomy onto HTTP status codes. A router that
// cannot be reached is a client-side problem (400); only unexpected failures
// are 500.
func statusFor(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.NotFound:
		return http.StatusNotFound
	case errs.Validation:
		return http.StatusBadRequest
	case errs.Authentication, errs.Unauthorized:
		return http.StatusUnauthorized
	case errs.Timeout, errs.NetworkUnreachable, errs.AlreadyInProgress:
		return http.StatusBadRequest
	}
	if e.Op == "connect" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError writes the classified message only; the cause goes to the log.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.Stringer("kind", errs.KindOf(err)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
	} else {
		log.Info("request rejected", fields...)
	}
	c.AbortWithStatusJSON(status, models.ApiResponse{
		Success: false,
		Error:   errs.Message(err),
	})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ApiResponse{
		Success: false,
		Error:   msg,
	})
}

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, models.ApiResponse{Success: true, Data: data})
}

func respondMessage(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, models.ApiResponse{Success: true, Message: msg})
}
