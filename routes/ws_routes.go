package routes

import (
	"net/http"
	"time"

	"Mikrotik-Dashboard/handlers"
	"Mikrotik-Dashboard/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupWebSocketRoutes builds the engine for the streaming listener.
//
//	/ws/traffic/monitor?connection_id=<id>&interface=ether1&token=<jwt>
//	/ws/traffic/monitor?connection_id=<id>&interfaces=ether1,ether2&token=<jwt>
func SetupWebSocketRoutes(d Deps) *gin.Engine {
	log := d.Log.Named("ws")

	interval := d.TrafficInterval
	if interval <= 0 {
		interval = handlers.DefaultTrafficInterval
	}

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log))

	r.GET("/ws/health", handlers.WsHealthCheck)
	r.GET("/ws/traffic/monitor",
		middleware.RequireAuth(d.Auth.Tokens()),
		handlers.MonitorTrafficWS(d.Data, interval, log),
	)

	log.Info("websocket routes configured", zap.Duration("traffic_interval", interval))
	return r
}

// SetupWebSocketServer leaves WriteTimeout unset; the handler sets a deadline
// per message.
func SetupWebSocketServer(d Deps, addr string) *http.Server {
	return &http.Server{
		Addr:        addr,
		Handler:     SetupWebSocketRoutes(d),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}
