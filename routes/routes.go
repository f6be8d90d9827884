package routes

import (
	"net/http"
	"time"

	"Mikrotik-Dashboard/auth"
	"Mikrotik-Dashboard/handlers"
	"Mikrotik-Dashboard/middleware"
	"Mikrotik-Dashboard/notifications"
	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps is everything the HTTP layers need.
type Deps struct {
	Connections     *services.ConnectionService
	Data            *services.RouterData
	Auth            *auth.Service
	Limiter         *auth.LoginLimiter
	Notifier        *notifications.Dispatcher
	TrafficInterval time.Duration
	Log             *zap.Logger
}

func SetupRoutes(d Deps) *gin.Engine {
	log := d.Log.Named("http")
	tokens := d.Auth.Tokens()

	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.RequestLogger(log), middleware.JSONMiddleware())

	r.GET("/health", handlers.HealthCheck(d.Connections))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("/api/auth")
	authGroup.POST("/login", handlers.Login(d.Auth, d.Limiter, log))
	authGroup.POST("/logout", handlers.Logout)
	authGroup.GET("/status", handlers.AuthStatus(tokens))

	conns := r.Group("/api/connections", middleware.RequireAuth(tokens))
	{
		conns.GET("", handlers.ListConnections(d.Connections, log))
		conns.POST("", handlers.CreateConnection(d.Connections, log))
		conns.GET("/sessions", handlers.ListSessions(d.Connections))

		conns.GET("/:id", handlers.GetConnection(d.Connections, log))
		conns.PUT("/:id", handlers.UpdateConnection(d.Connections, log))
		conns.DELETE("/:id", handlers.DeleteConnection(d.Connections, log))
		conns.POST("/:id/default", handlers.SetDefaultConnection(d.Connections, log))
		conns.POST("/:id/connect", handlers.ConnectRouter(d.Connections, log))
		conns.POST("/:id/disconnect", handlers.DisconnectRouter(d.Connections, log))
		conns.GET("/:id/status", handlers.ConnectionStatus(d.Connections, log))

		conns.GET("/:id/resources", handlers.GetResources(d.Data, log))
		conns.GET("/:id/interfaces", handlers.GetInterfaces(d.Data, log))
		conns.POST("/:id/interfaces/:name/enable", handlers.EnableInterface(d.Data, log))
		conns.POST("/:id/interfaces/:name/disable", handlers.DisableInterface(d.Data, log))
		conns.GET("/:id/traffic", handlers.GetTraffic(d.Data, log))
		conns.GET("/:id/wireless", handlers.GetWireless(d.Data, log))
		conns.GET("/:id/wireless/clients", handlers.GetWirelessClients(d.Data, log))
		conns.GET("/:id/firewall", handlers.GetFirewall(d.Data, log))
		conns.GET("/:id/routing", handlers.GetRouting(d.Data, log))
		conns.GET("/:id/arp", handlers.GetArp(d.Data, log))
		conns.GET("/:id/logs", handlers.GetLogs(d.Data, log))
		conns.GET("/:id/users", handlers.GetUsers(d.Data, log))
		conns.GET("/:id/dhcp/leases", handlers.GetDhcpLeases(d.Data, log))
		conns.GET("/:id/addresses", handlers.GetAddresses(d.Data, log))
		conns.GET("/:id/queues", handlers.GetQueues(d.Data, log))
		conns.POST("/:id/command", handlers.ExecuteCommand(d.Data, log))
	}

	notify := r.Group("/api/notifications", middleware.RequireAuth(tokens))
	notify.POST("/test", handlers.SendTestNotification(d.Notifier, log))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "data": nil, "error": "not found"})
	})

	log.Info("routes configured", zap.Int("count", len(r.Routes())))
	return r
}

// SetupServer wraps the REST engine in an http.Server with bounded timeouts.
func SetupServer(d Deps, addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           SetupRoutes(d),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
