package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Mikrotik-Dashboard/auth"
	"Mikrotik-Dashboard/config"
	"Mikrotik-Dashboard/database"
	"Mikrotik-Dashboard/monitor"
	"Mikrotik-Dashboard/notifications"
	"Mikrotik-Dashboard/repository"
	"Mikrotik-Dashboard/routes"
	"Mikrotik-Dashboard/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mikrotik-dashboard:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting mikrotik dashboard", zap.String("db_driver", cfg.DatabaseDriver))

	db, err := database.NewDatabase(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	connRepo := repository.NewConnectionRepository(db.DB)
	userRepo := repository.NewUserRepository(db.DB)

	sessions := services.NewSessionManager(connRepo, services.NewRouterOSDialer(cfg.MikrotikTimeout), cfg.MikrotikTimeout, log.Named("sessions"))
	defer sessions.Close()
	connections := services.NewConnectionService(connRepo, sessions, log.Named("connections"))
	data := services.NewRouterData(sessions, log.Named("facade"))

	tokens := auth.NewTokenService([]byte(cfg.JWTSecret), cfg.TokenTTL)
	authSvc := auth.NewService(userRepo, tokens, log.Named("auth"))
	if cfg.AdminPassword != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.AdminUser, cfg.AdminPassword); err != nil {
			return fmt.Errorf("seed admin user: %w", err)
		}
	} else {
		log.Warn("ADMIN_PASS not set, no operator account will be seeded")
	}

	rules, err := monitor.LoadRules(cfg.AlertRulesFile)
	if err != nil {
		return err
	}
	dispatcher := notifications.NewDispatcher(log.Named("notifications"), notifiersFrom(cfg)...)

	deps := routes.Deps{
		Connections:     connections,
		Data:            data,
		Auth:            authSvc,
		Limiter:         auth.NewLoginLimiter(cfg.LoginRateLimit, cfg.LoginBurst),
		Notifier:        dispatcher,
		TrafficInterval: cfg.TrafficInterval,
		Log:             log,
	}
	restServer := routes.SetupServer(deps, cfg.ServerAddr)
	wsServer := routes.SetupWebSocketServer(deps, cfg.WSServerAddr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sessions.KeepAlive(ctx, cfg.KeepaliveInterval)
	}()

	if cfg.AutoConnect {
		wg.Add(1)
		go func() {
			defer wg.Done()
			connections.ConnectDefault(ctx)
		}()
	}

	if dispatcher.Len() > 0 {
		mon := monitor.New(rules, connections, data, dispatcher, log.Named("monitor"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			mon.Run(ctx)
		}()
	} else {
		log.Info("no notifiers configured, alert monitor disabled")
	}

	serveErr := make(chan error, 2)
	for name, srv := range map[string]*http.Server{"rest": restServer, "websocket": wsServer} {
		go func() {
			log.Info("listening", zap.String("server", name), zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("%s server: %w", name, err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-serveErr:
		log.Error("server failed", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{restServer, wsServer} {
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.Warn("server shutdown", zap.String("addr", srv.Addr), zap.Error(serr))
		}
	}
	wg.Wait()
	return err
}

func notifiersFrom(cfg *config.Config) []notifications.Notifier {
	var out []notifications.Notifier
	if cfg.SMTP.Host != "" && len(cfg.SMTP.To) > 0 {
		out = append(out, notifications.NewEmailNotifier(notifications.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			To:       cfg.SMTP.To,
		}))
	}
	if cfg.Twilio.AccountSID != "" && len(cfg.Twilio.To) > 0 {
		out = append(out, notifications.NewSMSNotifier(notifications.SMSConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.From,
			To:         cfg.Twilio.To,
		}))
	}
	if cfg.AlertWebhook != "" {
		out = append(out, notifications.NewWebhookNotifier(notifications.WebhookConfig{
			URL:    cfg.AlertWebhook,
			Secret: cfg.WebhookSecret,
		}))
	}
	return out
}
