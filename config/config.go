package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerAddr   string
	WSServerAddr string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret      string
	TokenTTL       time.Duration
	AdminUser      string
	AdminPassword  string
	LoginRateLimit float64
	LoginBurst     int

	MikrotikTimeout   time.Duration
	KeepaliveInterval time.Duration
	AutoConnect       bool

	AlertRulesFile string
	SMTP           SMTPConfig
	Twilio         TwilioConfig
	AlertWebhook   string
	WebhookSecret  string

	TrafficInterval time.Duration

	LogLevel  string
	LogFormat string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         []string
}

// LoadConfig reads defaults, an optional YAML file named by CONFIG_FILE and
// the environment. Environment variables win.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("WS_SERVER_ADDR", ":8081")

	v.SetDefault("DB_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_NAME", "mikrotik_dashboard")
	v.SetDefault("SQLITE_PATH", "mikrotik-dashboard.db")

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASS", "")
	v.SetDefault("LOGIN_RATE", 0.2)
	v.SetDefault("LOGIN_BURST", 5)

	v.SetDefault("MIKROTIK_TIMEOUT", "10s")
	v.SetDefault("KEEPALIVE_INTERVAL", "30s")
	v.SetDefault("AUTO_CONNECT", true)

	v.SetDefault("TRAFFIC_INTERVAL", "2s")

	v.SetDefault("ALERT_RULES_FILE", "")
	v.SetDefault("SMTP_PORT", 587)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServerAddr:        v.GetString("SERVER_ADDR"),
		WSServerAddr:      v.GetString("WS_SERVER_ADDR"),
		DatabaseDriver:    v.GetString("DB_DRIVER"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		TokenTTL:          v.GetDuration("TOKEN_TTL"),
		AdminUser:         v.GetString("ADMIN_USER"),
		AdminPassword:     v.GetString("ADMIN_PASS"),
		LoginRateLimit:    v.GetFloat64("LOGIN_RATE"),
		LoginBurst:        v.GetInt("LOGIN_BURST"),
		MikrotikTimeout:   v.GetDuration("MIKROTIK_TIMEOUT"),
		KeepaliveInterval: v.GetDuration("KEEPALIVE_INTERVAL"),
		AutoConnect:       v.GetBool("AUTO_CONNECT"),
		AlertRulesFile:    v.GetString("ALERT_RULES_FILE"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("SMTP_FROM"),
			To:       splitList(v.GetString("SMTP_TO")),
		},
		Twilio: TwilioConfig{
			AccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
			AuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
			From:       v.GetString("TWILIO_FROM"),
			To:         splitList(v.GetString("TWILIO_TO")),
		},
		AlertWebhook:    v.GetString("ALERT_WEBHOOK_URL"),
		WebhookSecret:   v.GetString("ALERT_WEBHOOK_SECRET"),
		TrafficInterval: v.GetDuration("TRAFFIC_INTERVAL"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
	}

	switch cfg.DatabaseDriver {
	case "mysql":
		cfg.DatabaseDSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=Local",
			v.GetString("DB_USER"), v.GetString("DB_PASS"),
			v.GetString("DB_HOST"), v.GetString("DB_PORT"), v.GetString("DB_NAME"))
	case "sqlite":
		cfg.DatabaseDSN = v.GetString("SQLITE_PATH")
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q: must be \"mysql\" or \"sqlite\"", cfg.DatabaseDriver)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	if cfg.MikrotikTimeout <= 0 {
		return nil, fmt.Errorf("MIKROTIK_TIMEOUT must be positive")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
