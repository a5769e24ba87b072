package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultJWTExpiresIn   = "24h"
	DefaultPGHost         = "127.0.0.1"
	DefaultPGPort         = 5432
	DefaultPGUser         = "postgres"
	DefaultPGDatabase     = "atendo"
	DefaultPGSSLMode      = "disable"
	DefaultGatewayURL     = "http://127.0.0.1:3001"
	DefaultUploadDir      = "uploads"
	DefaultMaxUploadBytes = 16 * 1024 * 1024
)

type Config struct {
	Log       LogConfig       `toml:"log"`
	Server    ServerConfig    `toml:"server"`
	Admin     AdminConfig     `toml:"admin"`
	Auth      AuthConfig      `toml:"auth"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Uploads   UploadsConfig   `toml:"uploads"`
	Retention RetentionConfig `toml:"retention"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type AdminConfig struct {
	Username string `toml:"username"`
	Password string `toml:"password"`
	Email    string `toml:"email"`
}

type AuthConfig struct {
	JWTSecret    string `toml:"jwt_secret"`
	JWTExpiresIn string `toml:"jwt_expires_in"`
}

type PostgresConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	Database    string `toml:"database"`
	SSLMode     string `toml:"sslmode"`
	AutoMigrate bool   `toml:"auto_migrate"`
}

// GatewayConfig configures the external channel gateway process and the
// reconnect policy applied when its session drops.
type GatewayConfig struct {
	BaseURL             string `toml:"base_url"`
	WebhookSecret       string `toml:"webhook_secret"`
	SendTimeoutSeconds  int    `toml:"send_timeout_seconds"`
	StatusPollSeconds   int    `toml:"status_poll_seconds"`
	BackoffMinSeconds   int    `toml:"backoff_min_seconds"`
	BackoffMaxSeconds   int    `toml:"backoff_max_seconds"`
	MaxReconnectRetries int    `toml:"max_reconnect_retries"`
}

func (c GatewayConfig) SendTimeout() time.Duration {
	if c.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c GatewayConfig) StatusPollInterval() time.Duration {
	if c.StatusPollSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.StatusPollSeconds) * time.Second
}

func (c GatewayConfig) BackoffMin() time.Duration {
	if c.BackoffMinSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.BackoffMinSeconds) * time.Second
}

func (c GatewayConfig) BackoffMax() time.Duration {
	if c.BackoffMaxSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.BackoffMaxSeconds) * time.Second
}

type UploadsConfig struct {
	Dir      string `toml:"dir"`
	MaxBytes int64  `toml:"max_bytes"`
	// AllowedExtensions maps a file type (image, document, audio) to the
	// extensions accepted for it, without leading dots.
	AllowedExtensions map[string][]string `toml:"allowed_extensions"`
}

type RetentionConfig struct {
	ActivityDays  int    `toml:"activity_days"`
	PruneSchedule string `toml:"prune_schedule"`
}

func defaultAllowedExtensions() map[string][]string {
	return map[string][]string{
		"image":    {"png", "jpg", "jpeg", "gif", "webp"},
		"document": {"pdf", "doc", "docx", "txt", "xls", "xlsx"},
		"audio":    {"mp3", "wav", "ogg", "m4a"},
	}
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-your-password-here",
			Email:    "you@example.com",
		},
		Auth: AuthConfig{
			JWTExpiresIn: DefaultJWTExpiresIn,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Gateway: GatewayConfig{
			BaseURL:             DefaultGatewayURL,
			SendTimeoutSeconds:  10,
			StatusPollSeconds:   5,
			BackoffMinSeconds:   1,
			BackoffMaxSeconds:   60,
			MaxReconnectRetries: 10,
		},
		Uploads: UploadsConfig{
			Dir:      DefaultUploadDir,
			MaxBytes: DefaultMaxUploadBytes,
		},
		Retention: RetentionConfig{
			ActivityDays:  90,
			PruneSchedule: "0 3 * * *",
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg.Uploads.AllowedExtensions = defaultAllowedExtensions()
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(cfg.Uploads.AllowedExtensions) == 0 {
		cfg.Uploads.AllowedExtensions = defaultAllowedExtensions()
	}
	return cfg, nil
}
