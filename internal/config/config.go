package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Redmine   RedmineConfig   `yaml:"redmine"`
	Crypto    CryptoConfig    `yaml:"crypto"`
	Daily     DailyConfig     `yaml:"daily"`
	Webhook   WebhookConfig   `yaml:"webhook"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type TransportConfig struct {
	Mode string `yaml:"mode"` // "http" or "stdio"
}

type RedmineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type CryptoConfig struct {
	// Identity is an age X25519 secret key ("AGE-SECRET-KEY-1...").
	Identity string `yaml:"identity"`
}

type DailyConfig struct {
	RegistrationWindow time.Duration `yaml:"registration_window"`
	Timezone           string        `yaml:"timezone"`
	ActivityHint       string        `yaml:"activity_hint"`
	Comment            string        `yaml:"comment"`
	Concurrency        int           `yaml:"concurrency"`
}

type WebhookConfig struct {
	// Secret is the bearer token chat bridges must present. Empty disables auth.
	Secret string `yaml:"secret"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "dailylog.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Redmine: RedmineConfig{
			Timeout: 15 * time.Second,
		},
		Daily: DailyConfig{
			RegistrationWindow: 30 * time.Minute,
			Timezone:           "Local",
			ActivityHint:       "meeting",
			Comment:            "Daily",
			Concurrency:        4,
		},
	}
}

// Load reads configuration from an optional YAML file and environment
// variables. An empty path falls back to DAILYLOG_CONFIG_PATH.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DAILYLOG_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Redmine.URL = strings.TrimRight(cfg.Redmine.URL, "/")
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("DAILYLOG_SERVER_HOST", &cfg.Server.Host)
	setString("DAILYLOG_DB_PATH", &cfg.DB.Path)
	setString("DAILYLOG_LOG_LEVEL", &cfg.Log.Level)
	setString("DAILYLOG_LOG_FORMAT", &cfg.Log.Format)
	setString("DAILYLOG_TRANSPORT_MODE", &cfg.Transport.Mode)
	setString("DAILYLOG_REDMINE_URL", &cfg.Redmine.URL)
	setString("DAILYLOG_ENCRYPTION_IDENTITY", &cfg.Crypto.Identity)
	setString("DAILYLOG_TIMEZONE", &cfg.Daily.Timezone)
	setString("DAILYLOG_WEBHOOK_SECRET", &cfg.Webhook.Secret)

	if portStr := os.Getenv("DAILYLOG_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid DAILYLOG_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DAILYLOG_REDMINE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DAILYLOG_REDMINE_TIMEOUT: %w", err)
		}
		cfg.Redmine.Timeout = d
	}
	if v := os.Getenv("DAILYLOG_REGISTRATION_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DAILYLOG_REGISTRATION_WINDOW: %w", err)
		}
		cfg.Daily.RegistrationWindow = d
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate reports every missing or malformed setting.
func (c Config) Validate() error {
	var errs []error
	if c.Redmine.URL == "" {
		errs = append(errs, errors.New("redmine.url is required"))
	}
	if c.Crypto.Identity == "" {
		errs = append(errs, errors.New("crypto.identity is required"))
	}
	if c.Transport.Mode != "http" && c.Transport.Mode != "stdio" {
		errs = append(errs, fmt.Errorf("transport.mode must be http or stdio, got %q", c.Transport.Mode))
	}
	if c.Daily.RegistrationWindow <= 0 {
		errs = append(errs, errors.New("daily.registration_window must be positive"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves daily.timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Daily.Timezone)
	if err != nil {
		return nil, fmt.Errorf("daily.timezone: %w", err)
	}
	return loc, nil
}
