package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration, loaded from YAML with
// environment overrides.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Polling  PollingConfig  `yaml:"polling"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	AdminPassword string `yaml:"admin_password"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PollingConfig struct {
	AdapterIntervalSec   int `yaml:"adapter_interval_sec"`
	WSMetricsIntervalSec int `yaml:"ws_metrics_interval_sec"`
	HTTPTimeoutSec       int `yaml:"http_timeout_sec"`
}

type AlertsConfig struct {
	WebhookURL string `yaml:"webhook_url"`
}

type LogConfig struct {
	File string `yaml:"file"`
}

// Load reads the YAML file at path (missing file means defaults only),
// applies VOIPMON_* environment overrides, and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Auth: AuthConfig{
			TokenTTLHours: 24,
			AdminPassword: "changeme",
		},
		Database: DatabaseConfig{Path: "voipmon.db"},
		Polling: PollingConfig{
			AdapterIntervalSec:   30,
			WSMetricsIntervalSec: 5,
			HTTPTimeoutSec:       15,
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("VOIPMON_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VOIPMON_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("VOIPMON_ADMIN_PASSWORD"); v != "" {
		cfg.Auth.AdminPassword = v
	}
	if v := os.Getenv("VOIPMON_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("VOIPMON_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("VOIPMON_ALERT_WEBHOOK"); v != "" {
		cfg.Alerts.WebhookURL = v
	}
	if v := os.Getenv("VOIPMON_TLS_CERT"); v != "" {
		cfg.Server.TLSCert = v
	}
	if v := os.Getenv("VOIPMON_TLS_KEY"); v != "" {
		cfg.Server.TLSKey = v
	}
	if v := os.Getenv("VOIPMON_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set VOIPMON_JWT_SECRET)")
	}
	if c.Polling.AdapterIntervalSec < 1 {
		return fmt.Errorf("polling.adapter_interval_sec must be positive, got %d", c.Polling.AdapterIntervalSec)
	}
	if c.Polling.WSMetricsIntervalSec < 1 {
		return fmt.Errorf("polling.ws_metrics_interval_sec must be positive, got %d", c.Polling.WSMetricsIntervalSec)
	}
	if c.Polling.HTTPTimeoutSec < 1 {
		return fmt.Errorf("polling.http_timeout_sec must be positive, got %d", c.Polling.HTTPTimeoutSec)
	}
	if (c.Server.TLSCert == "") != (c.Server.TLSKey == "") {
		return fmt.Errorf("server.tls_cert and server.tls_key must be set together")
	}
	return nil
}
