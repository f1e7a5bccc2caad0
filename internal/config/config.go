package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	OAuth     OAuthConfig     `yaml:"oauth"`
	Notion    NotionConfig    `yaml:"notion"`
	Databases DatabasesConfig `yaml:"databases"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Log       LogConfig       `yaml:"log"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Production marks cookies Secure.
	Production  bool     `yaml:"production"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
}

type NotionConfig struct {
	BaseURL string `yaml:"base_url"`
	Version string `yaml:"version"`
	// Token is an internal integration token, used by the MCP server where
	// there is no browser session.
	Token      string        `yaml:"token"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	MaxRetries uint64        `yaml:"max_retries"`
}

// DatabasesConfig names the tables used with the integration token.
type DatabasesConfig struct {
	WorkoutDBID string `yaml:"workout_db_id"`
	LogDBID     string `yaml:"log_db_id"`
	RoutineDBID string `yaml:"routine_db_id"`
}

type SessionsConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	TTL      time.Duration  `yaml:"ttl"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives logs through a rotating writer.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d PostgresConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// DSN returns the data source name for the configured driver.
func (s SessionsConfig) DSN() string {
	if s.Driver == "postgres" {
		return s.Postgres.DSN()
	}
	return s.Path
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Host: "0.0.0.0", Port: 8080},
		Notion:    NotionConfig{CacheTTL: time.Hour, MaxRetries: 3},
		Sessions:  SessionsConfig{Driver: "sqlite", Path: "data/wlog.db", TTL: 30 * 24 * time.Hour},
		Log:       LogConfig{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
		Tailscale: TailscaleConfig{Hostname: "wlog", StateDir: "data/tsnet"},
	}
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A .env file in the working directory is loaded first; an empty path skips
// the YAML file. Env vars use the prefix WLOG_ and underscore-separated paths:
//
//	WLOG_SERVER_HOST, WLOG_SERVER_PORT, WLOG_SERVER_PRODUCTION, WLOG_CORS_ORIGINS,
//	WLOG_OAUTH_CLIENT_ID, WLOG_OAUTH_CLIENT_SECRET, WLOG_OAUTH_REDIRECT_URI,
//	WLOG_NOTION_BASE_URL, WLOG_NOTION_VERSION, WLOG_NOTION_TOKEN, WLOG_NOTION_CACHE_TTL,
//	WLOG_WORKOUT_DB_ID, WLOG_LOG_DB_ID, WLOG_ROUTINE_DB_ID,
//	WLOG_SESSIONS_DRIVER, WLOG_SESSIONS_PATH, WLOG_SESSIONS_TTL,
//	WLOG_DB_HOST, WLOG_DB_PORT, WLOG_DB_NAME, WLOG_DB_USER, WLOG_DB_PASSWORD, WLOG_DB_SSLMODE,
//	WLOG_LOG_LEVEL, WLOG_LOG_FORMAT, WLOG_LOG_FILE,
//	WLOG_TAILSCALE_ENABLED, WLOG_TAILSCALE_HOSTNAME, WLOG_TAILSCALE_STATE_DIR
//
// OAUTH_CLIENT_ID, OAUTH_CLIENT_SECRET and OAUTH_REDIRECT_URI are accepted
// when the prefixed names are unset.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading .env: %w", err)
	}

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func env(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func applyEnvOverrides(cfg *Config) {
	setString := func(dst *string, names ...string) {
		if v := env(names...); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, names ...string) {
		if v := env(names...); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(dst *bool, names ...string) {
		if v := env(names...); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	setDuration := func(dst *time.Duration, names ...string) {
		if v := env(names...); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString(&cfg.Server.Host, "WLOG_SERVER_HOST")
	setInt(&cfg.Server.Port, "WLOG_SERVER_PORT")
	setBool(&cfg.Server.Production, "WLOG_SERVER_PRODUCTION")
	if v := env("WLOG_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	setString(&cfg.OAuth.ClientID, "WLOG_OAUTH_CLIENT_ID", "OAUTH_CLIENT_ID")
	setString(&cfg.OAuth.ClientSecret, "WLOG_OAUTH_CLIENT_SECRET", "OAUTH_CLIENT_SECRET")
	setString(&cfg.OAuth.RedirectURI, "WLOG_OAUTH_REDIRECT_URI", "OAUTH_REDIRECT_URI")

	setString(&cfg.Notion.BaseURL, "WLOG_NOTION_BASE_URL")
	setString(&cfg.Notion.Version, "WLOG_NOTION_VERSION")
	setString(&cfg.Notion.Token, "WLOG_NOTION_TOKEN")
	setDuration(&cfg.Notion.CacheTTL, "WLOG_NOTION_CACHE_TTL")

	setString(&cfg.Databases.WorkoutDBID, "WLOG_WORKOUT_DB_ID", "WORKOUT_DATA_SOURCE_ID")
	setString(&cfg.Databases.LogDBID, "WLOG_LOG_DB_ID", "LOG_DATA_SOURCE_ID")
	setString(&cfg.Databases.RoutineDBID, "WLOG_ROUTINE_DB_ID")

	setString(&cfg.Sessions.Driver, "WLOG_SESSIONS_DRIVER")
	setString(&cfg.Sessions.Path, "WLOG_SESSIONS_PATH")
	setDuration(&cfg.Sessions.TTL, "WLOG_SESSIONS_TTL")
	setString(&cfg.Sessions.Postgres.Host, "WLOG_DB_HOST")
	setInt(&cfg.Sessions.Postgres.Port, "WLOG_DB_PORT")
	setString(&cfg.Sessions.Postgres.Name, "WLOG_DB_NAME")
	setString(&cfg.Sessions.Postgres.User, "WLOG_DB_USER")
	setString(&cfg.Sessions.Postgres.Password, "WLOG_DB_PASSWORD")
	setString(&cfg.Sessions.Postgres.SSLMode, "WLOG_DB_SSLMODE")

	setString(&cfg.Log.Level, "WLOG_LOG_LEVEL")
	setString(&cfg.Log.Format, "WLOG_LOG_FORMAT")
	setString(&cfg.Log.File, "WLOG_LOG_FILE")

	setBool(&cfg.Tailscale.Enabled, "WLOG_TAILSCALE_ENABLED")
	setString(&cfg.Tailscale.Hostname, "WLOG_TAILSCALE_HOSTNAME")
	setString(&cfg.Tailscale.StateDir, "WLOG_TAILSCALE_STATE_DIR")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	switch c.Sessions.Driver {
	case "sqlite":
		if c.Sessions.Path == "" {
			return fmt.Errorf("sessions.path is required for the sqlite driver")
		}
	case "postgres":
		p := c.Sessions.Postgres
		if p.Host == "" {
			return fmt.Errorf("sessions.postgres.host is required")
		}
		if p.Port == 0 {
			return fmt.Errorf("sessions.postgres.port is required")
		}
		if p.Name == "" {
			return fmt.Errorf("sessions.postgres.name is required")
		}
		if p.User == "" {
			return fmt.Errorf("sessions.postgres.user is required")
		}
	default:
		return fmt.Errorf("sessions.driver must be sqlite or postgres, got %q", c.Sessions.Driver)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}

// RequireOAuth reports missing OAuth settings; the web server cannot sign
// anyone in without them.
func (c *Config) RequireOAuth() error {
	if c.OAuth.ClientID == "" {
		return fmt.Errorf("oauth.client_id is required")
	}
	if c.OAuth.ClientSecret == "" {
		return fmt.Errorf("oauth.client_secret is required")
	}
	if c.OAuth.RedirectURI == "" {
		return fmt.Errorf("oauth.redirect_uri is required")
	}
	return nil
}

// RequireIntegration reports a missing integration token, which tools
// running without a browser session need.
func (c *Config) RequireIntegration() error {
	if c.Notion.Token == "" {
		return fmt.Errorf("notion.token is required")
	}
	return nil
}
