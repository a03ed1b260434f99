package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultLoginURL is the mobile-web login page driven by every session.
const DefaultLoginURL = "https://www.kleinanzeigen.de/m-benutzer-anmeldung-inapp.html?appType=MWEB"

// DefaultLoginMarker is the URL token identifying the login page. A final
// URL still containing it means the session never left the login form.
const DefaultLoginMarker = "benutzer-anmeldung"

// Config represents the complete application configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Browser  BrowserConfig  `yaml:"browser"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// ServerConfig contains server-related configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// APIConfig contains API-related configuration.
type APIConfig struct {
	BasePath  string          `yaml:"base_path"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	Enabled    bool     `yaml:"enabled"`
	APIKeys    []string `yaml:"api_keys"`
	HeaderName string   `yaml:"header_name"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// StorageConfig contains durable-store configuration.
type StorageConfig struct {
	// DataDir is the root for all on-disk state (database, profiles).
	DataDir string `yaml:"data_dir"`
	// DBPath overrides the database location. Default: <data_dir>/accounts.db
	DBPath string `yaml:"db_path"`
	// SeedDemoData inserts demo accounts and messages into an empty store.
	SeedDemoData bool `yaml:"seed_demo_data"`
	// Retention prunes terminal login jobs. Accounts and messages are
	// never deleted.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains login-job retention configuration.
type RetentionConfig struct {
	Enabled  bool          `yaml:"enabled"`
	MaxAge   time.Duration `yaml:"max_age"`
	Interval time.Duration `yaml:"interval"`
}

// BrowserConfig contains session-driver configuration.
type BrowserConfig struct {
	// ProfileRoot holds one isolated profile directory per job/account.
	// Default: <data_dir>/profiles
	ProfileRoot string `yaml:"profile_root"`
	// LoginURL is the fixed page every session navigates to.
	LoginURL string `yaml:"login_url"`
	// LoginMarker is the URL token the validity check treats as
	// still-on-the-login-page.
	LoginMarker string `yaml:"login_marker"`
	// DefaultDevice is the emulation preset used when a job names an
	// unknown one.
	DefaultDevice string `yaml:"default_device"`
	Locale        string `yaml:"locale"`
	// ExecPath points at the browser binary. Empty means auto-discover.
	ExecPath string `yaml:"exec_path"`
	// HeadlessTimeout bounds the validation round-trip. The interactive
	// session is intentionally unbounded.
	HeadlessTimeout time.Duration `yaml:"headless_timeout"`
}

// TelegramConfig contains operator-notification configuration.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Browser.Validate(c.Storage.DataDir); err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	if err := c.Telegram.Validate(); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (s *ServerConfig) Validate() error {
	if s.Host == "" {
		s.Host = "localhost"
	}
	if s.HTTPPort == 0 {
		s.HTTPPort = 8511
	}
	if s.HTTPPort < 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("http_port must be between 1 and 65535")
	}
	if s.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 30 * time.Second
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	return nil
}

// Validate validates API configuration.
func (a *APIConfig) Validate() error {
	if a.BasePath == "" {
		a.BasePath = "/api"
	}
	if a.Auth.Enabled && len(a.Auth.APIKeys) == 0 {
		return fmt.Errorf("auth: api_keys is required when auth is enabled")
	}
	if a.RateLimit.RequestsPerMinute <= 0 {
		a.RateLimit.RequestsPerMinute = 600
	}
	if a.RateLimit.RequestsPerMinute > 100000 {
		a.RateLimit.RequestsPerMinute = 100000
	}
	if a.RateLimit.Burst <= 0 {
		a.RateLimit.Burst = 50
	}
	return nil
}

// Validate validates storage configuration and applies defaults.
func (s *StorageConfig) Validate() error {
	if s.DataDir == "" {
		s.DataDir = "./data"
	}
	if s.DBPath == "" {
		s.DBPath = filepath.Join(s.DataDir, "accounts.db")
	}
	if s.Retention.MaxAge <= 0 {
		s.Retention.MaxAge = 30 * 24 * time.Hour
	}
	if s.Retention.Interval <= 0 {
		s.Retention.Interval = time.Hour
	}
	return nil
}

// Validate validates browser configuration and applies defaults.
func (b *BrowserConfig) Validate(dataDir string) error {
	if b.ProfileRoot == "" {
		b.ProfileRoot = filepath.Join(dataDir, "profiles")
	}
	if b.LoginURL == "" {
		b.LoginURL = DefaultLoginURL
	}
	if b.LoginMarker == "" {
		b.LoginMarker = DefaultLoginMarker
	}
	if b.DefaultDevice == "" {
		b.DefaultDevice = "iPhone 13"
	}
	if b.Locale == "" {
		b.Locale = "de-DE"
	}
	if b.HeadlessTimeout <= 0 {
		b.HeadlessTimeout = 45 * time.Second
	}
	return nil
}

// Validate validates Telegram configuration.
func (t *TelegramConfig) Validate() error {
	if !t.Enabled {
		return nil
	}
	if t.BotToken == "" {
		return fmt.Errorf("bot_token is required when telegram is enabled")
	}
	if t.ChatID == 0 {
		return fmt.Errorf("chat_id is required when telegram is enabled")
	}
	return nil
}
