// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values for every optional setting
//  2. Config File: optional config.yaml (or CONFIG_PATH)
//  3. Environment Variables: override any mapped setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Storage  StorageConfig  `koanf:"storage"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Audit    AuditConfig    `koanf:"audit"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects the SQL driver and its connection settings.
//
// Driver is one of "duckdb" (default), "sqlite" or "mysql". Path is used by
// the embedded drivers, DSN by mysql.
type DatabaseConfig struct {
	Driver       string        `koanf:"driver"`
	Path         string        `koanf:"path"`
	DSN          string        `koanf:"dsn"`
	MaxMemory    string        `koanf:"max_memory"` // duckdb only
	MaxOpenConns int           `koanf:"max_open_conns"`
	PingTimeout  time.Duration `koanf:"ping_timeout"`
	Seed         bool          `koanf:"seed"`
}

// SecurityConfig holds authentication, session and HTTP hardening settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // "jwt" or "none"
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	SessionStore      string        `koanf:"session_store"` // "memory" or "badger"
	SessionStorePath  string        `koanf:"session_store_path"`
	SessionCookieName string        `koanf:"session_cookie_name"`
	RateLimitReqs     int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	LoginRateLimit    int           `koanf:"login_rate_limit"` // attempts per minute per IP
	CORSOrigins       []string      `koanf:"cors_origins"`
	TrustedProxies    []string      `koanf:"trusted_proxies"`
	Casbin            CasbinConfig  `koanf:"casbin"`
}

// CasbinConfig points at external model/policy files. Empty paths select the
// embedded defaults.
type CasbinConfig struct {
	ModelPath   string `koanf:"model_path"`
	PolicyPath  string `koanf:"policy_path"`
	DefaultRole string `koanf:"default_role"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// StorageConfig groups the blob storage backends. A backend with empty
// credentials is reported as not configured at request time.
type StorageConfig struct {
	MinIO    MinIOConfig    `koanf:"minio"`
	ImageKit ImageKitConfig `koanf:"imagekit"`
	Drive    DriveConfig    `koanf:"drive"`
}

// MinIOConfig holds S3-compatible object store settings.
type MinIOConfig struct {
	Endpoint  string `koanf:"endpoint"` // host:port, no scheme
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
}

// Configured reports whether enough settings are present to build a client.
func (m MinIOConfig) Configured() bool {
	return m.Endpoint != "" && m.AccessKey != "" && m.SecretKey != ""
}

// ImageKitConfig holds ImageKit upload credentials.
type ImageKitConfig struct {
	PublicKey   string  `koanf:"public_key"`
	PrivateKey  string  `koanf:"private_key"`
	URLEndpoint string  `koanf:"url_endpoint"`
	UploadURL   string  `koanf:"upload_url"`
	APIURL      string  `koanf:"api_url"`
	Folder      string  `koanf:"folder"`
	RateLimit   float64 `koanf:"rate_limit"` // requests per second
}

// Configured reports whether the private key is present.
func (i ImageKitConfig) Configured() bool {
	return i.PrivateKey != ""
}

// DriveConfig holds the Google OAuth2 client used for Drive access.
type DriveConfig struct {
	ClientID     string   `koanf:"client_id"`
	ClientSecret string   `koanf:"client_secret"`
	RedirectURL  string   `koanf:"redirect_url"`
	Scopes       []string `koanf:"scopes"`
}

// Configured reports whether the OAuth2 client is usable.
func (d DriveConfig) Configured() bool {
	return d.ClientID != "" && d.ClientSecret != ""
}

// BreakerConfig tunes the circuit breaker wrapped around each blob backend.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"` // allowed in half-open state
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"` // open -> half-open
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// AuditConfig controls the persistent audit trail.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BufferSize      int           `koanf:"buffer_size"`
}

// Load reads configuration using the Koanf layering.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
