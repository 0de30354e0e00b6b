// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/machinelog/config.yaml",
	"/etc/machinelog/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Driver:       "duckdb",
			Path:         "/data/machinelog.duckdb",
			MaxMemory:    "1GB",
			MaxOpenConns: 0, // driver default
			PingTimeout:  5 * time.Second,
			Seed:         false,
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			SessionTimeout:    24 * time.Hour,
			SessionStore:      "badger",
			SessionStorePath:  "/data/sessions",
			SessionCookieName: "machinelog_session",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			LoginRateLimit:    10,
			CORSOrigins:       []string{"*"},
			TrustedProxies:    []string{},
			Casbin: CasbinConfig{
				DefaultRole: "user",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Storage: StorageConfig{
			MinIO: MinIOConfig{
				Endpoint: "localhost:9000",
				Bucket:   "pdf",
				Region:   "us-east-1",
			},
			ImageKit: ImageKitConfig{
				UploadURL: "https://upload.imagekit.io/api/v1/files/upload",
				APIURL:    "https://api.imagekit.io/v1",
				Folder:    "/machine-records",
				RateLimit: 5,
			},
			Drive: DriveConfig{
				RedirectURL: "http://localhost:8080/api/v1/oauth2/callback",
				Scopes:      []string{"https://www.googleapis.com/auth/drive.file"},
			},
		},
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			BufferSize:      1000,
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional YAML file and
// environment variables, in that order, then validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// HTTP_PORT -> server.port, MINIO_ENDPOINT -> storage.minio.endpoint
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, preferring
// CONFIG_PATH, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths are parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
	"storage.drive.scopes",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings; YAML lists pass through.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// The MinIO, ImageKit and Google names match the variables the web frontend
// already uses, so one .env file serves both.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// Database
	"db_driver":         "database.driver",
	"db_path":           "database.path",
	"duckdb_path":       "database.path",
	"database_url":      "database.dsn",
	"db_dsn":            "database.dsn",
	"duckdb_max_memory": "database.max_memory",
	"db_max_open_conns": "database.max_open_conns",
	"db_ping_timeout":   "database.ping_timeout",
	"seed_data":         "database.seed",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"session_timeout":     "security.session_timeout",
	"session_store":       "security.session_store",
	"session_store_path":  "security.session_store_path",
	"session_cookie_name": "security.session_cookie_name",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"login_rate_limit":    "security.login_rate_limit",
	"cors_origins":        "security.cors_origins",
	"trusted_proxies":     "security.trusted_proxies",
	"casbin_model_path":   "security.casbin.model_path",
	"casbin_policy_path":  "security.casbin.policy_path",
	"casbin_default_role": "security.casbin.default_role",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// MinIO
	"minio_endpoint":   "storage.minio.endpoint",
	"minio_access_key": "storage.minio.access_key",
	"minio_secret_key": "storage.minio.secret_key",
	"minio_use_ssl":    "storage.minio.use_ssl",
	"minio_bucket":     "storage.minio.bucket",
	"minio_region":     "storage.minio.region",

	// ImageKit
	"imagekit_public_key":      "storage.imagekit.public_key",
	"next_public_public_key":   "storage.imagekit.public_key",
	"imagekit_private_key":     "storage.imagekit.private_key",
	"imagekit_url_endpoint":    "storage.imagekit.url_endpoint",
	"next_public_url_endpoint": "storage.imagekit.url_endpoint",
	"imagekit_upload_url":      "storage.imagekit.upload_url",
	"imagekit_api_url":         "storage.imagekit.api_url",
	"imagekit_folder":          "storage.imagekit.folder",
	"imagekit_rate_limit":      "storage.imagekit.rate_limit",

	// Google Drive
	"google_client_id":     "storage.drive.client_id",
	"google_client_secret": "storage.drive.client_secret",
	"redirect_uri":         "storage.drive.redirect_url",
	"google_redirect_url":  "storage.drive.redirect_url",
	"google_drive_scopes":  "storage.drive.scopes",

	// Circuit breaker
	"breaker_max_requests":      "breaker.max_requests",
	"breaker_interval":          "breaker.interval",
	"breaker_timeout":           "breaker.timeout",
	"breaker_failure_threshold": "breaker.failure_threshold",

	// Audit trail
	"audit_enabled":          "audit.enabled",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_buffer_size":      "audit.buffer_size",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so unrelated environment
// does not leak into the configuration.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DB_DRIVER -> database.driver
//   - MINIO_ENDPOINT -> storage.minio.endpoint
//   - GOOGLE_CLIENT_ID -> storage.drive.client_id
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
