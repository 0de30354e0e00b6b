// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = testSecret
	return cfg
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults with secret", func(*Config) {}, ""},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }, "DB_DRIVER"},
		{"mysql without dsn", func(c *Config) { c.Database.Driver = "mysql" }, "DATABASE_URL"},
		{"mysql with dsn", func(c *Config) {
			c.Database.Driver = "mysql"
			c.Database.DSN = "app:pw@tcp(db:3306)/machinelog"
		}, ""},
		{"sqlite without path", func(c *Config) {
			c.Database.Driver = "sqlite"
			c.Database.Path = ""
		}, "DB_PATH"},
		{"missing jwt secret", func(c *Config) { c.Security.JWTSecret = "" }, "JWT_SECRET is required"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "abc" }, "at least 32"},
		{"placeholder jwt secret", func(c *Config) {
			c.Security.JWTSecret = "CHANGEME-CHANGEME-CHANGEME-CHANGEME"
		}, "placeholder"},
		{"auth none in development", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Security.JWTSecret = ""
		}, ""},
		{"auth none in production", func(c *Config) {
			c.Security.AuthMode = "none"
			c.Server.Environment = "production"
			c.Security.CORSOrigins = []string{"https://plant.example.org"}
		}, "AUTH_MODE=none"},
		{"unknown auth mode", func(c *Config) { c.Security.AuthMode = "oidc" }, "AUTH_MODE"},
		{"wildcard cors in production", func(c *Config) { c.Server.Environment = "production" }, "CORS_ORIGINS"},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, "RATE_LIMIT_REQUESTS"},
		{"rate limit disabled skips bounds", func(c *Config) {
			c.Security.RateLimitDisabled = true
			c.Security.RateLimitReqs = 0
		}, ""},
		{"unknown session store", func(c *Config) { c.Security.SessionStore = "redis" }, "SESSION_STORE"},
		{"badger without path", func(c *Config) { c.Security.SessionStorePath = "" }, "SESSION_STORE_PATH"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"minio endpoint with scheme", func(c *Config) {
			c.Storage.MinIO.Endpoint = "http://minio:9000"
			c.Storage.MinIO.AccessKey = "a"
			c.Storage.MinIO.SecretKey = "b"
		}, "MINIO_ENDPOINT"},
		{"imagekit bad upload url", func(c *Config) {
			c.Storage.ImageKit.PrivateKey = "private_x"
			c.Storage.ImageKit.UploadURL = "ftp://upload.imagekit.io"
		}, "IMAGEKIT_UPLOAD_URL"},
		{"breaker threshold zero", func(c *Config) { c.Breaker.FailureThreshold = 0 }, "BREAKER_FAILURE_THRESHOLD"},
		{"audit retention zero", func(c *Config) { c.Audit.RetentionDays = 0 }, "AUDIT_RETENTION_DAYS"},
		{"audit disabled skips bounds", func(c *Config) {
			c.Audit.Enabled = false
			c.Audit.BufferSize = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestShouldWarnAboutCORS(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if !cfg.ShouldWarnAboutCORS() {
		t.Error("wildcard CORS with auth should warn")
	}
	cfg.Security.CORSOrigins = []string{"https://plant.example.org"}
	if cfg.ShouldWarnAboutCORS() {
		t.Error("explicit origins should not warn")
	}
}

func TestEnvironmentHelpers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		env        string
		prod, devl bool
	}{
		{"", false, true},
		{"development", false, true},
		{"DEV", false, true},
		{"staging", false, false},
		{"production", true, false},
		{"Prod", true, false},
	}
	for _, tt := range tests {
		cfg := &Config{Server: ServerConfig{Environment: tt.env}}
		if cfg.IsProduction() != tt.prod || cfg.IsDevelopment() != tt.devl {
			t.Errorf("env %q: IsProduction=%v IsDevelopment=%v", tt.env, cfg.IsProduction(), cfg.IsDevelopment())
		}
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
