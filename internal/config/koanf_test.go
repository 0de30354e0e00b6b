// Machinelog - Machine Records and PLC Alarm Tooling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/machinelog

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSecret = "k3v9Qz7mN2pL8xR4tW6yB1cF5hJ0dS3a"

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Security.SessionStore != "badger" {
		t.Errorf("Security.SessionStore = %q, want badger", cfg.Security.SessionStore)
	}
	if cfg.Security.SessionTimeout != 24*time.Hour {
		t.Errorf("Security.SessionTimeout = %v, want 24h", cfg.Security.SessionTimeout)
	}
	if cfg.Storage.MinIO.Bucket != "pdf" {
		t.Errorf("Storage.MinIO.Bucket = %q, want pdf", cfg.Storage.MinIO.Bucket)
	}
	if cfg.Storage.ImageKit.Folder != "/machine-records" {
		t.Errorf("Storage.ImageKit.Folder = %q, want /machine-records", cfg.Storage.ImageKit.Folder)
	}
	if cfg.Storage.MinIO.Configured() {
		t.Error("MinIO should not be configured without credentials")
	}
	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("Breaker.FailureThreshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"DB_DRIVER", "database.driver"},
		{"DATABASE_URL", "database.dsn"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"MINIO_ENDPOINT", "storage.minio.endpoint"},
		{"MINIO_SECRET_KEY", "storage.minio.secret_key"},
		{"IMAGEKIT_PRIVATE_KEY", "storage.imagekit.private_key"},
		{"NEXT_PUBLIC_URL_ENDPOINT", "storage.imagekit.url_endpoint"},
		{"GOOGLE_CLIENT_ID", "storage.drive.client_id"},
		{"REDIRECT_URI", "storage.drive.redirect_url"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			if got := envTransformFunc(tt.env); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

// loadIsolated runs LoadWithKoanf from an empty directory so no stray
// config.yaml is picked up.
func loadIsolated(t *testing.T) (*Config, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	return LoadWithKoanf()
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/machinelog.db")
	t.Setenv("SESSION_STORE", "memory")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("MINIO_ENDPOINT", "minio:9000")
	t.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	t.Setenv("MINIO_SECRET_KEY", "minioadmin")
	t.Setenv("BREAKER_TIMEOUT", "45s")

	cfg, err := loadIsolated(t)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/machinelog.db" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example.org" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if !cfg.Storage.MinIO.Configured() {
		t.Error("MinIO should be configured")
	}
	if cfg.Breaker.Timeout != 45*time.Second {
		t.Errorf("Breaker.Timeout = %v, want 45s", cfg.Breaker.Timeout)
	}
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "machinelog.yaml")
	yaml := `
server:
  port: 7070
database:
  driver: sqlite
  path: /var/lib/machinelog.db
  seed: true
security:
  jwt_secret: ` + testSecret + `
  session_store: memory
storage:
  imagekit:
    private_key: private_abc
    folder: /pdfs
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	// env beats file
	t.Setenv("HTTP_PORT", "7171")

	cfg, err := loadIsolated(t)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7171 {
		t.Errorf("Server.Port = %d, want 7171 from env", cfg.Server.Port)
	}
	if !cfg.Database.Seed {
		t.Error("Database.Seed should be true from file")
	}
	if cfg.Storage.ImageKit.Folder != "/pdfs" {
		t.Errorf("ImageKit.Folder = %q, want /pdfs", cfg.Storage.ImageKit.Folder)
	}
	// untouched defaults survive
	if cfg.Storage.ImageKit.UploadURL == "" {
		t.Error("ImageKit.UploadURL default lost")
	}
}

func TestLoadWithKoanf_ValidationFails(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("JWT_SECRET", "short")

	if _, err := loadIsolated(t); err == nil {
		t.Fatal("expected validation error for short JWT secret")
	}
}

func TestFindConfigFile_MissingEnvPath(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Chdir(t.TempDir())

	if got := findConfigFile(); got != "" {
		t.Errorf("findConfigFile() = %q, want empty", got)
	}
}
