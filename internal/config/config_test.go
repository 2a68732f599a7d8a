package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DataSource != DataSourceAPI {
		t.Errorf("Expected data source %q, got %q", DataSourceAPI, cfg.DataSource)
	}
	if cfg.BackendTimeout != 10*time.Second {
		t.Errorf("Expected backend timeout 10s, got %s", cfg.BackendTimeout)
	}
	if cfg.MetricsInterval != 30*time.Second {
		t.Errorf("Expected metrics interval 30s, got %s", cfg.MetricsInterval)
	}
	if !cfg.EventsEnabled {
		t.Error("Expected events to be enabled by default")
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Unexpected allowed origins: %v", cfg.AllowedOrigins)
	}
	if cfg.UsesDatabase() {
		t.Error("Expected api data source not to use the database")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EVENTS_ENABLED", "false")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %q", cfg.Port)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("Expected backend timeout 3s, got %s", cfg.BackendTimeout)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Expected two trimmed origins, got %v", cfg.AllowedOrigins)
	}
	if cfg.EventsEnabled {
		t.Error("Expected events to be disabled")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "ENVIRONMENT=production\nDATA_SOURCE=postgres\nDB_HOST=db\nDB_USER=app\nDB_PASSWORD=secret\nDB_NAME=clinic\n"
	if err := os.WriteFile(envFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := load(envFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !cfg.UsesDatabase() {
		t.Error("Expected postgres data source")
	}
	if cfg.DBHost != "db" || cfg.DBName != "clinic" {
		t.Errorf("Unexpected database settings: host=%q name=%q", cfg.DBHost, cfg.DBName)
	}
	if !cfg.IsProduction() {
		t.Error("Expected production environment")
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"api ok", Config{DataSource: DataSourceAPI, BackendURL: "http://x", BackendTimeout: time.Second}, false},
		{"api missing url", Config{DataSource: DataSourceAPI, BackendTimeout: time.Second}, true},
		{"api zero timeout", Config{DataSource: DataSourceAPI, BackendURL: "http://x"}, true},
		{"postgres missing credentials", Config{DataSource: DataSourcePostgres, DBHost: "db"}, true},
		{"unknown source", Config{DataSource: "fhir"}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Expected error=%v, got %v", tc.wantErr, err)
			}
		})
	}
}
