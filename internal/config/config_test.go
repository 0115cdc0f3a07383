package config

import (
	"strings"
	"testing"
)

func baseProdConfig() *Config {
	return &Config{
		IsProduction: true,
		Server: ServerConfig{
			BindAddress:  "127.0.0.1",
			Port:         "8080",
			AllowOrigins: "https://files.example.com",
		},
		Snapshot: SnapshotConfig{
			Driver: SnapshotDriverSQLite,
			Path:   "./storage/yukifiles.db",
		},
		Auth: AuthConfig{
			JWTSecret: strings.Repeat("x", 32),
			DemoEmail: "demo@yukifiles.com",
		},
		Registry: RegistryConfig{
			DefaultStorageLimit: 100 * 1024 * 1024,
			ActivityLogSize:     1000,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: false,
		},
	}
}

func TestValidate_ProductionBaselinePasses(t *testing.T) {
	if err := baseProdConfig().Validate(); err != nil {
		t.Fatalf("expected config to validate, got: %v", err)
	}
}

func TestValidate_ProductionRequiresLongSecret(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Auth.JWTSecret = "short"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET validation error, got: %v", err)
	}
}

func TestValidate_ProductionRejectsLocalhostOrigins(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Server.AllowOrigins = "http://localhost:5173"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "ALLOW_ORIGINS") {
		t.Fatalf("expected ALLOW_ORIGINS validation error, got: %v", err)
	}

	cfg.Server.AllowOrigins = "*"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "wildcard") {
		t.Fatalf("expected wildcard validation error, got: %v", err)
	}
}

func TestValidate_ProductionMetricsRequireTokenWhenEnabled(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Observability.MetricsEnabled = true
	cfg.Observability.MetricsToken = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "METRICS_TOKEN") {
		t.Fatalf("expected METRICS_TOKEN validation error, got: %v", err)
	}

	cfg.Observability.MetricsToken = "metrics-secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to validate, got: %v", err)
	}
}

func TestValidate_RejectsInvalidPort(t *testing.T) {
	for _, port := range []string{"", "abc", "0", "70000"} {
		cfg := baseProdConfig()
		cfg.Server.Port = port

		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
			t.Fatalf("port %q: expected SERVER_PORT validation error, got: %v", port, err)
		}
	}
}

func TestValidate_RejectsUnknownSnapshotDriver(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Snapshot.Driver = "postgres"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SNAPSHOT_DRIVER") {
		t.Fatalf("expected SNAPSHOT_DRIVER validation error, got: %v", err)
	}
}

func TestValidate_RejectsNonPositiveLimits(t *testing.T) {
	cfg := baseProdConfig()
	cfg.Registry.DefaultStorageLimit = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero storage limit")
	}

	cfg = baseProdConfig()
	cfg.Registry.ActivityLogSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero activity log size")
	}
}

func TestLoad_SnapshotDriverDefaults(t *testing.T) {
	t.Setenv("SNAPSHOT_DRIVER", "file")

	cfg := Load()
	if cfg.Snapshot.Driver != SnapshotDriverFile {
		t.Fatalf("expected file driver, got %q", cfg.Snapshot.Driver)
	}
	if !strings.HasSuffix(cfg.Snapshot.Path, "snapshot.json") {
		t.Fatalf("expected json default path for file driver, got %q", cfg.Snapshot.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEFAULT_STORAGE_LIMIT_BYTES", "12345")
	t.Setenv("MAX_UPLOAD_SIZE_BYTES", "999")
	t.Setenv("SESSION_DURATION_HOURS", "2")

	cfg := Load()
	if cfg.Registry.DefaultStorageLimit != 12345 {
		t.Fatalf("expected storage limit override, got %d", cfg.Registry.DefaultStorageLimit)
	}
	if cfg.Registry.MaxUploadSize != 999 {
		t.Fatalf("expected max upload override, got %d", cfg.Registry.MaxUploadSize)
	}
	if cfg.Auth.SessionDurationHours != 2 {
		t.Fatalf("expected session duration override, got %d", cfg.Auth.SessionDurationHours)
	}
}
