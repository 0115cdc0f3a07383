package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	SnapshotDriverFile   = "file"
	SnapshotDriverSQLite = "sqlite"
)

type Config struct {
	Server        ServerConfig
	Snapshot      SnapshotConfig
	Storage       StorageConfig
	Auth          AuthConfig
	Registry      RegistryConfig
	Observability ObservabilityConfig
	IsProduction  bool
}

type ServerConfig struct {
	BindAddress    string
	Port           string
	AllowOrigins   string
	TrustedProxies []string
}

type SnapshotConfig struct {
	// Driver selects the blob store the registry snapshot is written to.
	Driver string
	Path   string
}

type StorageConfig struct {
	// Path is the directory file payload blobs are written under.
	Path string
}

type AuthConfig struct {
	JWTSecret            string
	SessionDurationHours int
	// DemoEmail is the single account the placeholder credential policy
	// recognizes. Any non-empty credential is accepted for it.
	DemoEmail string
	DemoName  string
	DemoAdmin bool
}

type RegistryConfig struct {
	// DefaultStorageLimit is the byte quota assigned to new accounts.
	DefaultStorageLimit int64
	// MaxUploadSize caps a single upload in bytes; zero means no cap beyond
	// the storage quota.
	MaxUploadSize int64
	// ActivityLogSize bounds the in-memory action history.
	ActivityLogSize int
	// MaintenanceIntervalMinutes controls how often expired share links are
	// swept and the snapshot is flushed.
	MaintenanceIntervalMinutes int
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsToken   string
}

func Load() *Config {
	loadDotEnvIfPresent()

	isProd := getEnv("ENVIRONMENT", "development") == "production"
	defaultSecret := ""
	if !isProd {
		defaultSecret = "dev-secret-change-in-production"
	}
	defaultBindAddress := "0.0.0.0"
	if isProd {
		// In production we default to loopback and rely on a reverse proxy.
		defaultBindAddress = "127.0.0.1"
	}

	driver := strings.ToLower(strings.TrimSpace(getEnv("SNAPSHOT_DRIVER", SnapshotDriverSQLite)))
	defaultSnapshotPath := "./storage/yukifiles.db"
	if driver == SnapshotDriverFile {
		defaultSnapshotPath = "./storage/snapshot.json"
	}

	return &Config{
		IsProduction: isProd,
		Server: ServerConfig{
			BindAddress:    getEnv("SERVER_BIND_ADDRESS", defaultBindAddress),
			Port:           getEnv("SERVER_PORT", "8080"),
			AllowOrigins:   getEnv("ALLOW_ORIGINS", "http://localhost:5173"),
			TrustedProxies: splitCSV(getEnv("TRUSTED_PROXIES", "127.0.0.1,::1")),
		},
		Snapshot: SnapshotConfig{
			Driver: driver,
			Path:   getEnv("SNAPSHOT_PATH", defaultSnapshotPath),
		},
		Storage: StorageConfig{
			Path: getEnv("STORAGE_PATH", "./storage/files"),
		},
		Auth: AuthConfig{
			JWTSecret:            strings.TrimSpace(getEnv("JWT_SECRET", defaultSecret)),
			SessionDurationHours: getEnvInt("SESSION_DURATION_HOURS", 24),
			DemoEmail:            getEnv("DEMO_EMAIL", "demo@yukifiles.com"),
			DemoName:             getEnv("DEMO_NAME", "Demo User"),
			DemoAdmin:            getEnvBool("DEMO_ADMIN", true),
		},
		Registry: RegistryConfig{
			DefaultStorageLimit:        getEnvInt64("DEFAULT_STORAGE_LIMIT_BYTES", 100*1024*1024),
			MaxUploadSize:              getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 50*1024*1024),
			ActivityLogSize:            getEnvInt("ACTIVITY_LOG_SIZE", 1000),
			MaintenanceIntervalMinutes: getEnvInt("MAINTENANCE_INTERVAL_MINUTES", 15),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvBool("METRICS_ENABLED", !isProd),
			MetricsToken:   strings.TrimSpace(getEnv("METRICS_TOKEN", "")),
		},
	}
}

// Validate checks that the configuration is usable for the current
// environment. Production enforces stricter requirements.
func (c *Config) Validate() error {
	if c.IsProduction {
		if c.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET environment variable is required in production")
		}
		if len(c.Auth.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.Server.AllowOrigins == "http://localhost:5173" {
			return errors.New("ALLOW_ORIGINS must be configured for production (localhost not allowed)")
		}
		if c.Server.AllowOrigins == "*" {
			return errors.New("ALLOW_ORIGINS must not be wildcard (*) in production")
		}
		if c.Observability.MetricsEnabled && c.Observability.MetricsToken == "" {
			return errors.New("METRICS_TOKEN is required in production when METRICS_ENABLED=true")
		}
	}

	if strings.TrimSpace(c.Server.BindAddress) == "" {
		return errors.New("SERVER_BIND_ADDRESS must not be empty")
	}

	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.New("SERVER_PORT must be a valid port number (1-65535)")
	}

	switch c.Snapshot.Driver {
	case SnapshotDriverFile, SnapshotDriverSQLite:
	default:
		return fmt.Errorf("SNAPSHOT_DRIVER must be %q or %q", SnapshotDriverFile, SnapshotDriverSQLite)
	}

	if strings.TrimSpace(c.Auth.DemoEmail) == "" {
		return errors.New("DEMO_EMAIL must not be empty")
	}
	if c.Registry.DefaultStorageLimit <= 0 {
		return errors.New("DEFAULT_STORAGE_LIMIT_BYTES must be positive")
	}
	if c.Registry.ActivityLogSize <= 0 {
		return errors.New("ACTIVITY_LOG_SIZE must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func splitCSV(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	parts := strings.Split(trimmed, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		v := strings.TrimSpace(part)
		if v == "" {
			continue
		}
		out = append(out, v)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

func loadDotEnvIfPresent() {
	// #nosec G304 -- path is the hardcoded application dotenv location.
	content, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, rawLine := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
