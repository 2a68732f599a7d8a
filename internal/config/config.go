package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Data sources the mind map can be built from.
const (
	DataSourceAPI      = "api"
	DataSourcePostgres = "postgres"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DataSource  string `mapstructure:"DATA_SOURCE"`

	BackendURL     string        `mapstructure:"BACKEND_URL"`
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`
	DBMaxConns int    `mapstructure:"DB_MAX_CONNS"`

	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`
	EventsEnabled bool   `mapstructure:"EVENTS_ENABLED"`

	AuthIssuer      string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL     string `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience    string `mapstructure:"AUTH_AUD"`
	PermissionsFile string `mapstructure:"PERMISSIONS_FILE"`

	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	OTLPEndpoint     string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName      string        `mapstructure:"OTEL_SERVICE_NAME"`
	ServiceNamespace string        `mapstructure:"OTEL_SERVICE_NAMESPACE"`
	ServiceVersion   string        `mapstructure:"OTEL_SERVICE_VERSION"`
	TracesSampler    string        `mapstructure:"OTEL_TRACES_SAMPLER"`
	MetricsInterval  time.Duration `mapstructure:"OTEL_METRICS_EXPORT_INTERVAL"`
}

var keys = []string{
	"PORT", "ENVIRONMENT", "LOG_LEVEL", "DATA_SOURCE",
	"BACKEND_URL", "BACKEND_TIMEOUT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_MAX_CONNS",
	"RABBITMQ_URL", "EVENTS_ENABLED",
	"AUTH_ISSUER", "AUTH_JWKS_URL", "AUTH_AUD", "PERMISSIONS_FILE",
	"ALLOWED_ORIGINS",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME", "OTEL_SERVICE_NAMESPACE",
	"OTEL_SERVICE_VERSION", "OTEL_TRACES_SAMPLER", "OTEL_METRICS_EXPORT_INTERVAL",
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	return load(".env")
}

func load(envFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("DATA_SOURCE", DataSourceAPI)
	v.SetDefault("BACKEND_URL", "http://localhost:8000/api")
	v.SetDefault("BACKEND_TIMEOUT", "10s")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("EVENTS_ENABLED", true)
	v.SetDefault("PERMISSIONS_FILE", "permissions.yml")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	v.SetDefault("OTEL_SERVICE_NAME", "mindmap-service")
	v.SetDefault("OTEL_SERVICE_NAMESPACE", "wailsalutem")
	v.SetDefault("OTEL_SERVICE_VERSION", "1.0.0")
	v.SetDefault("OTEL_TRACES_SAMPLER", "always_on")
	v.SetDefault("OTEL_METRICS_EXPORT_INTERVAL", "30s")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range keys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.AllowedOrigins = splitList(strings.Join(cfg.AllowedOrigins, ","))
	cfg.DataSource = strings.ToLower(strings.TrimSpace(cfg.DataSource))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected data source is fully configured.
func (c *Config) Validate() error {
	switch c.DataSource {
	case DataSourceAPI:
		if c.BackendURL == "" {
			return fmt.Errorf("BACKEND_URL is required when DATA_SOURCE is %q", DataSourceAPI)
		}
		if c.BackendTimeout <= 0 {
			return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
		}
	case DataSourcePostgres:
		if c.DBHost == "" || c.DBUser == "" || c.DBPassword == "" || c.DBName == "" {
			return fmt.Errorf("DB_HOST, DB_USER, DB_PASSWORD and DB_NAME are required when DATA_SOURCE is %q", DataSourcePostgres)
		}
	default:
		return fmt.Errorf("DATA_SOURCE must be %q or %q, got %q", DataSourceAPI, DataSourcePostgres, c.DataSource)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// UsesDatabase reports whether a PostgreSQL connection is needed.
func (c *Config) UsesDatabase() bool {
	return c.DataSource == DataSourcePostgres
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
