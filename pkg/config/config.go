package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Catalog sources
const (
	CatalogSourcePostgres  = "postgres"
	CatalogSourceTypesense = "typesense"
	CatalogSourceStatic    = "static"
)

// Config holds all application configuration
type Config struct {
	Env         string            `koanf:"env"`
	Log         LogConfig         `koanf:"log"`
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Redis       RedisConfig       `koanf:"redis"`
	Typesense   TypesenseConfig   `koanf:"typesense"`
	Geolocation GeolocationConfig `koanf:"geolocation"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Search      SearchConfig      `koanf:"search"`
	OTEL        OTELConfig        `koanf:"otel"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `koanf:"level"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `koanf:"host"`
	Port           int      `koanf:"port"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Database string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string `koanf:"url"`
	APIKey string `koanf:"api_key"`
}

// GeolocationConfig holds geolocation provider configuration
type GeolocationConfig struct {
	Provider string `koanf:"provider"`
	APIKey   string `koanf:"api_key"`
	Region   string `koanf:"region"`
}

// CatalogConfig selects where provider records are read from
type CatalogConfig struct {
	Source       string `koanf:"source"`
	StaticPath   string `koanf:"static_path"`
	TaxonomyPath string `koanf:"taxonomy_path"`
}

// SearchConfig holds HTTP-level search limits
type SearchConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `koanf:"service_name"`
	ServiceVersion string `koanf:"service_version"`
	Endpoint       string `koanf:"endpoint"`
	Enabled        bool   `koanf:"enabled"`
}

// envKeys maps the flat environment variable names to configuration keys.
var envKeys = map[string]string{
	"ENV":                  "env",
	"LOG_LEVEL":            "log.level",
	"SERVER_HOST":          "server.host",
	"SERVER_PORT":          "server.port",
	"DB_HOST":              "database.host",
	"DB_PORT":              "database.port",
	"DB_USER":              "database.user",
	"DB_PASSWORD":          "database.password",
	"DB_NAME":              "database.name",
	"DB_SSLMODE":           "database.sslmode",
	"REDIS_ENABLED":        "redis.enabled",
	"REDIS_HOST":           "redis.host",
	"REDIS_PORT":           "redis.port",
	"REDIS_PASSWORD":       "redis.password",
	"REDIS_DB":             "redis.db",
	"TYPESENSE_URL":        "typesense.url",
	"TYPESENSE_API_KEY":    "typesense.api_key",
	"GEOLOCATION_PROVIDER": "geolocation.provider",
	"GEOLOCATION_API_KEY":  "geolocation.api_key",
	"GEOLOCATION_REGION":   "geolocation.region",
	"CATALOG_SOURCE":       "catalog.source",
	"CATALOG_STATIC_PATH":  "catalog.static_path",
	"TAXONOMY_PATH":        "catalog.taxonomy_path",
	"SEARCH_DEFAULT_LIMIT": "search.default_limit",
	"SEARCH_MAX_LIMIT":     "search.max_limit",
	"OTEL_SERVICE_NAME":    "otel.service_name",
	"OTEL_SERVICE_VERSION": "otel.service_version",
	"OTEL_ENDPOINT":        "otel.endpoint",
	"OTEL_ENABLED":         "otel.enabled",
}

// Defaults returns the configuration used when nothing overrides it
func Defaults() *Config {
	return &Config{
		Env: "production",
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "healthcare_commons",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    6379,
		},
		Typesense: TypesenseConfig{
			URL:    "http://localhost:8108",
			APIKey: "xyz",
		},
		Geolocation: GeolocationConfig{
			Provider: "mock",
			Region:   "in",
		},
		Catalog: CatalogConfig{
			Source: CatalogSourcePostgres,
		},
		Search: SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     100,
		},
		OTEL: OTELConfig{
			ServiceName:    "healthcare-commons",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load builds the configuration by layering defaults, an optional YAML file
// named by CONFIG_FILE, and environment variables (highest precedence).
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("", ".", func(s string) string {
		return envKeys[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		if err := k.Set("server.allowed_origins", splitList(origins)); err != nil {
			return nil, fmt.Errorf("failed to set allowed origins: %w", err)
		}
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the application relies on
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case CatalogSourcePostgres, CatalogSourceTypesense:
	case CatalogSourceStatic:
		if c.Catalog.StaticPath == "" {
			return fmt.Errorf("catalog.static_path is required when catalog.source is %q", CatalogSourceStatic)
		}
	default:
		return fmt.Errorf("unknown catalog.source %q", c.Catalog.Source)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxLimit < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
