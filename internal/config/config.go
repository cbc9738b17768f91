package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Session backends.
const (
	SessionsMemory = "memory"
	SessionsRedis  = "redis"
)

// Config holds all service configuration. Values come from defaults, then an
// optional YAML file, then environment variables.
type Config struct {
	Port            string        `mapstructure:"port"`
	StorageDriver   string        `mapstructure:"storage_driver"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	PostgresDSN     string        `mapstructure:"postgres_dsn"`
	MongoURI        string        `mapstructure:"mongo_uri"`
	MongoDB         string        `mapstructure:"mongo_db"`
	SessionBackend  string        `mapstructure:"session_backend"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	SessionSecret   string        `mapstructure:"session_secret"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	MinioEndpoint   string        `mapstructure:"minio_endpoint"`
	MinioAccessKey  string        `mapstructure:"minio_access_key"`
	MinioSecretKey  string        `mapstructure:"minio_secret_key"`
	MinioBucket     string        `mapstructure:"minio_bucket"`
	MinioUseSSL     bool          `mapstructure:"minio_use_ssl"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	OpenAIModel     string        `mapstructure:"openai_model"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	LogLevel        string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"port":             "8080",
	"storage_driver":   DriverSQLite,
	"sqlite_path":      "data/app.db",
	"postgres_dsn":     "",
	"mongo_uri":        "",
	"mongo_db":         "skillpath",
	"session_backend":  SessionsMemory,
	"session_ttl":      "24h",
	"session_secret":   "dev-session-secret-change-me",
	"redis_addr":       "redis:6379",
	"redis_password":   "",
	"minio_endpoint":   "",
	"minio_access_key": "",
	"minio_secret_key": "",
	"minio_bucket":     "learning-paths",
	"minio_use_ssl":    false,
	"openai_api_key":   "",
	"openai_base_url":  "https://api.openai.com/v1",
	"openai_model":     "gpt-4o",
	"generate_timeout": "2m",
	"allowed_origins":  []string{"http://localhost:5173", "http://localhost:3000"},
	"log_level":        "info",
}

// Load reads configuration. The YAML file is taken from CONFIG_FILE, else
// ./config.yaml if present; a missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the selected backends have what they need.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: sqlite_path is required for storage driver %q", c.StorageDriver)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: postgres_dsn is required for storage driver %q", c.StorageDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("config: mongo_uri is required for storage driver %q", c.StorageDriver)
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q (must be memory, sqlite, postgres, or mongo)", c.StorageDriver)
	}

	switch c.SessionBackend {
	case SessionsMemory:
	case SessionsRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis_addr is required for session backend %q", c.SessionBackend)
		}
	default:
		return fmt.Errorf("config: unknown session backend %q (must be memory or redis)", c.SessionBackend)
	}

	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = 2 * time.Minute
	}
	c.OpenAIBaseURL = strings.TrimRight(c.OpenAIBaseURL, "/")
	return nil
}

// ArchiveEnabled reports whether exported paths are mirrored to MinIO.
func (c *Config) ArchiveEnabled() bool {
	return c.MinioEndpoint != ""
}
