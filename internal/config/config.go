package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers
const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port string `yaml:"port" env:"SERVER_PORT"`
		Mode string `yaml:"mode" env:"SERVER_MODE"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	// Retry bounds the attempts made against the store before StoreUnavailable.
	Retry struct {
		MaxAttempts     int    `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
		InitialInterval string `yaml:"initial_interval" env:"RETRY_INITIAL_INTERVAL"`
		MaxInterval     string `yaml:"max_interval" env:"RETRY_MAX_INTERVAL"`
	} `yaml:"retry"`

	JWT struct {
		Secret                string `yaml:"secret" env:"JWT_SECRET"`
		AccessTokenExpiration string `yaml:"access_token_expiration" env:"JWT_ACCESS_TOKEN_EXPIRATION"`
		Issuer                string `yaml:"issuer" env:"JWT_ISSUER"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	Storage struct {
		Driver         string `yaml:"driver" env:"STORAGE_DRIVER"`
		LocalPath      string `yaml:"local_path" env:"STORAGE_LOCAL_PATH"`
		MaxUploadBytes int64  `yaml:"max_upload_bytes" env:"STORAGE_MAX_UPLOAD_BYTES"`
		S3Bucket       string `yaml:"s3_bucket" env:"STORAGE_S3_BUCKET"`
		S3Region       string `yaml:"s3_region" env:"STORAGE_S3_REGION"`
		S3Endpoint     string `yaml:"s3_endpoint" env:"STORAGE_S3_ENDPOINT"`
		S3AccessKey    string `yaml:"s3_access_key" env:"STORAGE_S3_ACCESS_KEY"`
		S3SecretKey    string `yaml:"s3_secret_key" env:"STORAGE_S3_SECRET_KEY"`
		S3UsePathStyle bool   `yaml:"s3_use_path_style" env:"STORAGE_S3_USE_PATH_STYLE"`
	} `yaml:"storage"`

	Pagination struct {
		DefaultPageSize    int `yaml:"default_page_size" env:"PAGINATION_DEFAULT_PAGE_SIZE"`
		MaxPageSize        int `yaml:"max_page_size" env:"PAGINATION_MAX_PAGE_SIZE"`
		SubmissionPageSize int `yaml:"submission_page_size" env:"PAGINATION_SUBMISSION_PAGE_SIZE"`
	} `yaml:"pagination"`

	RateLimit struct {
		Enabled        bool   `yaml:"enabled" env:"RATE_LIMIT_ENABLED"`
		RedisAddr      string `yaml:"redis_addr" env:"RATE_LIMIT_REDIS_ADDR"`
		RedisPassword  string `yaml:"redis_password" env:"RATE_LIMIT_REDIS_PASSWORD"`
		RedisDB        int    `yaml:"redis_db" env:"RATE_LIMIT_REDIS_DB"`
		Prefix         string `yaml:"prefix" env:"RATE_LIMIT_PREFIX"`
		Capacity       int    `yaml:"capacity" env:"RATE_LIMIT_CAPACITY"`
		RefillTokens   int    `yaml:"refill_tokens" env:"RATE_LIMIT_REFILL_TOKENS"`
		RefillInterval string `yaml:"refill_interval" env:"RATE_LIMIT_REFILL_INTERVAL"`
		TTL            string `yaml:"ttl" env:"RATE_LIMIT_TTL"`
	} `yaml:"rate_limit"`

	AMQP struct {
		URL      string `yaml:"url" env:"AMQP_URL"`
		Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE"`
		// PublishTimeout bounds a single background publish.
		PublishTimeout string `yaml:"publish_timeout" env:"AMQP_PUBLISH_TIMEOUT"`
	} `yaml:"amqp"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED"`
		Path    string `yaml:"path" env:"METRICS_PATH"`
	} `yaml:"metrics"`

	// BootstrapAdmin seeds the initial admin at startup when all fields are set.
	BootstrapAdmin struct {
		Name     string `yaml:"name" env:"BOOTSTRAP_ADMIN_NAME"`
		Email    string `yaml:"email" env:"BOOTSTRAP_ADMIN_EMAIL"`
		Password string `yaml:"password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
	} `yaml:"bootstrap_admin"`
}

// LoadConfig loads configuration from defaults, a YAML file, a .env file and
// the process environment, in that order of increasing precedence.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "coursehub"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.Retry.MaxAttempts = 3
	config.Retry.InitialInterval = "100ms"
	config.Retry.MaxInterval = "2s"

	config.JWT.AccessTokenExpiration = "24h"
	config.JWT.Issuer = "coursehub"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.Storage.Driver = StorageDriverLocal
	config.Storage.LocalPath = "uploads"
	config.Storage.MaxUploadBytes = 10 << 20
	config.Storage.S3Region = "us-east-1"

	config.Pagination.DefaultPageSize = 10
	config.Pagination.MaxPageSize = 100
	config.Pagination.SubmissionPageSize = 10

	config.RateLimit.Prefix = "coursehub:rl"
	config.RateLimit.Capacity = 10
	config.RateLimit.RefillTokens = 1
	config.RateLimit.RefillInterval = "6s"
	config.RateLimit.TTL = "10m"

	config.AMQP.Exchange = "coursehub.events"
	config.AMQP.PublishTimeout = "5s"

	config.Metrics.Enabled = true
	config.Metrics.Path = "/metrics"
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenExpiration); err != nil {
		return fmt.Errorf("invalid JWT access token expiration format: %w", err)
	}

	if config.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1")
	}

	switch config.Storage.Driver {
	case StorageDriverLocal:
		if config.Storage.LocalPath == "" {
			return fmt.Errorf("storage local_path is required for the local driver")
		}
	case StorageDriverS3:
		if config.Storage.S3Bucket == "" {
			return fmt.Errorf("storage s3_bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage max_upload_bytes must be positive")
	}

	p := config.Pagination
	if p.DefaultPageSize < 1 || p.MaxPageSize < p.DefaultPageSize || p.SubmissionPageSize < 1 {
		return fmt.Errorf("invalid pagination sizes: default=%d max=%d submissions=%d",
			p.DefaultPageSize, p.MaxPageSize, p.SubmissionPageSize)
	}

	if config.RateLimit.Enabled && config.RateLimit.RedisAddr == "" {
		return fmt.Errorf("rate_limit redis_addr is required when rate limiting is enabled")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}

// HasBootstrapAdmin reports whether an initial admin is configured for seeding.
func (c *Config) HasBootstrapAdmin() bool {
	b := c.BootstrapAdmin
	return b.Email != "" && b.Password != "" && b.Name != ""
}
