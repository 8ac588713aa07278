// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env            string `mapstructure:"APP_ENV"`
	StoreDriver    string `mapstructure:"STORE_DRIVER"`
	StorePath      string `mapstructure:"STORE_PATH"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	StoreNamespace string `mapstructure:"STORE_NAMESPACE"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFormat      string `mapstructure:"LOG_FORMAT"`
	BcryptCost     int    `mapstructure:"BCRYPT_COST"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from .env, config files and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env != "" && env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config.%s.yml: %w", env, err)
			}
		} else {
			slog.Info("Loaded profile-specific configuration", slog.String("file", "config."+env+".yml"))
		}
	}

	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("STORE_DRIVER", DriverSQLite)
	viper.SetDefault("STORE_PATH", "cliqd.db")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("STORE_NAMESPACE", "cliqd_")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	viper.SetDefault("FEATURE_FLAGS", "demo_feed=true,demo_account=true")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and consistent.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.StorePath == "" {
			return errors.New("STORE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.TracingEnabled {
		if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
			return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
		}
		if c.TracingExporter == "otlp" && c.OTLPEndpoint == "" {
			return errors.New("OTLP_ENDPOINT is required for the otlp exporter")
		}
	}

	if c.IsProduction() {
		if c.StoreDriver == DriverMemory {
			return errors.New("the memory driver is not durable and cannot be used in production")
		}
		if c.BcryptCost < bcrypt.DefaultCost {
			slog.Warn("BCRYPT_COST is below the default in production", slog.Int("cost", c.BcryptCost))
		}
	}

	return nil
}

// IsProduction reports whether APP_ENV names a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}
