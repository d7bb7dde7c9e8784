// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	Port                     string `mapstructure:"PORT"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBReadHost               string `mapstructure:"DB_READ_HOST"`
	DBReadPort               string `mapstructure:"DB_READ_PORT"`
	DBReadUser               string `mapstructure:"DB_READ_USER"`
	DBReadPassword           string `mapstructure:"DB_READ_PASSWORD"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	// DBAutoMigrateAllowDestructive gates DB_SCHEMA_MODE=auto in prod-like
	// environments, where AutoMigrate may drop or rewrite columns.
	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	RedisURL             string `mapstructure:"REDIS_URL"`
	AllowedOrigins       string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags         string `mapstructure:"FEATURE_FLAGS"`
	Env                  string `mapstructure:"APP_ENV"`
	ImageUploadDir       string `mapstructure:"IMAGE_UPLOAD_DIR"`
	ImageMaxUploadSizeMB int    `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`

	// Development-only root admin bootstrap. Ignored outside APP_ENV=development.
	DevBootstrapRoot        bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername         string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail            string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword         string `mapstructure:"DEV_ROOT_PASSWORD"`
	DevRootForceCredentials bool   `mapstructure:"DEV_ROOT_FORCE_CREDENTIALS"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingOTLPEndpoint string  `mapstructure:"TRACING_OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// defaults are the development values. Profile files and environment
// variables override them.
var defaults = map[string]any{
	"PORT":        "8375",
	"DB_HOST":     "localhost",
	"DB_PORT":     "5432",
	"DB_USER":     "user",
	"DB_PASSWORD": "password",
	"DB_NAME":     "blogicum",
	"DB_SSLMODE":  "disable",

	"DB_READ_HOST":     "",
	"DB_READ_PORT":     "5432",
	"DB_READ_USER":     "user",
	"DB_READ_PASSWORD": "password",

	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                5,
	"DB_CONN_MAX_LIFETIME_MINUTES":     5,
	"DB_SCHEMA_MODE":                   "",
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,

	"REDIS_URL":       "localhost:6379",
	"JWT_SECRET":      "your-secret-key-change-in-production",
	"ALLOWED_ORIGINS": "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173",
	"FEATURE_FLAGS":   "",
	"APP_ENV":         "development",

	"DEV_BOOTSTRAP_ROOT":         false,
	"DEV_ROOT_USERNAME":          "",
	"DEV_ROOT_EMAIL":             "",
	"DEV_ROOT_PASSWORD":          "",
	"DEV_ROOT_FORCE_CREDENTIALS": false,

	"IMAGE_UPLOAD_DIR":         "uploads",
	"IMAGE_MAX_UPLOAD_SIZE_MB": 10,

	"TRACING_ENABLED":       false,
	"TRACING_EXPORTER":      "stdout",
	"TRACING_OTLP_ENDPOINT": "",
	"TRACING_SAMPLER_RATIO": 1.0,
}

// LoadConfig reads config.yml, merges the APP_ENV profile file on top when a
// non-development profile is active, and lets environment variables override
// both.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; a missing one means env-only config.
	_ = viper.ReadInConfig()

	if err := mergeProfile(activeEnv()); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.DBSSLMode = strings.ToLower(strings.TrimSpace(cfg.DBSSLMode))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func activeEnv() string {
	if env := viper.GetString("APP_ENV"); env != "" {
		return env
	}
	return "development"
}

// mergeProfile layers config.<env>.yml over the base file. Every profile
// other than development must ship its file.
func mergeProfile(env string) error {
	if env == "development" {
		return nil
	}
	viper.SetConfigName("config." + env)
	if err := viper.MergeInConfig(); err != nil {
		return fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
	}
	log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	return nil
}

// IsProduction reports whether a production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures required values are present and refuses insecure
// production setups.
func (c *Config) Validate() error {
	switch {
	case c.Port == "":
		return errors.New("PORT is required")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is required")
	case c.ImageMaxUploadSizeMB <= 0:
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	case c.DBConnMaxLifetimeMinutes <= 0:
		return errors.New("DB_CONN_MAX_LIFETIME_MINUTES must be positive")
	}

	if c.IsProduction() {
		return c.validateHardening()
	}

	if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}
	return nil
}

func (c *Config) validateHardening() error {
	if c.JWTSecret == "your-secret-key-change-in-production" {
		return errors.New("JWT_SECRET must be changed from the default value in production")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters in production")
	}
	if c.DBPassword == "password" || c.DBPassword == "" {
		return errors.New("a strong DB_PASSWORD is required in production")
	}
	if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
		return errors.New("DB_SSLMODE must enable SSL for database connections in production")
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required in production")
	}
	if c.AllowedOrigins == "*" {
		log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
	}
	return nil
}
