// Package config loads process configuration from the environment, falling
// back to .env / .env.local files in development.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"discogsography/pkg/logger"
)

type Config struct {
	GeneralVersion string `mapstructure:"GENERAL_VERSION"`
	Environment    string `mapstructure:"ENVIRONMENT"`
	ServerPort     int    `mapstructure:"SERVER_PORT"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     int    `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDatabase string `mapstructure:"POSTGRES_DATABASE"`

	GraphAddress  string `mapstructure:"GRAPH_ADDRESS"`
	GraphUser     string `mapstructure:"GRAPH_USER"`
	GraphPassword string `mapstructure:"GRAPH_PASSWORD"`

	AMQPURL string `mapstructure:"AMQP_URL"`

	JWTSecret    string `mapstructure:"JWT_SECRET"`
	JWTTokenTTLS int    `mapstructure:"JWT_TOKEN_TTL_SECONDS"`

	DiscogsConsumerKey    string `mapstructure:"DISCOGS_CONSUMER_KEY"`
	DiscogsConsumerSecret string `mapstructure:"DISCOGS_CONSUMER_SECRET"`
	DiscogsUserAgent      string `mapstructure:"DISCOGS_USER_AGENT"`
	DiscogsBaseURL        string `mapstructure:"DISCOGS_BASE_URL"`

	RedisURL             string `mapstructure:"REDIS_URL"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	CacheWebhookSecret   string `mapstructure:"CACHE_WEBHOOK_SECRET"`
	PeriodicCheckDays    int    `mapstructure:"PERIODIC_CHECK_DAYS"`
	SyncCooldownSeconds  int    `mapstructure:"SYNC_COOLDOWN_SECONDS"`
	MaxRedeliveries      int    `mapstructure:"MAX_REDELIVERIES"`

	SnapshotTTLDays  int `mapstructure:"SNAPSHOT_TTL_DAYS"`
	SnapshotMaxNodes int `mapstructure:"SNAPSHOT_MAX_NODES"`
}

var ConfigInstance Config

func New() (Config, error) {
	log := logger.New("config").Function("New")
	log.Info("Initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DATABASE",
		"GRAPH_ADDRESS", "GRAPH_USER", "GRAPH_PASSWORD",
		"AMQP_URL",
		"JWT_SECRET", "JWT_TOKEN_TTL_SECONDS",
		"DISCOGS_CONSUMER_KEY", "DISCOGS_CONSUMER_SECRET", "DISCOGS_USER_AGENT", "DISCOGS_BASE_URL",
		"REDIS_URL", "CORS_ALLOW_ORIGINS", "CACHE_WEBHOOK_SECRET",
		"PERIODIC_CHECK_DAYS", "SYNC_COOLDOWN_SECONDS", "MAX_REDELIVERIES",
		"SNAPSHOT_TTL_DAYS", "SNAPSHOT_MAX_NODES",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("Failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("JWT_SECRET") && viper.IsSet("AMQP_URL")

	if envVarsSet {
		log.Info("Environment variables detected, skipping file loading")
	} else {
		log.Info("Environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("Could not find .env file", "error", err)
		} else {
			log.Info("Loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("No .env.local file found", "error", err)
		} else {
			log.Info("Loaded .env.local overrides")
		}
	}

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("JWT_TOKEN_TTL_SECONDS", 1800)
	viper.SetDefault("DISCOGS_BASE_URL", "https://api.discogs.com")
	viper.SetDefault("SYNC_COOLDOWN_SECONDS", 600)
	viper.SetDefault("MAX_REDELIVERIES", 5)
	viper.SetDefault("SNAPSHOT_TTL_DAYS", 28)
	viper.SetDefault("SNAPSHOT_MAX_NODES", 100)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, log.Err("Fatal error: could not unmarshal config", err)
	}

	if err := validate(cfg, log); err != nil {
		return Config{}, err
	}

	ConfigInstance = cfg
	log.Info("Successfully initialized config", "environment", cfg.Environment)
	return cfg, nil
}

func Get() Config {
	return ConfigInstance
}

// SyncCooldown returns the configured sync trigger cooldown as a duration.
func (c Config) SyncCooldown() time.Duration {
	return time.Duration(c.SyncCooldownSeconds) * time.Second
}

// JWTTokenTTL returns the configured JWT lifetime as a duration.
func (c Config) JWTTokenTTL() time.Duration {
	return time.Duration(c.JWTTokenTTLS) * time.Second
}

func validate(cfg Config, log logger.Logger) error {
	if cfg.ServerPort <= 0 {
		return log.Err("Fatal error: invalid server port", fmt.Errorf("invalid port: %d", cfg.ServerPort), "port", cfg.ServerPort)
	}
	if cfg.JWTSecret == "" {
		return log.Err("Fatal error: missing JWT secret", fmt.Errorf("JWT_SECRET is required"))
	}
	if cfg.AMQPURL == "" {
		return log.Err("Fatal error: missing AMQP URL", fmt.Errorf("AMQP_URL is required"))
	}
	return nil
}
