// Package config provides configuration management for the tracker.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	RabbitMQ RabbitMQConfig
	Logging  LoggingConfig
	Database DatabaseConfig
	Server   ServerConfig
	Scraper  ScraperConfig
	Tracker  TrackerConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// RabbitMQConfig contains the optional report publisher configuration.
// An empty Host disables publishing.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Host       string
	User       string
	Password   string
	Exchange   string
	Queue      string
	RoutingKey string
	Port       int
}

// ScraperConfig contains settings for the external yt-dlp invocation.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ScraperConfig struct {
	PythonPath     string
	MaxVideos      int
	AttemptTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
}

// TrackerConfig contains scheduling and write-batching settings.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type TrackerConfig struct {
	CycleInterval time.Duration
	AccountDelay  time.Duration
	BatchSize     int
	GrowthLimit   int
	TriggerKey    string
	// UpdateLastScrapedOnFailure controls whether an account's bookkeeping
	// timestamp advances even when its fetch failed this cycle.
	UpdateLastScrapedOnFailure bool
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "koc_tracker")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// RabbitMQ (publisher disabled unless a host is configured)
	viper.SetDefault("rabbitmq.host", "")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "tracker.reports")
	viper.SetDefault("rabbitmq.queue", "tracker.reports.growth")
	viper.SetDefault("rabbitmq.routingkey", "cycle.completed")

	// Scraper
	viper.SetDefault("scraper.pythonpath", "python")
	viper.SetDefault("scraper.maxvideos", 120)
	viper.SetDefault("scraper.attempttimeout", 180*time.Second)
	viper.SetDefault("scraper.retryattempts", 3)
	viper.SetDefault("scraper.retrydelay", 8*time.Second)

	// Tracker
	viper.SetDefault("tracker.cycleinterval", 1*time.Hour)
	viper.SetDefault("tracker.accountdelay", 5*time.Second)
	viper.SetDefault("tracker.batchsize", 400)
	viper.SetDefault("tracker.growthlimit", 10)
	viper.SetDefault("tracker.triggerkey", "")
	viper.SetDefault("tracker.updatelastscrapedonfailure", false)

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
