package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"        validate:"required"`
	Database      DatabaseConfig      `mapstructure:"database"      validate:"required"`
	Auth          AuthConfig          `mapstructure:"auth"          validate:"required"`
	Notifications NotificationsConfig `mapstructure:"notifications" validate:"required"`
	Discover      DiscoverConfig      `mapstructure:"discover"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
// The memory driver keeps all state in process and needs no URL.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"            validate:"required,oneof=postgres memory"`
	URL             string        `mapstructure:"url"               validate:"required_if=Driver postgres,omitempty,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
	BCryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// NotificationsConfig controls asynchronous notification delivery.
// Webhook delivery is disabled when WebhookURL is empty.
type NotificationsConfig struct {
	QueueSize      int           `mapstructure:"queue_size"      validate:"required,gt=0"`
	WorkerCount    int           `mapstructure:"worker_count"    validate:"required,gt=0,lte=64"`
	WebhookURL     string        `mapstructure:"webhook_url"     validate:"omitempty,http_url"`
	WebhookTimeout time.Duration `mapstructure:"webhook_timeout" validate:"gt=0"`
	WebhookRetries int           `mapstructure:"webhook_retries" validate:"gte=0,lte=10"`
}

// DiscoverConfig bounds the page sizes of discovery listings.
type DiscoverConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size" validate:"required,gt=0,ltefield=MaxPageSize"`
	MaxPageSize     int `mapstructure:"max_page_size"     validate:"required,gt=0,lte=100"`
}
