package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string            `mapstructure:"environment"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Nats        NatsConfig        `mapstructure:"nats"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Lock        LockConfig        `mapstructure:"lock"`
	Transaction TransactionConfig `mapstructure:"transaction"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
}

// RedisConfig contains the delayed-action store settings. An empty address
// selects the in-memory scheduler.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NatsConfig contains event publishing settings. An empty URL disables
// publishing.
type NatsConfig struct {
	URL string `mapstructure:"url"`
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// LockConfig contains aggregate lock protocol settings
type LockConfig struct {
	// UnlockDelay is how far in the future the safety-net unlock fires (seconds)
	UnlockDelay time.Duration `mapstructure:"unlockDelaySeconds"`
	// PollInterval is the delayed-action poller tick (seconds)
	PollInterval time.Duration `mapstructure:"pollIntervalSeconds"`
}

// TransactionConfig contains lock-acquisition retry settings
type TransactionConfig struct {
	MaxRetries     uint64        `mapstructure:"maxRetries"`
	RetryBaseDelay time.Duration `mapstructure:"retryBaseDelayMs"` // milliseconds
	RetryMaxDelay  time.Duration `mapstructure:"retryMaxDelayMs"`  // milliseconds
}
