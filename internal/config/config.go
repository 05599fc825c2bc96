package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Log      LogConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Coupon   CouponConfig
	Kafka    KafkaConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
	BodyLimit       int    `envconfig:"SERVER_BODY_LIMIT" default:"1048576"`
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name        string `envconfig:"DB_NAME" default:"storefront"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries  int    `envconfig:"DB_CONNECT_RETRIES" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AuthConfig holds access token verification settings.
type AuthConfig struct {
	JWTSecret  string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"` // CHANGE IN PRODUCTION
	CookieName string `envconfig:"AUTH_COOKIE_NAME" default:"access_token"`
}

// CheckoutConfig holds settings for the order placement transaction.
type CheckoutConfig struct {
	LockTimeoutMS int `envconfig:"CHECKOUT_LOCK_TIMEOUT_MS" default:"5000"`
}

// LockTimeout returns the row lock wait bound for checkout and every other row-locking transaction.
func (c CheckoutConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// CouponConfig holds settings for the expired coupon sweeper.
type CouponConfig struct {
	SweepInterval time.Duration `envconfig:"COUPON_SWEEP_INTERVAL" default:"1h"` // 0 disables
}

// KafkaConfig holds settings for the outbox relay.
type KafkaConfig struct {
	Brokers       string        `envconfig:"KAFKA_BROKERS" default:""`
	Topic         string        `envconfig:"KAFKA_TOPIC" default:"storefront.orders"`
	RelayInterval time.Duration `envconfig:"OUTBOX_RELAY_INTERVAL" default:"2s"`
	BatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
}

// BrokerList splits the comma separated broker list, dropping blanks.
func (c KafkaConfig) BrokerList() []string {
	brokers := []string{}
	for _, b := range strings.Split(c.Brokers, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Enabled reports whether at least one broker is configured.
func (c KafkaConfig) Enabled() bool {
	return len(c.BrokerList()) > 0
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
