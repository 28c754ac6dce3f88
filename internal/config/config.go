package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Checkout CheckoutConfig
	Gateway  GatewayConfig
	Redis    RedisConfig
	S3       S3Config
	Sweep    SweepConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string `envconfig:"DB_HOST" default:"localhost"`
	Port            int    `envconfig:"DB_PORT" default:"5432"`
	User            string `envconfig:"DB_USER" default:"postgres"`
	Password        string `envconfig:"DB_PASSWORD"`
	Database        string `envconfig:"DB_NAME" default:"marketplace"`
	SSLMode         string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConnections  int    `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int    `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime int    `envconfig:"DB_MAX_CONN_LIFETIME" default:"300"` // seconds
	AutoMigrate     bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds bearer token verification settings. Tokens are issued elsewhere.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	JWTIssuer string `envconfig:"JWT_ISSUER"`
}

// CheckoutConfig holds the money rules applied at checkout. Amounts are minor units.
type CheckoutConfig struct {
	FreeShippingThreshold int64         `envconfig:"CHECKOUT_FREE_SHIPPING_THRESHOLD" default:"50000"`
	ShippingCharge        int64         `envconfig:"CHECKOUT_SHIPPING_CHARGE" default:"4000"`
	PlatformFee           int64         `envconfig:"CHECKOUT_PLATFORM_FEE" default:"1000"`
	SellerCommissionBPS   int64         `envconfig:"CHECKOUT_SELLER_COMMISSION_BPS" default:"500"`
	ReturnWindow          time.Duration `envconfig:"CHECKOUT_RETURN_WINDOW" default:"168h"`
	GatewayTimeout        time.Duration `envconfig:"CHECKOUT_GATEWAY_TIMEOUT" default:"10s"`
	CouponSingleUse       bool          `envconfig:"COUPON_ENFORCE_SINGLE_USE" default:"false"`
}

// GatewayConfig holds payment gateway adapter settings.
type GatewayConfig struct {
	BaseURL   string `envconfig:"GATEWAY_BASE_URL" default:"https://api.razorpay.com"`
	KeyID     string `envconfig:"GATEWAY_KEY_ID"`
	KeySecret string `envconfig:"GATEWAY_KEY_SECRET"`
	Currency  string `envconfig:"GATEWAY_CURRENCY" default:"INR"`
}

// RedisConfig holds the optional Redis connection used for the sweep lock.
type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Address  string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// S3Config holds AWS S3 configuration for coupon import files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"coupons/"` // Path prefix within bucket
}

// SweepConfig holds the coupon expiry sweep schedule.
type SweepConfig struct {
	Enabled  bool          `envconfig:"SWEEP_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"SWEEP_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"SWEEP_LOCK_TTL" default:"1h"`
	LockKey  string        `envconfig:"SWEEP_LOCK_KEY" default:"marketplace:sweep:coupons"`
}

// Load loads configuration from environment variables, reading a .env file first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.Checkout.FreeShippingThreshold < 0 || c.Checkout.ShippingCharge < 0 || c.Checkout.PlatformFee < 0 {
		return fmt.Errorf("checkout amounts cannot be negative")
	}

	if c.Checkout.SellerCommissionBPS < 0 || c.Checkout.SellerCommissionBPS > 10000 {
		return fmt.Errorf("invalid seller commission: %d bps (must be 0-10000)", c.Checkout.SellerCommissionBPS)
	}

	if c.Checkout.ReturnWindow <= 0 {
		return fmt.Errorf("return window must be positive")
	}

	if c.Checkout.GatewayTimeout <= 0 {
		return fmt.Errorf("gateway timeout must be positive")
	}

	if c.Gateway.KeySecret == "" {
		return fmt.Errorf("gateway key secret is required")
	}

	if c.Redis.Enabled && c.Redis.Address == "" {
		return fmt.Errorf("redis address is required when redis is enabled")
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Sweep.Enabled && c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
