// Package config loads server settings from an optional YAML file and the environment.
// Precedence: defaults, then the file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config is the full server configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Log         LogConfig         `yaml:"log"`
	Store       StoreConfig       `yaml:"store"`
	Auth        AuthConfig        `yaml:"auth"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Invoice     InvoiceConfig     `yaml:"invoice"`
}

type AppConfig struct {
	Port            int           `yaml:"port"`
	Env             string        `yaml:"env"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Development reports whether the server runs in development mode.
func (a AppConfig) Development() bool {
	return a.Env == "development"
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	// Database is the MongoDB database name.
	Database string `yaml:"database"`
	// PostgresURL is the pgx connection string.
	PostgresURL string `yaml:"postgres_url"`
	// MongoURL is the mgo dial URL.
	MongoURL string `yaml:"mongo_url"`
	// Timeout bounds dialing and individual store operations.
	Timeout time.Duration `yaml:"timeout"`
	// ConnectRetry is how long startup keeps retrying an unreachable store.
	ConnectRetry time.Duration `yaml:"connect_retry"`
}

type AuthConfig struct {
	// JWTSecret enables bearer-token auth on /api when set.
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	// Required rejects /api requests without a valid token. When false a token
	// is optional and only identifies the caller.
	Required bool `yaml:"required"`
	// AdminRole may delete customers and products.
	AdminRole string `yaml:"admin_role"`
}

type IdempotencyConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type InvoiceConfig struct {
	Prefix     string `yaml:"prefix"`
	PadWidth   int    `yaml:"pad_width"`
	AutoNumber bool   `yaml:"auto_number"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		App: AppConfig{
			Port:            8080,
			Env:             "production",
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver:       DriverMemory,
			Database:     "invoice-management",
			Timeout:      10 * time.Second,
			ConnectRetry: time.Minute,
		},
		Auth:        AuthConfig{TokenTTL: 12 * time.Hour, Required: true, AdminRole: "admin"},
		Idempotency: IdempotencyConfig{TTL: 24 * time.Hour},
		Invoice: InvoiceConfig{
			Prefix:     "INV",
			PadWidth:   5,
			AutoNumber: true,
		},
	}
}

// Load reads path (when not empty), applies environment overrides and validates.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	integer("APP_PORT", &c.App.Port)
	str("APP_ENV", &c.App.Env)
	str("LOG_LEVEL", &c.Log.Level)
	str("STORE_DRIVER", &c.Store.Driver)
	str("DATABASE_URL", &c.Store.PostgresURL)
	str("MONGO_URL", &c.Store.MongoURL)
	str("MONGO_DATABASE", &c.Store.Database)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	boolean("AUTH_REQUIRED", &c.Auth.Required)
	str("AUTH_ADMIN_ROLE", &c.Auth.AdminRole)
	boolean("IDEMPOTENCY_ENABLED", &c.Idempotency.Enabled)
	str("INVOICE_PREFIX", &c.Invoice.Prefix)
	integer("INVOICE_PAD_WIDTH", &c.Invoice.PadWidth)
	boolean("INVOICE_AUTO_NUMBER", &c.Invoice.AutoNumber)

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	return errors.Join(errs...)
}

// Validate implements validation.Validatable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.App),
		validation.Field(&c.Log),
		validation.Field(&c.Store),
		validation.Field(&c.Auth),
		validation.Field(&c.Invoice),
	)
}

// Validate implements validation.Validatable.
func (a AppConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&a.Env, validation.In("development", "staging", "production")),
	)
}

// Validate implements validation.Validatable.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

// Validate implements validation.Validatable.
func (s StoreConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In(DriverMemory, DriverPostgres, DriverMongo)),
		validation.Field(&s.PostgresURL, validation.When(s.Driver == DriverPostgres, validation.Required)),
		validation.Field(&s.MongoURL, validation.When(s.Driver == DriverMongo, validation.Required)),
		validation.Field(&s.Database, validation.When(s.Driver == DriverMongo, validation.Required, is.PrintableASCII)),
		validation.Field(&s.Timeout, validation.Min(time.Second)),
	)
}

// Validate implements validation.Validatable.
func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.AdminRole, validation.When(a.JWTSecret != "", validation.Required, is.PrintableASCII)),
		validation.Field(&a.TokenTTL, validation.When(a.JWTSecret != "", validation.Min(time.Minute))),
	)
}

// Validate implements validation.Validatable.
func (i InvoiceConfig) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Prefix, validation.Length(0, 16), is.Alphanumeric),
		validation.Field(&i.PadWidth, validation.Min(1), validation.Max(18)),
	)
}
