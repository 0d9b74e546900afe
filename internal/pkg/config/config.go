package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/PaddleBilling/internal/pkg/env"
)

const (
	LiveAPIBaseURL    = "https://api.paddle.com"
	SandboxAPIBaseURL = "https://sandbox-api.paddle.com"
)

// Credentials is one Paddle credential set (live or sandbox).
type Credentials struct {
	SellerID        string
	ClientSideToken string
	APIKey          string `validate:"required"`
	WebhookSecret   string `validate:"required"`
	PriceID         string
}

// Tables holds the table names used for the reconciled entities. They can be
// overridden when the host application already owns differently named tables.
type Tables struct {
	Customers string `validate:"required"`
	Products  string `validate:"required"`
	Purchases string `validate:"required"`
}

type Database struct {
	Host        string `validate:"required"`
	Port        string `validate:"required"`
	User        string `validate:"required"`
	Password    string
	Name        string `validate:"required"`
	AutoMigrate bool
}

// DSN renders the go-sql-driver/mysql data source name.
func (d Database) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

// MigrateURL renders the golang-migrate database URL.
func (d Database) MigrateURL() string {
	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?multiStatements=true",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type Cache struct {
	Host     string
	Port     string
	Password string
	DB       int
	// CustomerTTL bounds how long remote customer lookups are cached.
	CustomerTTL time.Duration
}

// Enabled reports whether a Redis endpoint is configured.
func (c Cache) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

func (c Cache) Addr() string {
	return c.Host + ":" + c.Port
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type S3Archive struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string
	Prefix          string
}

type HTTP struct {
	Host string
	Port string
	// RateLimit is the maximum number of webhook requests per minute per client.
	RateLimit int
}

type Log struct {
	Level  string
	Format string
}

// Config is built once at startup and passed explicitly to every component
// that needs it. Nothing reads the environment after Load returns.
type Config struct {
	Sandbox            bool
	Live               Credentials
	SandboxCredentials Credentials
	APIBaseURL         string
	Path               string
	SandboxPath        string
	Currency           string
	SignatureTolerance time.Duration
	CustomerLookup     bool

	// WebhookListeners maps a Paddle event type to listener identifiers.
	WebhookListeners map[string][]string
	// PurchaseListeners receive every reconciled purchase.
	PurchaseListeners []string

	Tables    Tables
	Database  Database
	Cache     Cache
	Kafka     Kafka
	S3Archive S3Archive
	HTTP      HTTP
	Log       Log
	AppEnv    string
}

// Load reads the configuration from the loaded .env file and the process environment.
func Load() (*Config, error) {
	listeners, err := ParseListenerMap(env.GetEnv("PADDLE_WEBHOOK_LISTENERS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Sandbox: env.GetBool("PADDLE_SANDBOX", false),
		Live: Credentials{
			SellerID:        env.GetEnv("PADDLE_SELLER_ID", ""),
			ClientSideToken: env.GetEnv("PADDLE_CLIENT_SIDE_TOKEN", ""),
			APIKey:          env.GetEnv("PADDLE_API_KEY", ""),
			WebhookSecret:   env.GetEnv("PADDLE_WEBHOOK_SECRET", ""),
			PriceID:         env.GetEnv("PADDLE_PRICE_ID", ""),
		},
		SandboxCredentials: Credentials{
			SellerID:        env.GetEnv("PADDLE_SANDBOX_SELLER_ID", ""),
			ClientSideToken: env.GetEnv("PADDLE_SANDBOX_CLIENT_SIDE_TOKEN", ""),
			APIKey:          env.GetEnv("PADDLE_SANDBOX_API_KEY", ""),
			WebhookSecret:   env.GetEnv("PADDLE_SANDBOX_WEBHOOK_SECRET", ""),
			PriceID:         env.GetEnv("PADDLE_SANDBOX_PRICE_ID", ""),
		},
		APIBaseURL:         strings.TrimSpace(env.GetEnv("PADDLE_API_BASE_URL", "")),
		Path:               strings.Trim(env.GetEnv("CASHIER_PATH", "paddle"), "/"),
		SandboxPath:        strings.Trim(env.GetEnv("CASHIER_SANDBOX_PATH", "paddle-sandbox"), "/"),
		Currency:           strings.ToUpper(env.GetEnv("CASHIER_CURRENCY", "USD")),
		SignatureTolerance: time.Duration(env.GetInt("PADDLE_SIGNATURE_TOLERANCE", 0)) * time.Second,
		CustomerLookup:     env.GetBool("PADDLE_CUSTOMER_LOOKUP", true),
		WebhookListeners:   listeners,
		PurchaseListeners:  env.GetList("PADDLE_PURCHASE_LISTENERS"),
		Tables: Tables{
			Customers: env.GetEnv("PADDLE_CUSTOMER_TABLE", "customers"),
			Products:  env.GetEnv("PADDLE_PRODUCT_TABLE", "products"),
			Purchases: env.GetEnv("PADDLE_PURCHASE_TABLE", "purchases"),
		},
		Database: Database{
			Host:        env.GetEnv("DB_HOST", "127.0.0.1"),
			Port:        env.GetEnv("DB_PORT", "3306"),
			User:        env.GetEnv("DB_USER", ""),
			Password:    env.GetEnv("DB_PASSWORD", ""),
			Name:        env.GetEnv("DB_NAME", ""),
			AutoMigrate: env.GetBool("DB_AUTO_MIGRATE", false),
		},
		Cache: Cache{
			Host:        env.GetEnv("CACHE_HOST", ""),
			Port:        env.GetEnv("CACHE_PORT", "6379"),
			Password:    env.GetEnv("CACHE_PASSWORD", ""),
			DB:          env.GetInt("CACHE_DB", 0),
			CustomerTTL: time.Duration(env.GetInt("CACHE_CUSTOMER_TTL", 600)) * time.Second,
		},
		Kafka: Kafka{
			Brokers: env.GetList("KAFKA_BROKERS"),
			Topic:   env.GetEnv("KAFKA_TOPIC", "paddle.events"),
		},
		S3Archive: S3Archive{
			AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("S3_REGION", "us-east-1"),
			BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
			EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
			Prefix:          strings.Trim(env.GetEnv("S3_RECEIPT_PREFIX", "receipts"), "/"),
		},
		HTTP: HTTP{
			Host:      env.GetEnv("APP_HOST", "localhost"),
			Port:      env.GetEnv("APP_PORT", "4000"),
			RateLimit: env.GetInt("WEBHOOK_RATE_LIMIT", 120),
		},
		Log: Log{
			Level:  env.GetEnv("LOG_LEVEL", "info"),
			Format: env.GetEnv("LOG_FORMAT", "auto"),
		},
		AppEnv: env.GetEnv("APP_ENV", "prod"),
	}
	return cfg, nil
}

// Validate checks the active credential set and the table/database settings.
// The inactive credential set is allowed to be empty.
func (c *Config) Validate() error {
	v := validator.New()
	creds := c.ActiveCredentials()
	if err := v.Struct(creds); err != nil {
		return fmt.Errorf("%s credentials: %w", c.Mode(), err)
	}
	if err := v.Struct(c.Tables); err != nil {
		return fmt.Errorf("tables: %w", err)
	}
	return nil
}

// ValidateDatabase checks the database settings, needed by commands that connect.
func (c *Config) ValidateDatabase() error {
	if err := validator.New().Struct(c.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	return nil
}

// ActiveCredentials selects the credential set for the configured mode.
func (c *Config) ActiveCredentials() Credentials {
	if c.Sandbox {
		return c.SandboxCredentials
	}
	return c.Live
}

func (c *Config) Mode() string {
	if c.Sandbox {
		return "sandbox"
	}
	return "live"
}

// BaseURL returns the Paddle API base URL for the configured mode.
func (c *Config) BaseURL() string {
	if c.APIBaseURL != "" {
		return strings.TrimRight(c.APIBaseURL, "/")
	}
	if c.Sandbox {
		return SandboxAPIBaseURL
	}
	return LiveAPIBaseURL
}

// WebhookPath is the route the webhook handler is mounted on.
func (c *Config) WebhookPath() string {
	if c.Sandbox {
		return "/" + c.SandboxPath + "/webhook"
	}
	return "/" + c.Path + "/webhook"
}

// ParseListenerMap parses "event.type=listener,event.type=other" into a map.
// Repeating an event type registers several listeners in the given order.
func ParseListenerMap(raw string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		eventType, listener, ok := strings.Cut(item, "=")
		eventType = strings.TrimSpace(eventType)
		listener = strings.TrimSpace(listener)
		if !ok || eventType == "" || listener == "" {
			return nil, fmt.Errorf("invalid listener mapping %q, expected event.type=listener", item)
		}
		out[eventType] = append(out[eventType], listener)
	}
	return out, nil
}
