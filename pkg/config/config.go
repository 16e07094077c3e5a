// Package config loads service settings from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
)

type Config struct {
	Port        string
	PostgresURL string
	LogLevel    string
	LogFormat   string

	RateLimitBackend     string
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	RetryMaxRetries int
	RetryBaseDelay  time.Duration

	NotificationLogBackend string
	MongoURL               string
	MongoDatabase          string
	OneSignalAppID         string
	OneSignalRESTKey       string
	OneSignalBaseURL       string

	StripeSecretKey     string
	StripeSuccessURL    string
	StripeCancelURL     string
	PaystackSecretKey   string
	PaystackCallbackURL string
	PaystackBaseURL     string
	DefaultCurrency     string

	VoucherCacheTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("postgresql_url", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("rate_limit_backend", BackendPostgres)
	v.SetDefault("rate_limit_max_requests", 100)
	v.SetDefault("rate_limit_window", 15*time.Minute)
	v.SetDefault("retry_max_retries", 3)
	v.SetDefault("retry_base_delay", time.Second)
	v.SetDefault("notification_log_backend", BackendPostgres)
	v.SetDefault("mongodb_url", "mongodb://localhost:27017")
	v.SetDefault("mongodb_database", "bookstore")
	v.SetDefault("onesignal_app_id", "")
	v.SetDefault("onesignal_rest_api_key", "")
	v.SetDefault("onesignal_base_url", "")
	v.SetDefault("stripe_secret_key", "")
	v.SetDefault("stripe_success_url", "http://localhost:3000/checkout/success")
	v.SetDefault("stripe_cancel_url", "http://localhost:3000/checkout/cancel")
	v.SetDefault("paystack_secret_key", "")
	v.SetDefault("paystack_callback_url", "")
	v.SetDefault("paystack_base_url", "")
	v.SetDefault("default_currency", "usd")
	v.SetDefault("voucher_cache_ttl", 30*time.Second)
}

// Load reads settings from the environment. When path is non-empty the file
// is read first and environment variables override it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		Port:                   v.GetString("port"),
		PostgresURL:            v.GetString("postgresql_url"),
		LogLevel:               v.GetString("log_level"),
		LogFormat:              v.GetString("log_format"),
		RateLimitBackend:       strings.ToLower(v.GetString("rate_limit_backend")),
		RateLimitMaxRequests:   v.GetInt("rate_limit_max_requests"),
		RateLimitWindow:        v.GetDuration("rate_limit_window"),
		RetryMaxRetries:        v.GetInt("retry_max_retries"),
		RetryBaseDelay:         v.GetDuration("retry_base_delay"),
		NotificationLogBackend: strings.ToLower(v.GetString("notification_log_backend")),
		MongoURL:               v.GetString("mongodb_url"),
		MongoDatabase:          v.GetString("mongodb_database"),
		OneSignalAppID:         v.GetString("onesignal_app_id"),
		OneSignalRESTKey:       v.GetString("onesignal_rest_api_key"),
		OneSignalBaseURL:       v.GetString("onesignal_base_url"),
		StripeSecretKey:        v.GetString("stripe_secret_key"),
		StripeSuccessURL:       v.GetString("stripe_success_url"),
		StripeCancelURL:        v.GetString("stripe_cancel_url"),
		PaystackSecretKey:      v.GetString("paystack_secret_key"),
		PaystackCallbackURL:    v.GetString("paystack_callback_url"),
		PaystackBaseURL:        v.GetString("paystack_base_url"),
		DefaultCurrency:        strings.ToLower(v.GetString("default_currency")),
		VoucherCacheTTL:        v.GetDuration("voucher_cache_ttl"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	switch c.RateLimitBackend {
	case BackendPostgres, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.RateLimitBackend))
	}
	if c.RateLimitMaxRequests < 1 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX_REQUESTS must be at least 1"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RetryMaxRetries < 1 {
		errs = append(errs, errors.New("RETRY_MAX_RETRIES must be at least 1"))
	}
	if c.RetryBaseDelay < 0 {
		errs = append(errs, errors.New("RETRY_BASE_DELAY must not be negative"))
	}
	switch c.NotificationLogBackend {
	case BackendPostgres:
	case BackendMongo:
		if c.MongoURL == "" || c.MongoDatabase == "" {
			errs = append(errs, errors.New("MONGODB_URL and MONGODB_DATABASE are required for the mongo notification log"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFICATION_LOG_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMongo, c.NotificationLogBackend))
	}
	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Errorf("DEFAULT_CURRENCY must be a three-letter code, got %q", c.DefaultCurrency))
	}
	if c.VoucherCacheTTL < 0 {
		errs = append(errs, errors.New("VOUCHER_CACHE_TTL must not be negative"))
	}
	return errors.Join(errs...)
}

// ConfigureLogging applies the level and format to the standard logrus logger.
func (c *Config) ConfigureLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logrus.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}
