package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Matching  MatchingConfig
	Cart      CartConfig
	Instacart InstacartConfig
	Breaker   BreakerConfig
	Cache     CacheConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MatchingConfig holds matching thresholds
type MatchingConfig struct {
	AcceptThreshold   float64 `mapstructure:"accept_threshold"`
	SuggestThreshold  float64 `mapstructure:"suggest_threshold"`
	SuggestionLimit   int     `mapstructure:"suggestion_limit"`
	AlternativesLimit int     `mapstructure:"alternatives_limit"`
}

// CartConfig holds cart calculation parameters
type CartConfig struct {
	TaxRate              string `mapstructure:"tax_rate"`
	SmallBasketSurcharge string `mapstructure:"small_basket_surcharge"`
	BatchWorkers         int    `mapstructure:"batch_workers"`
}

// InstacartConfig holds Instacart API configuration
type InstacartConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// BreakerConfig holds circuit breaker parameters
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	Cooldown         time.Duration `mapstructure:"cooldown"`
}

// CacheConfig holds cache TTLs and the optional catalog file override
type CacheConfig struct {
	ResultTTL      time.Duration `mapstructure:"result_ttl"`
	CheckoutURLTTL time.Duration `mapstructure:"checkout_url_ttl"`
	CatalogFile    string        `mapstructure:"catalog_file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cartsmash/")

	v.SetEnvPrefix("CARTSMASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Config file is optional; env vars and defaults cover everything
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Matching defaults
	v.SetDefault("matching.accept_threshold", 0.6)
	v.SetDefault("matching.suggest_threshold", 0.3)
	v.SetDefault("matching.suggestion_limit", 5)
	v.SetDefault("matching.alternatives_limit", 8)

	// Cart defaults
	v.SetDefault("cart.tax_rate", "0.08")
	v.SetDefault("cart.small_basket_surcharge", "5.00")
	v.SetDefault("cart.batch_workers", 3)

	// Instacart defaults
	v.SetDefault("instacart.base_url", "https://connect.instacart.com/idp")
	v.SetDefault("instacart.call_timeout", "12s")

	// Breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.cooldown", "30s")

	// Cache defaults
	v.SetDefault("cache.result_ttl", "5m")
	v.SetDefault("cache.checkout_url_ttl", "720h") // 30 days
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Matching.AcceptThreshold <= 0 || config.Matching.AcceptThreshold >= 1 {
		return fmt.Errorf("matching accept threshold must be in (0,1), got: %v", config.Matching.AcceptThreshold)
	}

	if config.Matching.SuggestThreshold >= config.Matching.AcceptThreshold {
		return fmt.Errorf("suggest threshold must be below accept threshold")
	}

	if config.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be positive, got: %d", config.Breaker.FailureThreshold)
	}

	if config.Cart.BatchWorkers <= 0 {
		return fmt.Errorf("batch workers must be positive, got: %d", config.Cart.BatchWorkers)
	}

	return nil
}
