// Package conf provides configuration management using Viper.
// It supports loading configuration from YAML files and environment variables.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// NewBootstrap creates and initializes a Bootstrap configuration.
// It loads configuration from the specified config file path, applies defaults,
// and allows overrides from environment variables prefixed with GUARDLANE_.
//
// Configuration priority: Environment variables > Config file > Defaults
//
// All stores are optional: without REDIS_ADDR the counter store is
// process-local, without MYSQL_DSN the transition journal is log-only.
//
// Parameters:
//   - configPath: Path to the configuration file, may be empty
//
// Returns:
//   - *Bootstrap: Loaded configuration
//   - error: Configuration loading or validation error
func NewBootstrap(configPath string) (*Bootstrap, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Enable environment variable support with GUARDLANE_ prefix
	v.SetEnvPrefix("GUARDLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow direct environment variable names (without GUARDLANE_ prefix) for compatibility
	_ = v.BindEnv("data.database.source", "MYSQL_DSN", "GUARDLANE_DATA_DATABASE_SOURCE")
	_ = v.BindEnv("data.redis.addr", "REDIS_ADDR", "GUARDLANE_DATA_REDIS_ADDR")
	_ = v.BindEnv("client.upstream.proxy_url", "PROXY_URL", "GUARDLANE_CLIENT_UPSTREAM_PROXY_URL")

	// Load configuration file
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// If config file is specified but not found, return error
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	// Parse configuration into Bootstrap structure
	bc := &Bootstrap{
		Log: &Log{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Env:        v.GetString("log.env"),
			OutputFile: v.GetString("log.output_file"),
		},
		Data: &Data{
			Database: &Database{
				Driver: v.GetString("data.database.driver"),
				Source: v.GetString("data.database.source"),
			},
			Redis: &Redis{
				Network:      v.GetString("data.redis.network"),
				Addr:         v.GetString("data.redis.addr"),
				ReadTimeout:  v.GetDuration("data.redis.read_timeout"),
				WriteTimeout: v.GetDuration("data.redis.write_timeout"),
			},
		},
		Breaker: &Breaker{
			FailureThreshold: v.GetInt32("breaker.failure_threshold"),
			SuccessThreshold: v.GetInt32("breaker.success_threshold"),
			OpenTimeout:      v.GetDuration("breaker.open_timeout"),
			ResponseTimeout:  v.GetDuration("breaker.response_timeout"),
		},
		RateLimit: &RateLimit{
			StoreFailurePolicy: v.GetString("rate_limit.store_failure_policy"),
			StoreTimeout:       v.GetDuration("rate_limit.store_timeout"),
			LocalCacheSize:     v.GetInt("rate_limit.local_cache_size"),
		},
		Client: &Client{
			ResponseTimeout: v.GetDuration("client.response_timeout"),
			MaxRetries:      v.GetInt32("client.max_retries"),
			BackoffBase:     v.GetDuration("client.backoff_base"),
			BackoffCap:      v.GetDuration("client.backoff_cap"),
			JitterFraction:  v.GetFloat64("client.jitter_fraction"),
			RateLimit:       v.GetInt32("client.rate_limit"),
			RatePeriod:      v.GetDuration("client.rate_period"),
			Upstream: &Upstream{
				ProxyURL:  v.GetString("client.upstream.proxy_url"),
				UserAgent: v.GetString("client.upstream.user_agent"),
			},
		},
	}

	// Validate field values
	if err := Validate(bc); err != nil {
		return nil, err
	}

	return bc, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.env", "")
	v.SetDefault("log.output_file", "")

	// Data defaults
	v.SetDefault("data.database.driver", "mysql")
	// Note: data.database.source (MYSQL_DSN) is optional; journal disabled without it

	v.SetDefault("data.redis.network", "tcp")
	// Note: data.redis.addr (REDIS_ADDR) is optional; counters stay process-local without it
	v.SetDefault("data.redis.addr", "")
	v.SetDefault("data.redis.read_timeout", 200*time.Millisecond)
	v.SetDefault("data.redis.write_timeout", 200*time.Millisecond)

	// Breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 3)
	v.SetDefault("breaker.open_timeout", 60*time.Second)
	v.SetDefault("breaker.response_timeout", 30*time.Second)

	// Rate limit defaults
	v.SetDefault("rate_limit.store_failure_policy", "fail-open")
	v.SetDefault("rate_limit.store_timeout", 200*time.Millisecond)
	v.SetDefault("rate_limit.local_cache_size", 4096)

	// Client defaults
	v.SetDefault("client.response_timeout", 30*time.Second)
	v.SetDefault("client.max_retries", 3)
	v.SetDefault("client.backoff_base", 1*time.Second)
	v.SetDefault("client.backoff_cap", 30*time.Second)
	v.SetDefault("client.jitter_fraction", 0.5)
	v.SetDefault("client.rate_limit", 100)
	v.SetDefault("client.rate_period", 60*time.Second)
	v.SetDefault("client.upstream.proxy_url", "")
	v.SetDefault("client.upstream.user_agent", "GuardLane/1.0")
}

// Validate checks that all configuration field values are usable.
// It returns an error listing every invalid field.
func Validate(bc *Bootstrap) error {
	var invalidFields []string

	if bc.Breaker == nil || bc.Breaker.FailureThreshold < 1 {
		invalidFields = append(invalidFields, "breaker.failure_threshold (must be >= 1)")
	}
	if bc.Breaker == nil || bc.Breaker.SuccessThreshold < 1 {
		invalidFields = append(invalidFields, "breaker.success_threshold (must be >= 1)")
	}
	if bc.Breaker == nil || bc.Breaker.OpenTimeout <= 0 {
		invalidFields = append(invalidFields, "breaker.open_timeout (must be > 0)")
	}
	if bc.Breaker == nil || bc.Breaker.ResponseTimeout <= 0 {
		invalidFields = append(invalidFields, "breaker.response_timeout (must be > 0)")
	}

	if bc.RateLimit == nil || (bc.RateLimit.StoreFailurePolicy != "fail-open" && bc.RateLimit.StoreFailurePolicy != "fail-closed") {
		invalidFields = append(invalidFields, "rate_limit.store_failure_policy (must be fail-open or fail-closed)")
	}
	if bc.RateLimit == nil || bc.RateLimit.StoreTimeout <= 0 {
		invalidFields = append(invalidFields, "rate_limit.store_timeout (must be > 0)")
	}
	if bc.RateLimit == nil || bc.RateLimit.LocalCacheSize < 1 {
		invalidFields = append(invalidFields, "rate_limit.local_cache_size (must be >= 1)")
	}

	if bc.Client == nil || bc.Client.ResponseTimeout <= 0 {
		invalidFields = append(invalidFields, "client.response_timeout (must be > 0)")
	}
	if bc.Client == nil || bc.Client.MaxRetries < 0 {
		invalidFields = append(invalidFields, "client.max_retries (must be >= 0)")
	}
	if bc.Client == nil || bc.Client.BackoffBase <= 0 {
		invalidFields = append(invalidFields, "client.backoff_base (must be > 0)")
	}
	if bc.Client == nil || bc.Client.BackoffCap < bc.Client.BackoffBase {
		invalidFields = append(invalidFields, "client.backoff_cap (must be >= client.backoff_base)")
	}
	if bc.Client == nil || bc.Client.JitterFraction < 0 || bc.Client.JitterFraction > 1 {
		invalidFields = append(invalidFields, "client.jitter_fraction (must be between 0 and 1)")
	}
	if bc.Client == nil || bc.Client.RateLimit < 1 {
		invalidFields = append(invalidFields, "client.rate_limit (must be >= 1)")
	}
	if bc.Client == nil || bc.Client.RatePeriod <= 0 {
		invalidFields = append(invalidFields, "client.rate_period (must be > 0)")
	}

	if len(invalidFields) > 0 {
		return fmt.Errorf("invalid configuration fields: %s", strings.Join(invalidFields, ", "))
	}

	return nil
}
