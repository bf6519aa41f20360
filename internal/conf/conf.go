package conf

import "time"

// Bootstrap is the root configuration for the library's composition root.
type Bootstrap struct {
	Log       *Log
	Data      *Data
	Breaker   *Breaker
	RateLimit *RateLimit
	Client    *Client
}

// Log configures the logging output.
type Log struct {
	Level      string
	Format     string
	Env        string
	OutputFile string
}

// Data configures the backing stores.
type Data struct {
	Database *Database
	Redis    *Redis
}

// Database configures the transition journal database.
// Source is optional: when empty the journal runs in log-only mode.
type Database struct {
	Driver string
	Source string
}

// Redis configures the shared counter store.
// Addr is optional: when empty counters are kept process-local.
type Redis struct {
	Network      string
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Breaker configures default circuit breaker behavior per target.
type Breaker struct {
	FailureThreshold int32
	SuccessThreshold int32
	OpenTimeout      time.Duration
	ResponseTimeout  time.Duration
}

// RateLimit configures the admission side of the rate limiter.
type RateLimit struct {
	StoreFailurePolicy string
	StoreTimeout       time.Duration
	LocalCacheSize     int
}

// Client configures the resilient client's default call policy.
type Client struct {
	ResponseTimeout time.Duration
	MaxRetries      int32
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	JitterFraction  float64
	RateLimit       int32
	RatePeriod      time.Duration
	Upstream        *Upstream
}

// Upstream configures how the HTTP transport reaches targets.
type Upstream struct {
	ProxyURL  string
	UserAgent string
}
