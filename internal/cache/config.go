// package cache implements the tag-aware query cache that sits between the API client and the transport
package cache

import (
	"time"

	"github.com/desertthunder/fintx/internal/shared"
	"github.com/viccon/sturdyc"
)

// Config holds the sturdyc settings for a [Coordinator].
type Config struct {
	// Capacity is the maximum number of cached responses.
	Capacity int

	// NumShards splits the store for concurrent access.
	NumShards int

	// TTL bounds how long a response is served without refetching.
	TTL time.Duration

	// EvictionPercentage is the share of entries dropped when Capacity is reached, 1-100.
	EvictionPercentage int

	// EvictionInterval controls the expiry sweep. Zero keeps the sturdyc default.
	EvictionInterval time.Duration
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Capacity:           1000,
		NumShards:          16,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

// FromShared converts the [cache] section of the config file.
func FromShared(c shared.CacheConfig) Config {
	cfg := DefaultConfig()
	if c.Capacity > 0 {
		cfg.Capacity = c.Capacity
	}
	if c.NumShards > 0 {
		cfg.NumShards = c.NumShards
	}
	if c.TTLSeconds > 0 {
		cfg.TTL = time.Duration(c.TTLSeconds) * time.Second
	}
	if c.EvictionPercentage > 0 {
		cfg.EvictionPercentage = c.EvictionPercentage
	}
	return cfg
}

// Validate checks that every field is in range.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}
	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}
	if c.NumShards > c.Capacity {
		return &ConfigError{Field: "NumShards", Message: "must not exceed Capacity"}
	}
	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}
	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}
	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}
	return nil
}

func (c Config) options() []sturdyc.Option {
	var opts []sturdyc.Option
	if c.EvictionInterval > 0 {
		opts = append(opts, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}
	return opts
}

// ConfigError reports an invalid cache setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "cache config error in field " + e.Field + ": " + e.Message
}

// Unwrap lets callers match [shared.ErrInvalidConfig].
func (e *ConfigError) Unwrap() error { return shared.ErrInvalidConfig }
