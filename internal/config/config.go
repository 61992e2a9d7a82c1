// Package config provides configuration management for shelflife.
package config

import (
	"time"

	"github.com/shelflife/shelflife/internal/types"
)

// Config contains all configuration for the shelflife cache engine.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type Config struct {
	// Namespace is the key under which both stores keep their blob.
	Namespace string `json:"namespace"`

	// ShortTTL is added to "now" for Short-retention entries.
	ShortTTL time.Duration `json:"shortTTL"`

	// LongTTL is added to "now" for Long-retention entries.
	LongTTL time.Duration `json:"longTTL"`

	// LookupFallback additionally probes the long-lived store when a key
	// misses both the index and the short-lived store, instead of
	// synthesizing a null entry right away. Off by default.
	LookupFallback bool `json:"lookupFallback"`

	Short         StoreConfig         `json:"short"`
	Long          StoreConfig         `json:"long"`
	Metrics       MetricsConfig       `json:"metrics"`
	KeyValidation KeyValidationConfig `json:"keyValidation"`
}

// TTLFor returns the TTL matching the given retention class.
func (c *Config) TTLFor(r types.Retention) time.Duration {
	if r == types.RetentionLong {
		return c.LongTTL
	}
	return c.ShortTTL
}

// Store backend names accepted by StoreConfig.Backend.
const (
	BackendMemory = "memory"
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
)

// StoreConfig selects and configures one backend store.
type StoreConfig struct {
	// Backend is one of "memory", "bolt", "redis".
	Backend string `json:"backend"`

	Memory MemoryStoreConfig `json:"memory"`
	Bolt   BoltStoreConfig   `json:"bolt"`
	Redis  RedisStoreConfig  `json:"redis"`
}

// MemoryStoreConfig configures the bigcache-backed ephemeral store.
type MemoryStoreConfig struct {
	LifeWindow   time.Duration `json:"lifeWindow"`
	CleanWindow  time.Duration `json:"cleanWindow"`
	MaxSizeMB    int           `json:"maxSizeMB"`
	Shards       int           `json:"shards"`
	MaxEntrySize int           `json:"maxEntrySize"`
}

// BoltStoreConfig configures the bbolt-backed durable store.
type BoltStoreConfig struct {
	Path        string        `json:"path"`
	Bucket      string        `json:"bucket"`
	OpenTimeout time.Duration `json:"openTimeout"`
}

// RedisStoreConfig configures the go-redis-backed store.
//
//nolint:govet // Configuration struct - logical grouping prioritized over alignment
type RedisStoreConfig struct {
	Address           string        `json:"address"`
	Password          Secret        `json:"password"`
	DB                int           `json:"db"`
	KeyPrefix         string        `json:"keyPrefix"`
	PoolSize          int           `json:"poolSize"`
	MinIdleConns      int           `json:"minIdleConns"`
	DialTimeout       time.Duration `json:"dialTimeout"`
	ReadTimeout       time.Duration `json:"readTimeout"`
	WriteTimeout      time.Duration `json:"writeTimeout"`
	PoolTimeout       time.Duration `json:"poolTimeout"`
	HeartbeatInterval time.Duration `json:"heartbeatInterval"`
	EnableTLS         bool          `json:"enableTLS"`
	TLSSkipVerify     bool          `json:"tlsSkipVerify"`
}

// MetricsConfig contains configuration for metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type MetricsConfig struct {
	PublishInterval time.Duration `json:"publishInterval"`
	DataDog         DataDogConfig `json:"datadog"`
	Enabled         bool          `json:"enabled"`
}

// DataDogConfig contains configuration for DataDog metrics publishing.
//
//nolint:govet // Small config struct - minimal alignment benefit
type DataDogConfig struct {
	Tags      []string `json:"tags"`
	AgentHost string   `json:"agentHost"`
	Prefix    string   `json:"prefix"`
	Port      int      `json:"port"`
	Enabled   bool     `json:"enabled"`
}

// KeyValidationConfig contains configuration for cache key validation.
type KeyValidationConfig struct {
	MaxKeyLength      int  `json:"maxKeyLength"`
	Enabled           bool `json:"enabled"`
	AllowControlChars bool `json:"allowControlChars"`
	AllowWhitespace   bool `json:"allowWhitespace"`
}

// ToTypesConfig converts this config to a types.KeyValidationConfig.
func (c KeyValidationConfig) ToTypesConfig() types.KeyValidationConfig {
	return types.KeyValidationConfig{
		MaxKeyLength:      c.MaxKeyLength,
		AllowControlChars: c.AllowControlChars,
		AllowWhitespace:   c.AllowWhitespace,
	}
}
