package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Load loads configuration from a JSON file.
// If the file doesn't exist, returns default configuration.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, use defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a JSON file and applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Backend-specific overrides apply to whichever of the two stores uses
// that backend; in practice a backend type appears at most once.
//
//nolint:gocyclo // Environment variable parsing requires many conditional checks
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHELFLIFE_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("SHELFLIFE_SHORT_TTL"); v != "" {
		cfg.ShortTTL = parseDuration(v, cfg.ShortTTL)
	}
	if v := os.Getenv("SHELFLIFE_LONG_TTL"); v != "" {
		cfg.LongTTL = parseDuration(v, cfg.LongTTL)
	}
	if v := os.Getenv("SHELFLIFE_LOOKUP_FALLBACK"); v != "" {
		cfg.LookupFallback = parseBool(v)
	}

	if v := os.Getenv("SHELFLIFE_SHORT_BACKEND"); v != "" {
		cfg.Short.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SHELFLIFE_LONG_BACKEND"); v != "" {
		cfg.Long.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv("SHELFLIFE_MEMORY_MAX_SIZE_MB"); v != "" {
		cfg.Short.Memory.MaxSizeMB = parseInt(v, cfg.Short.Memory.MaxSizeMB)
		cfg.Long.Memory.MaxSizeMB = parseInt(v, cfg.Long.Memory.MaxSizeMB)
	}
	if v := os.Getenv("SHELFLIFE_MEMORY_SHARDS"); v != "" {
		cfg.Short.Memory.Shards = parseInt(v, cfg.Short.Memory.Shards)
		cfg.Long.Memory.Shards = parseInt(v, cfg.Long.Memory.Shards)
	}

	if v := os.Getenv("SHELFLIFE_BOLT_PATH"); v != "" {
		cfg.Short.Bolt.Path = v
		cfg.Long.Bolt.Path = v
	}
	if v := os.Getenv("SHELFLIFE_BOLT_BUCKET"); v != "" {
		cfg.Short.Bolt.Bucket = v
		cfg.Long.Bolt.Bucket = v
	}

	if v := os.Getenv("SHELFLIFE_REDIS_ADDRESS"); v != "" {
		cfg.Short.Redis.Address = v
		cfg.Long.Redis.Address = v
	}
	if v := os.Getenv("SHELFLIFE_REDIS_PASSWORD"); v != "" {
		cfg.Short.Redis.Password = NewSecret(v)
		cfg.Long.Redis.Password = NewSecret(v)
	}
	if v := os.Getenv("SHELFLIFE_REDIS_DB"); v != "" {
		cfg.Short.Redis.DB = parseInt(v, cfg.Short.Redis.DB)
		cfg.Long.Redis.DB = parseInt(v, cfg.Long.Redis.DB)
	}
	if v := os.Getenv("SHELFLIFE_REDIS_KEY_PREFIX"); v != "" {
		cfg.Short.Redis.KeyPrefix = v
		cfg.Long.Redis.KeyPrefix = v
	}
	if v := os.Getenv("SHELFLIFE_REDIS_POOL_SIZE"); v != "" {
		cfg.Short.Redis.PoolSize = parseInt(v, cfg.Short.Redis.PoolSize)
		cfg.Long.Redis.PoolSize = parseInt(v, cfg.Long.Redis.PoolSize)
	}
	if v := os.Getenv("SHELFLIFE_REDIS_ENABLE_TLS"); v != "" {
		cfg.Short.Redis.EnableTLS = parseBool(v)
		cfg.Long.Redis.EnableTLS = parseBool(v)
	}
	if v := os.Getenv("SHELFLIFE_REDIS_TLS_SKIP_VERIFY"); v != "" {
		cfg.Short.Redis.TLSSkipVerify = parseBool(v)
		cfg.Long.Redis.TLSSkipVerify = parseBool(v)
	}

	if v := os.Getenv("SHELFLIFE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.Metrics.DataDog.AgentHost = v
		cfg.Metrics.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.Metrics.DataDog.Port = parseInt(v, cfg.Metrics.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.Metrics.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("DD_VERSION"); v != "" {
		cfg.Metrics.DataDog.Tags = append(cfg.Metrics.DataDog.Tags, "version:"+v)
	}

	if v := os.Getenv("SHELFLIFE_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.Metrics.DataDog.Enabled = parseBool(v)
		}
	}
	if v := os.Getenv("SHELFLIFE_DATADOG_PREFIX"); v != "" {
		if os.Getenv("DD_SERVICE") == "" {
			cfg.Metrics.DataDog.Prefix = v
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.ShortTTL <= 0 {
		return fmt.Errorf("shortTTL must be positive")
	}
	if c.LongTTL <= 0 {
		return fmt.Errorf("longTTL must be positive")
	}

	if err := c.Short.validate("short"); err != nil {
		return err
	}
	return c.Long.validate("long")
}

func (s *StoreConfig) validate(name string) error {
	switch s.Backend {
	case BackendMemory:
		if s.Memory.MaxSizeMB <= 0 {
			return fmt.Errorf("%s.memory.maxSizeMB must be positive", name)
		}
		if s.Memory.Shards <= 0 || (s.Memory.Shards&(s.Memory.Shards-1)) != 0 {
			return fmt.Errorf("%s.memory.shards must be a positive power of 2", name)
		}
	case BackendBolt:
		if s.Bolt.Path == "" {
			return fmt.Errorf("%s.bolt.path is required", name)
		}
		if s.Bolt.Bucket == "" {
			return fmt.Errorf("%s.bolt.bucket is required", name)
		}
	case BackendRedis:
		if s.Redis.Address == "" {
			return fmt.Errorf("%s.redis.address is required", name)
		}
		if s.Redis.PoolSize <= 0 {
			return fmt.Errorf("%s.redis.poolSize must be positive", name)
		}
	default:
		return fmt.Errorf("%s.backend must be one of %q, %q, %q",
			name, BackendMemory, BackendBolt, BackendRedis)
	}
	return nil
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)

	if d, err := time.ParseDuration(s); err == nil {
		return d
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultVal
}
