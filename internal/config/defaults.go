package config

import "time"

// DefaultNamespace is the blob key used when none is configured.
const DefaultNamespace = "shelflife"

// DefaultConfig returns a configuration with sensible defaults: a
// bigcache-backed short-lived store, a bbolt-backed long-lived store,
// one-day short TTL and thirty-day long TTL.
func DefaultConfig() *Config {
	return &Config{
		Namespace:      DefaultNamespace,
		ShortTTL:       24 * time.Hour,
		LongTTL:        30 * 24 * time.Hour,
		LookupFallback: false,
		Short: StoreConfig{
			Backend: BackendMemory,
			Memory: MemoryStoreConfig{
				MaxSizeMB:    64,
				LifeWindow:   48 * time.Hour,
				CleanWindow:  0,
				Shards:       64,
				MaxEntrySize: 10 * 1024 * 1024, // 10MB
			},
		},
		Long: StoreConfig{
			Backend: BackendBolt,
			Bolt: BoltStoreConfig{
				Path:        "shelflife.db",
				Bucket:      "shelflife",
				OpenTimeout: 5 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled:         true,
			PublishInterval: 10 * time.Second,
			DataDog: DataDogConfig{
				Enabled:   false,
				AgentHost: "127.0.0.1",
				Port:      8125,
				Prefix:    "shelflife",
				Tags:      []string{},
			},
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxKeyLength:      1024,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTesting returns a minimal configuration suitable for unit tests:
// both stores in memory, tight TTLs, metrics off.
func ForTesting() *Config {
	memory := MemoryStoreConfig{
		MaxSizeMB:    16,
		LifeWindow:   time.Minute,
		CleanWindow:  0,
		Shards:       16,
		MaxEntrySize: 1024 * 1024, // 1MB
	}

	return &Config{
		Namespace:      "shelflife-test",
		ShortTTL:       time.Minute,
		LongTTL:        5 * time.Minute,
		LookupFallback: false,
		Short: StoreConfig{
			Backend: BackendMemory,
			Memory:  memory,
		},
		Long: StoreConfig{
			Backend: BackendMemory,
			Memory:  memory,
		},
		Metrics: MetricsConfig{
			Enabled:         false,
			PublishInterval: time.Second,
		},
		KeyValidation: KeyValidationConfig{
			Enabled:           true,
			MaxKeyLength:      1024,
			AllowControlChars: false,
			AllowWhitespace:   true,
		},
	}
}

// ForTestingWithRedis returns a test config whose long-lived store is
// the redis backend at addr.
func ForTestingWithRedis(addr string) *Config {
	cfg := ForTesting()
	cfg.Long = StoreConfig{
		Backend: BackendRedis,
		Redis: RedisStoreConfig{
			Address:      addr,
			KeyPrefix:    "shelflife-test:",
			PoolSize:     10,
			MinIdleConns: 1,
			DialTimeout:  time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			PoolTimeout:  time.Second,
		},
	}
	return cfg
}
