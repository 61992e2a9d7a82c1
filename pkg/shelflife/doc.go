// Package shelflife provides a write-through, TTL-based caching layer over
// two key-value backends split by retention class.
//
// shelflife keeps a hot in-memory index in front of a short-lived and a
// long-lived backend store. Every mutation lands in the index and in the
// entry's backend within the same call, and the index never serves a value
// older than the TTL of its retention class.
//
// # Features
//
//   - Retention Classes: every entry is Short or Long; each class persists to its own backend under one namespace blob
//   - Write-Through: set and delete reach the backend in the same call, no write-behind queue
//   - TTL Staleness: stale index entries are refreshed from their backend and re-stamped with their class TTL
//   - Null Sentinel: unknown keys settle as JSON null in the index without inventing backend records
//   - Silent Degradation: invalid keys, malformed entries, corrupt blobs, and store faults degrade to absence instead of surfacing errors
//   - Cache-Aside Pattern: built-in GetOrCreate with singleflight-deduplicated factory functions
//   - Pluggable Backends: in-memory (bigcache), bbolt, and Redis stores out of the box
//   - Observability: metrics tracking with pluggable publishers (DataDog StatsD included)
//
// # Quick Start
//
// Create a cache with the default configuration (bigcache short store,
// bbolt long store):
//
//	cache, err := shelflife.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
// # Cache Operations
//
// Basic set and get operations:
//
//	ctx := context.Background()
//	user := User{ID: "123", Name: "Alice"}
//
//	// Set a value (Short retention by default)
//	err := cache.Set(ctx, "user:123", user)
//
//	// Get a value
//	var cached User
//	err = cache.Get(ctx, "user:123", &cached)
//
// Keys that were never set settle as the JSON null sentinel rather than an
// error; GetRaw exposes the raw form:
//
//	raw, err := cache.GetRaw(ctx, "user:999")
//	if shelflife.IsNull(raw) {
//	    // absent
//	}
//
// Cache-aside pattern with GetOrCreate:
//
//	var result User
//	err := cache.GetOrCreate(ctx, "user:456", &result, func() (any, error) {
//	    // This function only runs when the key holds no real value
//	    return fetchUserFromDB("456")
//	})
//
// # Retention Classes
//
// Entries carry one of two retention classes selecting their backend and TTL:
//
//   - RetentionShort: volatile data, short TTL (default 24h), short-lived store
//   - RetentionLong: durable data, long TTL (default 720h), long-lived store
//
// Select the class per write; at most one backend ever holds a given key, so
// changing the class moves the entry:
//
//	cache.Set(ctx, "session:9", sess)                                  // Short by default
//	cache.Set(ctx, "user:123", user, shelflife.WithRetention(shelflife.RetentionLong))
//
// # Observability
//
// With metrics enabled in the configuration, the cache tracks hits,
// refreshes, synthesized nulls, and latency percentiles, and publishes them
// in the background (to DataDog when configured, to the structured log
// otherwise). A custom recorder can be injected instead:
//
//	cache, err := shelflife.New(
//	    shelflife.WithMetrics(myRecorder),
//	)
//
// # Health Checks
//
// Check the health status of both backend stores:
//
//	health, err := cache.Health(ctx)
//	if health.Status == shelflife.HealthStatusHealthy {
//	    fmt.Println("Both backends operational")
//	}
//
// # Configuration
//
// Load configuration from a JSON file (with SHELFLIFE_* env overrides):
//
//	cache, err := shelflife.NewFromFile("config.json")
//
// Or use the default configuration:
//
//	cfg := shelflife.Config()
//	// Customize cfg...
//	cache, err := shelflife.NewFromConfig(cfg)
//
// For testing, use the test configuration (both stores in memory):
//
//	cfg := shelflife.TestConfig()
//
// # Thread Safety
//
// All cache operations are thread-safe and can be used concurrently from
// multiple goroutines. Two engine instances sharing one namespace are NOT
// coordinated: concurrent blob writes from separate instances follow
// last-write-wins.
package shelflife
