package shelflife

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shelflife/shelflife/internal/cache"
	"github.com/shelflife/shelflife/internal/config"
	"github.com/shelflife/shelflife/internal/metrics"
	"github.com/shelflife/shelflife/internal/metrics/datadog"
)

// New creates a cache with the default configuration.
func New(opts ...EngineOption) (Cache, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates a cache from configuration. The engine owns the
// stores built from it; Close closes them.
func NewFromConfig(cfg *config.Config, opts ...EngineOption) (Cache, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	engineOpts := applyEngineOptions(opts)
	if cfg.Metrics.Enabled && engineOpts.Metrics == nil {
		engineOpts.Metrics = metrics.NewTracker()
	}

	engine, err := cache.NewEngineFromConfig(cfg, engineOpts)
	if err != nil {
		return nil, err
	}
	return withPublishing(engine, cfg, engineOpts)
}

// NewFromFile creates a cache from a JSON config file, with environment
// overrides applied.
func NewFromFile(path string, opts ...EngineOption) (Cache, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewInMemory creates a cache holding both retention classes in memory.
// Nothing survives a restart; useful for tests and single-process use.
func NewInMemory(opts ...EngineOption) (Cache, error) {
	cfg := config.DefaultConfig()
	cfg.Long = cfg.Short
	return NewFromConfig(cfg, opts...)
}

// NewWithStores creates a cache over two caller-owned stores. The caller
// stays responsible for closing them after the cache is closed.
func NewWithStores(short, long Store, cfg *config.Config, opts ...EngineOption) (Cache, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	engineOpts := applyEngineOptions(opts)
	if cfg.Metrics.Enabled && engineOpts.Metrics == nil {
		engineOpts.Metrics = metrics.NewTracker()
	}

	engine, err := cache.NewEngine(short, long, cfg, engineOpts)
	if err != nil {
		return nil, err
	}
	return withPublishing(engine, cfg, engineOpts)
}

// Config returns a default configuration that can be modified before
// creating a cache.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}

func applyEngineOptions(opts []EngineOption) *EngineOptions {
	engineOpts := &EngineOptions{}
	for _, opt := range opts {
		opt(engineOpts)
	}
	return engineOpts
}

// withPublishing attaches the background metrics pipeline when metrics
// are enabled in the configuration. DataDog publishing takes precedence;
// otherwise snapshots go to the structured log.
func withPublishing(engine *cache.Engine, cfg *config.Config, engineOpts *EngineOptions) (Cache, error) {
	if !cfg.Metrics.Enabled {
		return engine, nil
	}

	var publisher metrics.Publisher
	if cfg.Metrics.DataDog.Enabled {
		var err error
		publisher, err = datadog.NewPublisher(&cfg.Metrics.DataDog, engineOpts.Logger)
		if err != nil {
			_ = engine.Close()
			return nil, err
		}
	} else {
		publisher = metrics.NewLoggingPublisher(engineOpts.Logger)
	}

	interval := cfg.Metrics.PublishInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	healthFn := func() *EngineHealth {
		health, err := engine.Health(context.Background())
		if err != nil {
			return nil
		}
		return health
	}

	background := metrics.NewBackgroundPublisher(
		publisher,
		interval,
		engine.Stats,
		healthFn,
		engineOpts.Logger,
		metrics.NamespaceTag(cfg.Namespace),
	)
	background.Start(context.Background())

	return &managedCache{
		Engine:     engine,
		publisher:  publisher,
		background: background,
	}, nil
}

// managedCache couples an engine with its background metrics publisher
// so a single Close tears both down.
type managedCache struct {
	*cache.Engine
	publisher  metrics.Publisher
	background *metrics.BackgroundPublisher
	closeOnce  sync.Once
	closeErr   error
}

// Close stops metrics publishing, then closes the engine. Idempotent.
func (m *managedCache) Close() error {
	m.closeOnce.Do(func() {
		m.background.Stop()
		m.closeErr = errors.Join(m.publisher.Close(), m.Engine.Close())
	})
	return m.closeErr
}
