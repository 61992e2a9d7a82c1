package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shelflife/shelflife/internal/types"
)

// BackgroundPublisher publishes engine metrics at regular intervals
// with context-based cancellation support.
type BackgroundPublisher struct {
	publisher Publisher
	logger    *slog.Logger
	statsFn   func() types.MetricsSnapshot
	healthFn  func() *types.EngineHealth
	baseTags  []string
	cancel    context.CancelFunc
	ctx       context.Context
	wg        sync.WaitGroup
	interval  time.Duration
}

// NewBackgroundPublisher creates a new background publisher.
// The statsFn is called on each interval to get the current snapshot.
// The healthFn may be nil, in which case no store gauges are emitted.
func NewBackgroundPublisher(
	publisher Publisher,
	interval time.Duration,
	statsFn func() types.MetricsSnapshot,
	healthFn func() *types.EngineHealth,
	logger *slog.Logger,
	baseTags ...string,
) *BackgroundPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &BackgroundPublisher{
		publisher: publisher,
		interval:  interval,
		logger:    logger.With("component", "metrics-background"),
		statsFn:   statsFn,
		healthFn:  healthFn,
		baseTags:  baseTags,
	}
}

// Start begins the background publishing loop.
// The provided context controls the lifecycle of the background goroutine.
func (b *BackgroundPublisher) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.wg.Add(1)
	go b.run()
	b.logger.Info("Background metrics publisher started", "interval", b.interval)
}

// Stop cancels the background context and waits for shutdown.
func (b *BackgroundPublisher) Stop() {
	if b.cancel != nil {
		b.cancel()
	}
	b.wg.Wait()
	b.logger.Info("Background metrics publisher stopped")
}

func (b *BackgroundPublisher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			// Final publish before stopping
			b.publish()
			return
		case <-ticker.C:
			b.publish()
		}
	}
}

func (b *BackgroundPublisher) publish() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in metrics publisher", "panic", r)
		}
	}()

	if b.statsFn == nil {
		return
	}

	snap := b.statsFn()

	b.gauge("index.entries", float64(snap.IndexEntries))
	b.gauge("performance.hit_ratio", clamp(snap.HitRatio(), 0, 1))
	b.gauge("performance.avg_latency_ms", maxFloat(0, snap.AvgLatencyMs))
	b.gauge("performance.p95_latency_ms", maxFloat(0, snap.P95LatencyMs))

	b.gauge("operations.hits", float64(snap.Hits))
	b.gauge("operations.refreshes", float64(snap.Refreshes))
	b.gauge("operations.synthesized", float64(snap.Synthesized))
	b.gauge("operations.sets", float64(snap.Sets))
	b.gauge("operations.deletes", float64(snap.Deletes))
	b.gauge("operations.wipes", float64(snap.Wipes))
	b.gauge("operations.errors", float64(snap.Errors))

	if b.healthFn == nil {
		return
	}
	health := b.healthFn()
	if health == nil {
		return
	}
	for _, store := range []types.StoreHealth{health.Short, health.Long} {
		available := 0.0
		if store.Available {
			available = 1.0
		}
		tags := append(b.baseTags, BackendTag(store.Name))
		b.publisher.Gauge("store.available", available, tags...)
		b.publisher.Gauge("store.latency_ms", durationMs(store.Latency), tags...)
	}
}

func (b *BackgroundPublisher) gauge(name string, value float64) {
	b.publisher.Gauge(name, value, b.baseTags...)
}

// PublishNow triggers an immediate metrics publish.
func (b *BackgroundPublisher) PublishNow() {
	b.publish()
}

func clamp(val, minVal, maxVal float64) float64 {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
