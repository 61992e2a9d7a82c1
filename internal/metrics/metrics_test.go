package metrics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shelflife/shelflife/internal/types"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	if tracker == nil {
		t.Fatal("NewTracker() returned nil")
	}

	snapshot := tracker.Snapshot()
	if snapshot.Hits != 0 {
		t.Errorf("initial Hits = %d, want 0", snapshot.Hits)
	}
}

func TestTrackerRecordHit(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordHit("short", 10*time.Millisecond)
	tracker.RecordHit("long", 10*time.Millisecond)

	snapshot := tracker.Snapshot()
	if snapshot.Hits != 2 {
		t.Errorf("Hits = %d, want 2", snapshot.Hits)
	}
}

func TestTrackerRecordRefresh(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordRefresh("short", 5*time.Millisecond)

	snapshot := tracker.Snapshot()
	if snapshot.Refreshes != 1 {
		t.Errorf("Refreshes = %d, want 1", snapshot.Refreshes)
	}
	if snapshot.Hits != 0 {
		t.Errorf("Hits = %d, want 0", snapshot.Hits)
	}
}

func TestTrackerRecordSynthesized(t *testing.T) {
	tracker := NewTracker()

	tracker.RecordSynthesized(2 * time.Millisecond)

	snapshot := tracker.Snapshot()
	if snapshot.Synthesized != 1 {
		t.Errorf("Synthesized = %d, want 1", snapshot.Synthesized)
	}
}

func TestTrackerRecordSet(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordSet("short", 100, 15*time.Millisecond)

	snapshot := tracker.Snapshot()
	if snapshot.Sets != 1 {
		t.Errorf("Sets = %d, want 1", snapshot.Sets)
	}
	if got := tracker.BytesWritten(); got != 100 {
		t.Errorf("BytesWritten() = %d, want 100", got)
	}
}

func TestTrackerRecordDelete(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordDelete("long", 5*time.Millisecond)

	snapshot := tracker.Snapshot()
	if snapshot.Deletes != 1 {
		t.Errorf("Deletes = %d, want 1", snapshot.Deletes)
	}
}

func TestTrackerRecordWipe(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordWipe()

	snapshot := tracker.Snapshot()
	if snapshot.Wipes != 1 {
		t.Errorf("Wipes = %d, want 1", snapshot.Wipes)
	}
}

func TestTrackerRecordError(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordError("redis", "read", errors.New("connection refused"))

	snapshot := tracker.Snapshot()
	if snapshot.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snapshot.Errors)
	}
}

func TestTrackerSnapshot(t *testing.T) {
	tracker := NewTracker()

	// Record various operations
	tracker.RecordHit("short", 10*time.Millisecond)
	tracker.RecordHit("short", 20*time.Millisecond)
	tracker.RecordRefresh("long", 30*time.Millisecond)
	tracker.RecordSynthesized(1 * time.Millisecond)
	tracker.RecordSet("short", 256, 15*time.Millisecond)
	tracker.RecordDelete("long", 5*time.Millisecond)
	tracker.RecordError("redis", "read", errors.New("timeout"))

	snapshot := tracker.Snapshot()

	if snapshot.Hits != 2 {
		t.Errorf("Hits = %d, want 2", snapshot.Hits)
	}
	if snapshot.Refreshes != 1 {
		t.Errorf("Refreshes = %d, want 1", snapshot.Refreshes)
	}
	if snapshot.Synthesized != 1 {
		t.Errorf("Synthesized = %d, want 1", snapshot.Synthesized)
	}
	if snapshot.Sets != 1 {
		t.Errorf("Sets = %d, want 1", snapshot.Sets)
	}
	if snapshot.Deletes != 1 {
		t.Errorf("Deletes = %d, want 1", snapshot.Deletes)
	}
	if snapshot.Errors != 1 {
		t.Errorf("Errors = %d, want 1", snapshot.Errors)
	}
	if snapshot.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}

	// 2 hits out of 4 gets
	if ratio := snapshot.HitRatio(); ratio != 0.5 {
		t.Errorf("HitRatio() = %f, want 0.5", ratio)
	}
}

func TestTrackerLatencyPercentiles(t *testing.T) {
	tracker := NewTracker()

	// Record operations with varying latencies
	latencies := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
		50 * time.Millisecond,
		60 * time.Millisecond,
		70 * time.Millisecond,
		80 * time.Millisecond,
		90 * time.Millisecond,
		100 * time.Millisecond,
	}

	for _, lat := range latencies {
		tracker.RecordHit("short", lat)
	}

	snapshot := tracker.Snapshot()

	// Average should be around 55ms
	if snapshot.AvgLatencyMs < 50 || snapshot.AvgLatencyMs > 60 {
		t.Errorf("AvgLatencyMs = %f, want ~55", snapshot.AvgLatencyMs)
	}

	// P50 should be around 50ms
	if snapshot.P50LatencyMs < 40 || snapshot.P50LatencyMs > 60 {
		t.Errorf("P50LatencyMs = %f, want ~50", snapshot.P50LatencyMs)
	}

	// P95 should be around 90-100ms
	if snapshot.P95LatencyMs < 80 || snapshot.P95LatencyMs > 110 {
		t.Errorf("P95LatencyMs = %f, want ~90-100", snapshot.P95LatencyMs)
	}
}

func TestTrackerSubMillisecondLatency(t *testing.T) {
	tracker := NewTracker()

	// Index hits are routinely far below a millisecond; the snapshot
	// must not truncate them to zero.
	tracker.RecordHit("short", 250*time.Microsecond)
	tracker.RecordHit("short", 750*time.Microsecond)

	snapshot := tracker.Snapshot()
	if snapshot.AvgLatencyMs != 0.5 {
		t.Errorf("AvgLatencyMs = %f, want 0.5", snapshot.AvgLatencyMs)
	}
}

func TestTrackerReset(t *testing.T) {
	tracker := NewTracker()

	// Record some data
	tracker.RecordHit("short", 10*time.Millisecond)
	tracker.RecordRefresh("long", 20*time.Millisecond)
	tracker.RecordSet("short", 100, 15*time.Millisecond)
	tracker.RecordWipe()
	tracker.RecordError("redis", "read", errors.New("error"))

	// Reset
	tracker.Reset()

	snapshot := tracker.Snapshot()
	if snapshot.Hits != 0 {
		t.Errorf("after reset Hits = %d, want 0", snapshot.Hits)
	}
	if snapshot.Refreshes != 0 {
		t.Errorf("after reset Refreshes = %d, want 0", snapshot.Refreshes)
	}
	if snapshot.Sets != 0 {
		t.Errorf("after reset Sets = %d, want 0", snapshot.Sets)
	}
	if snapshot.Wipes != 0 {
		t.Errorf("after reset Wipes = %d, want 0", snapshot.Wipes)
	}
	if snapshot.Errors != 0 {
		t.Errorf("after reset Errors = %d, want 0", snapshot.Errors)
	}
	if tracker.BytesWritten() != 0 {
		t.Errorf("after reset BytesWritten() = %d, want 0", tracker.BytesWritten())
	}
	// Latency stats should be zero
	if snapshot.AvgLatencyMs != 0 {
		t.Errorf("after reset AvgLatencyMs = %f, want 0", snapshot.AvgLatencyMs)
	}
}

func TestTrackerLatencyCircularBuffer(t *testing.T) {
	tracker := NewTracker()

	// Record more than the buffer size
	// The buffer size is defaultLatencyBufferSize (10000)
	// Record many entries to test circular buffer behavior
	for i := 0; i < 150; i++ {
		tracker.RecordHit("short", time.Duration(i)*time.Millisecond)
	}

	// Should have exactly 150 entries (buffer not full yet)
	tracker.latencyMu.RLock()
	count := tracker.latencyCount
	tracker.latencyMu.RUnlock()

	if count != 150 {
		t.Errorf("latencies count = %d, want 150", count)
	}

	// Verify snapshot works correctly
	snapshot := tracker.Snapshot()
	if snapshot.AvgLatencyMs == 0 {
		t.Error("AvgLatencyMs should not be zero")
	}
}

func TestTrackerConcurrency(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup

	// Run concurrent operations
	for i := 0; i < 100; i++ {
		wg.Add(4)
		go func() {
			defer wg.Done()
			tracker.RecordHit("short", 10*time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			tracker.RecordRefresh("long", 20*time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			tracker.RecordSet("short", 100, 15*time.Millisecond)
		}()
		go func() {
			defer wg.Done()
			tracker.Snapshot()
		}()
	}

	wg.Wait()

	// Should have recorded all operations
	snapshot := tracker.Snapshot()
	if snapshot.Hits != 100 {
		t.Errorf("Hits = %d, want 100", snapshot.Hits)
	}
	if snapshot.Refreshes != 100 {
		t.Errorf("Refreshes = %d, want 100", snapshot.Refreshes)
	}
	if snapshot.Sets != 100 {
		t.Errorf("Sets = %d, want 100", snapshot.Sets)
	}
}

func TestLoggingPublisher(t *testing.T) {
	t.Run("creates with default logger", func(t *testing.T) {
		publisher := NewLoggingPublisher(nil)
		if publisher == nil {
			t.Fatal("NewLoggingPublisher(nil) returned nil")
		}
	})

	t.Run("creates with custom logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		publisher := NewLoggingPublisher(logger)
		if publisher == nil {
			t.Fatal("NewLoggingPublisher() returned nil")
		}
	})

	t.Run("gauge metric", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		publisher := NewLoggingPublisher(logger)

		publisher.Gauge("test.metric", 42.5, "tag1:value1")

		output := buf.String()
		if output == "" {
			t.Error("expected log output for gauge")
		}
	})

	t.Run("incr metric", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		publisher := NewLoggingPublisher(logger)

		publisher.Incr("test.counter", "operation:get")

		output := buf.String()
		if output == "" {
			t.Error("expected log output for incr")
		}
	})

	t.Run("timing metric", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		publisher := NewLoggingPublisher(logger)

		publisher.Timing("test.latency", 100*time.Millisecond, "backend:memory")

		output := buf.String()
		if output == "" {
			t.Error("expected log output for timing")
		}
	})

	t.Run("event", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		publisher := NewLoggingPublisher(logger)

		publisher.Event("Test Event", "This is a test event", "info", "source:test")

		output := buf.String()
		if output == "" {
			t.Error("expected log output for event")
		}
	})

	t.Run("close returns nil", func(t *testing.T) {
		publisher := NewLoggingPublisher(nil)
		if err := publisher.Close(); err != nil {
			t.Errorf("Close() error = %v, want nil", err)
		}
	})
}

func TestBackgroundPublisher(t *testing.T) {
	emptyStats := func() types.MetricsSnapshot {
		return types.MetricsSnapshot{}
	}

	t.Run("creates with nil logger", func(t *testing.T) {
		publisher := NewNoOpPublisher()
		bg := NewBackgroundPublisher(publisher, 10*time.Millisecond, emptyStats, nil, nil)
		if bg == nil {
			t.Fatal("NewBackgroundPublisher() returned nil")
		}
	})

	t.Run("start and stop", func(t *testing.T) {
		publisher := &trackingPublisher{}
		tracker := NewTracker()
		tracker.RecordHit("short", 10*time.Millisecond)
		bg := NewBackgroundPublisher(publisher, 10*time.Millisecond, tracker.Snapshot, nil, nil)

		ctx := context.Background()
		bg.Start(ctx)
		time.Sleep(50 * time.Millisecond) // Let it publish a few times
		bg.Stop()

		if publisher.publishCount.Load() < 1 {
			t.Error("expected at least one publish before stop")
		}
	})

	t.Run("publishes on stop", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, 1*time.Hour, emptyStats, nil, nil) // Long interval

		ctx := context.Background()
		bg.Start(ctx)
		countBefore := publisher.publishCount.Load()
		bg.Stop()
		countAfter := publisher.publishCount.Load()

		if countAfter <= countBefore {
			t.Error("expected publish on stop")
		}
	})

	t.Run("publish now", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, 1*time.Hour, emptyStats, nil, nil)

		ctx := context.Background()
		bg.Start(ctx)
		bg.PublishNow()
		bg.Stop()

		if publisher.publishCount.Load() < 2 {
			t.Error("expected at least 2 publishes (PublishNow + Stop)")
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		publisher := &trackingPublisher{}
		bg := NewBackgroundPublisher(publisher, 10*time.Millisecond, emptyStats, nil, nil)

		ctx, cancel := context.WithCancel(context.Background())
		bg.Start(ctx)
		time.Sleep(30 * time.Millisecond)
		cancel() // Cancel context
		bg.Stop()

		// Should have published at least once
		if publisher.publishCount.Load() < 1 {
			t.Error("expected at least one publish")
		}
	})

	t.Run("emits snapshot gauges", func(t *testing.T) {
		publisher := &trackingPublisher{}
		statsFn := func() types.MetricsSnapshot {
			return types.MetricsSnapshot{
				Hits:         8,
				Refreshes:    1,
				Synthesized:  1,
				Sets:         4,
				IndexEntries: 5,
			}
		}
		bg := NewBackgroundPublisher(publisher, 1*time.Hour, statsFn, nil, nil, NamespaceTag("orders"))

		bg.PublishNow()

		if got, ok := publisher.lastGauge("index.entries"); !ok || got.value != 5 {
			t.Errorf("index.entries gauge = %v, %v, want 5", got.value, ok)
		}
		if got, ok := publisher.lastGauge("performance.hit_ratio"); !ok || got.value != 0.8 {
			t.Errorf("performance.hit_ratio gauge = %v, %v, want 0.8", got.value, ok)
		}
		if got, ok := publisher.lastGauge("operations.sets"); !ok || got.value != 4 {
			t.Errorf("operations.sets gauge = %v, %v, want 4", got.value, ok)
		}
		if got, _ := publisher.lastGauge("operations.hits"); !slices.Contains(got.tags, "namespace:orders") {
			t.Errorf("operations.hits tags = %v, want namespace:orders", got.tags)
		}
	})

	t.Run("emits store gauges when health is wired", func(t *testing.T) {
		publisher := &trackingPublisher{}
		healthFn := func() *types.EngineHealth {
			return &types.EngineHealth{
				Short: types.StoreHealth{Name: "memory", Available: true, Latency: 2 * time.Millisecond},
				Long:  types.StoreHealth{Name: "redis", Available: false},
			}
		}
		bg := NewBackgroundPublisher(publisher, 1*time.Hour, emptyStats, healthFn, nil)

		bg.PublishNow()

		calls := publisher.findGauges("store.available")
		if len(calls) != 2 {
			t.Fatalf("store.available gauges = %d, want 2", len(calls))
		}
		for _, call := range calls {
			switch {
			case slices.Contains(call.tags, "backend:memory"):
				if call.value != 1 {
					t.Errorf("memory store.available = %v, want 1", call.value)
				}
			case slices.Contains(call.tags, "backend:redis"):
				if call.value != 0 {
					t.Errorf("redis store.available = %v, want 0", call.value)
				}
			default:
				t.Errorf("store.available call has no backend tag: %v", call.tags)
			}
		}
	})
}

func TestNoOpTracker(t *testing.T) {
	tracker := NewNoOpTracker()

	// All methods should be no-ops
	tracker.RecordHit("short", 10*time.Millisecond)
	tracker.RecordRefresh("long", 10*time.Millisecond)
	tracker.RecordSynthesized(10 * time.Millisecond)
	tracker.RecordSet("short", 100, 10*time.Millisecond)
	tracker.RecordDelete("long", 10*time.Millisecond)
	tracker.RecordWipe()
	tracker.RecordError("redis", "read", errors.New("error"))
	tracker.Reset()

	snapshot := tracker.Snapshot()
	if snapshot.Hits != 0 {
		t.Errorf("NoOp Hits = %d, want 0", snapshot.Hits)
	}
}

func TestNoOpPublisher(t *testing.T) {
	publisher := NewNoOpPublisher()

	// All methods should be no-ops without error
	publisher.Gauge("test", 1.0, "tag:value")
	publisher.Incr("test", "tag:value")
	publisher.Count("test", 10, "tag:value")
	publisher.Histogram("test", 1.5, "tag:value")
	publisher.Timing("test", time.Second, "tag:value")
	publisher.Event("title", "text", "info", "tag:value")

	err := publisher.Close()
	if err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestAvgDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		expected  time.Duration
	}{
		{"empty", []time.Duration{}, 0},
		{"single", []time.Duration{10 * time.Millisecond}, 10 * time.Millisecond},
		{"multiple", []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond}, 20 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := avgDuration(tt.durations)
			if result != tt.expected {
				t.Errorf("avgDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		p         int
		expected  time.Duration
	}{
		{"empty", []time.Duration{}, 50, 0},
		{"single_p50", []time.Duration{10 * time.Millisecond}, 50, 10 * time.Millisecond},
		{"ten_values_p50", []time.Duration{
			1 * time.Millisecond,
			2 * time.Millisecond,
			3 * time.Millisecond,
			4 * time.Millisecond,
			5 * time.Millisecond,
			6 * time.Millisecond,
			7 * time.Millisecond,
			8 * time.Millisecond,
			9 * time.Millisecond,
			10 * time.Millisecond,
		}, 50, 5 * time.Millisecond},
		{"ten_values_p90", []time.Duration{
			1 * time.Millisecond,
			2 * time.Millisecond,
			3 * time.Millisecond,
			4 * time.Millisecond,
			5 * time.Millisecond,
			6 * time.Millisecond,
			7 * time.Millisecond,
			8 * time.Millisecond,
			9 * time.Millisecond,
			10 * time.Millisecond,
		}, 90, 9 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := percentile(tt.durations, tt.p)
			if result != tt.expected {
				t.Errorf("percentile(%d) = %v, want %v", tt.p, result, tt.expected)
			}
		})
	}
}

func TestDurationMs(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected float64
	}{
		{"zero", 0, 0},
		{"sub_millisecond", 1500 * time.Microsecond, 1.5},
		{"whole_milliseconds", 10 * time.Millisecond, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := durationMs(tt.duration)
			if result != tt.expected {
				t.Errorf("durationMs() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestTagHelpers(t *testing.T) {
	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"Tag", func() string { return Tag("key", "value") }, "key:value"},
		{"NamespaceTag", func() string { return NamespaceTag("orders") }, "namespace:orders"},
		{"BackendTag", func() string { return BackendTag("redis") }, "backend:redis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.fn()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestTimer(t *testing.T) {
	publisher := &trackingPublisher{}

	timer := NewTimer(publisher, "test.operation", "backend:memory")

	// Simulate some work
	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Elapsed()
	if elapsed < 10*time.Millisecond {
		t.Errorf("Elapsed() = %v, want >= 10ms", elapsed)
	}

	duration := timer.Stop()
	if duration < 10*time.Millisecond {
		t.Errorf("Stop() = %v, want >= 10ms", duration)
	}

	if publisher.timingCount.Load() != 1 {
		t.Errorf("timingCount = %d, want 1", publisher.timingCount.Load())
	}
}

// Helper for testing publishers. A publish cycle always leads with the
// index.entries gauge, so that name doubles as the cycle counter.
type gaugeCall struct {
	name  string
	value float64
	tags  []string
}

type trackingPublisher struct {
	mu           sync.Mutex
	gauges       []gaugeCall
	publishCount atomic.Int64
	timingCount  atomic.Int64
}

func (p *trackingPublisher) Gauge(name string, value float64, tags ...string) {
	if name == "index.entries" {
		p.publishCount.Add(1)
	}
	p.mu.Lock()
	p.gauges = append(p.gauges, gaugeCall{name: name, value: value, tags: slices.Clone(tags)})
	p.mu.Unlock()
}

func (p *trackingPublisher) Incr(name string, tags ...string)                     {}
func (p *trackingPublisher) Count(name string, value int64, tags ...string)       {}
func (p *trackingPublisher) Histogram(name string, value float64, tags ...string) {}
func (p *trackingPublisher) Timing(name string, duration time.Duration, tags ...string) {
	p.timingCount.Add(1)
}
func (p *trackingPublisher) Event(title, text, alertType string, tags ...string) {}
func (p *trackingPublisher) Close() error                                        { return nil }

func (p *trackingPublisher) findGauges(name string) []gaugeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []gaugeCall
	for _, call := range p.gauges {
		if call.name == name {
			out = append(out, call)
		}
	}
	return out
}

func (p *trackingPublisher) lastGauge(name string) (gaugeCall, bool) {
	calls := p.findGauges(name)
	if len(calls) == 0 {
		return gaugeCall{}, false
	}
	return calls[len(calls)-1], true
}

var _ Publisher = (*trackingPublisher)(nil)
