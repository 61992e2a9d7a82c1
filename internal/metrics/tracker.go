// Package metrics provides cache operation metrics collection and publishing.
package metrics

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shelflife/shelflife/internal/types"
)

const (
	defaultLatencyBufferSize = 10000
)

type Tracker struct {
	hits        atomic.Int64
	refreshes   atomic.Int64
	synthesized atomic.Int64

	setCount    atomic.Int64
	deleteCount atomic.Int64
	wipeCount   atomic.Int64

	errorCount atomic.Int64

	latencyMu     sync.RWMutex
	latencyBuffer []time.Duration
	latencyIndex  int
	latencyCount  int

	totalBytesWritten atomic.Int64
}

func NewTracker() *Tracker {
	return &Tracker{
		latencyBuffer: make([]time.Duration, defaultLatencyBufferSize),
	}
}

func (t *Tracker) RecordHit(class string, latency time.Duration) {
	t.hits.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordRefresh(class string, latency time.Duration) {
	t.refreshes.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordSynthesized(latency time.Duration) {
	t.synthesized.Add(1)
	t.recordLatency(latency)
}

func (t *Tracker) RecordSet(class string, size int, latency time.Duration) {
	t.setCount.Add(1)
	t.totalBytesWritten.Add(int64(size))
	t.recordLatency(latency)
}

// RecordDelete records a delete operation.
func (t *Tracker) RecordDelete(class string, latency time.Duration) {
	t.deleteCount.Add(1)
	t.recordLatency(latency)
}

// RecordWipe records a full namespace wipe.
func (t *Tracker) RecordWipe() {
	t.wipeCount.Add(1)
}

// RecordError records a store fault absorbed by silent degradation.
func (t *Tracker) RecordError(backend string, operation string, err error) {
	t.errorCount.Add(1)
}

// BytesWritten returns the total payload bytes persisted so far.
func (t *Tracker) BytesWritten() int64 {
	return t.totalBytesWritten.Load()
}

// recordLatency adds a latency measurement using a circular buffer.
// This is O(1) time complexity with no memory allocations.
func (t *Tracker) recordLatency(latency time.Duration) {
	t.latencyMu.Lock()
	t.latencyBuffer[t.latencyIndex] = latency
	t.latencyIndex = (t.latencyIndex + 1) % len(t.latencyBuffer)
	if t.latencyCount < len(t.latencyBuffer) {
		t.latencyCount++
	}
	t.latencyMu.Unlock()
}

// Snapshot returns current metrics snapshot.
func (t *Tracker) Snapshot() types.MetricsSnapshot {
	// Use RLock for reading - allows concurrent snapshots
	t.latencyMu.RLock()
	count := t.latencyCount
	latencyCopy := make([]time.Duration, count)
	// Copy from circular buffer in correct order
	if count > 0 {
		if count < len(t.latencyBuffer) {
			// Buffer not full yet - data starts at 0
			copy(latencyCopy, t.latencyBuffer[:count])
		} else {
			// Buffer is full - oldest data starts at latencyIndex
			firstPart := len(t.latencyBuffer) - t.latencyIndex
			copy(latencyCopy[:firstPart], t.latencyBuffer[t.latencyIndex:])
			copy(latencyCopy[firstPart:], t.latencyBuffer[:t.latencyIndex])
		}
	}
	t.latencyMu.RUnlock()

	snapshot := types.MetricsSnapshot{
		Timestamp:   time.Now(),
		Hits:        t.hits.Load(),
		Refreshes:   t.refreshes.Load(),
		Synthesized: t.synthesized.Load(),
		Sets:        t.setCount.Load(),
		Deletes:     t.deleteCount.Load(),
		Wipes:       t.wipeCount.Load(),
		Errors:      t.errorCount.Load(),
	}

	// Calculate latency percentiles. Index hits finish in microseconds,
	// so fractional milliseconds are kept instead of truncating.
	if len(latencyCopy) > 0 {
		snapshot.AvgLatencyMs = durationMs(avgDuration(latencyCopy))
		snapshot.P50LatencyMs = durationMs(percentile(latencyCopy, 50))
		snapshot.P95LatencyMs = durationMs(percentile(latencyCopy, 95))
		snapshot.P99LatencyMs = durationMs(percentile(latencyCopy, 99))
	}

	return snapshot
}

// Reset clears all metrics.
func (t *Tracker) Reset() {
	t.hits.Store(0)
	t.refreshes.Store(0)
	t.synthesized.Store(0)
	t.setCount.Store(0)
	t.deleteCount.Store(0)
	t.wipeCount.Store(0)
	t.errorCount.Store(0)
	t.totalBytesWritten.Store(0)

	t.latencyMu.Lock()
	t.latencyIndex = 0
	t.latencyCount = 0
	t.latencyMu.Unlock()
}

// Helper functions for latency calculations

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func avgDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	return total / time.Duration(len(durations))
}

func percentile(durations []time.Duration, p int) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	// Sort a copy
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	slices.Sort(sorted)

	idx := (len(sorted) - 1) * p / 100
	return sorted[idx]
}

// Ensure Tracker implements MetricsRecorder
var _ types.MetricsRecorder = (*Tracker)(nil)
