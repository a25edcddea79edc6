// Package metrics records per-attempt outcomes and latencies in a
// thread-safe collector and exposes aggregate statistics.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records attempt outcomes in a thread-safe manner.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	statusCounts map[string]int64
	start        time.Time
}

// Stats represents aggregated run metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Succeeded      int64         `json:"succeeded"`
	Failed         int64         `json:"failed"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	AttemptsPerSec float64       `json:"attempts_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms"`
	DurationMs    float64        `json:"duration_ms"`
	StatusCounts  map[string]int `json:"status_counts,omitempty"`
}

func NewCollector() *Collector {
	// Track attempt latencies from 1ms up to 10m with 3 significant figures;
	// a browser-backed attempt is orders of magnitude slower than a bare
	// HTTP request.
	h := hdrhistogram.New(1, 600_000, 3)
	return &Collector{
		hist:         h,
		statusCounts: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the actual beginning of the run for elapsed-time calculations.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = time.Now()
}

// RecordAttempt records a single attempt's latency, outcome and status label
// ("-" when no HTTP response was observed).
func (c *Collector) RecordAttempt(latency time.Duration, ok bool, statusLabel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		ms := latency.Milliseconds()
		if ms < c.hist.LowestTrackableValue() {
			ms = c.hist.LowestTrackableValue()
		}
		if ms > c.hist.HighestTrackableValue() {
			ms = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(ms)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if ok {
		c.successes++
	} else {
		c.failures++
	}
	if statusLabel != "" {
		c.statusCounts[statusLabel]++
	}
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	stats := Stats{
		Total:      total,
		Succeeded:  c.successes,
		Failed:     c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / total)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Millisecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Millisecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Millisecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)

	stats.Duration = elapsed
	stats.DurationMs = float64(elapsed) / float64(time.Millisecond)
	if elapsed > 0 && total > 0 {
		stats.AttemptsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.statusCounts) > 0 {
		stats.StatusCounts = make(map[string]int, len(c.statusCounts))
		for k, v := range c.statusCounts {
			stats.StatusCounts[k] = int(v)
		}
	}

	return stats
}

// Elapsed returns the time since the run started.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}
