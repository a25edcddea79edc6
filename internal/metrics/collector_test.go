package metrics_test

import (
	"testing"
	"time"

	"github.com/formdrill/formdrill/internal/metrics"
)

func TestCollectorCounts(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordAttempt(120*time.Millisecond, true, "200")
	c.RecordAttempt(250*time.Millisecond, true, "200")
	c.RecordAttempt(80*time.Millisecond, false, "403")
	c.RecordAttempt(30*time.Second, false, "-")

	stats := c.Stats(2 * time.Second)

	if stats.Total != 4 {
		t.Errorf("Total = %d, want 4", stats.Total)
	}
	if stats.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", stats.Succeeded)
	}
	if stats.Failed != 2 {
		t.Errorf("Failed = %d, want 2", stats.Failed)
	}
	if stats.MinLatency != 80*time.Millisecond {
		t.Errorf("MinLatency = %s, want 80ms", stats.MinLatency)
	}
	if stats.MaxLatency != 30*time.Second {
		t.Errorf("MaxLatency = %s, want 30s", stats.MaxLatency)
	}
	if stats.Duration != 2*time.Second {
		t.Errorf("Duration = %s, want 2s", stats.Duration)
	}
	if stats.AttemptsPerSec != 2.0 {
		t.Errorf("AttemptsPerSec = %.2f, want 2.00", stats.AttemptsPerSec)
	}
}

func TestCollectorStatusCounts(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordAttempt(time.Millisecond, true, "200")
	c.RecordAttempt(time.Millisecond, false, "500")
	c.RecordAttempt(time.Millisecond, false, "500")
	c.RecordAttempt(time.Millisecond, false, "-")

	stats := c.Stats(time.Second)

	if got := stats.StatusCounts["200"]; got != 1 {
		t.Errorf("StatusCounts[200] = %d, want 1", got)
	}
	if got := stats.StatusCounts["500"]; got != 2 {
		t.Errorf("StatusCounts[500] = %d, want 2", got)
	}
	if got := stats.StatusCounts["-"]; got != 1 {
		t.Errorf("StatusCounts[-] = %d, want 1", got)
	}
}

func TestCollectorEmpty(t *testing.T) {
	c := metrics.NewCollector()

	stats := c.Stats(time.Second)

	if stats.Total != 0 {
		t.Errorf("Total = %d, want 0", stats.Total)
	}
	if stats.AttemptsPerSec != 0 {
		t.Errorf("AttemptsPerSec = %.2f, want 0", stats.AttemptsPerSec)
	}
	if stats.MeanLatency != 0 {
		t.Errorf("MeanLatency = %s, want 0", stats.MeanLatency)
	}
}

func TestCollectorElapsed(t *testing.T) {
	c := metrics.NewCollector()
	c.Start()
	time.Sleep(5 * time.Millisecond)

	elapsed := c.Elapsed()
	if elapsed < 5*time.Millisecond {
		t.Errorf("Elapsed() = %s, want >= 5ms", elapsed)
	}

	c.RecordAttempt(100*time.Millisecond, true, "200")
	stats := c.Stats(c.Elapsed())
	if stats.AttemptsPerSec <= 0 {
		t.Errorf("AttemptsPerSec = %.2f, want > 0", stats.AttemptsPerSec)
	}
}

func TestCollectorPercentiles(t *testing.T) {
	c := metrics.NewCollector()

	for i := 1; i <= 100; i++ {
		c.RecordAttempt(time.Duration(i)*10*time.Millisecond, true, "200")
	}

	stats := c.Stats(time.Second)

	if stats.P50Latency < 400*time.Millisecond || stats.P50Latency > 600*time.Millisecond {
		t.Errorf("P50Latency = %s, want about 500ms", stats.P50Latency)
	}
	if stats.P99Latency < 900*time.Millisecond {
		t.Errorf("P99Latency = %s, want near the top of the range", stats.P99Latency)
	}
}
