package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is one sample of the process state
type RuntimeStats struct {
	Goroutines  int64
	HeapAlloc   int64
	HeapSys     int64
	GCCount     uint32
	LastGCPause time.Duration
	Uptime      time.Duration
	Timestamp   time.Time
}

// RuntimeMetrics records Go runtime gauges. Uploaded tables live in
// memory, so heap size is the figure to watch.
type RuntimeMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	heapSys    metric.Int64Gauge
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge

	lastGC uint32
}

// NewRuntimeMetrics creates the runtime instruments on meter
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	var m RuntimeMetrics
	var err error

	if m.goroutines, err = meter.Int64Gauge("netdash_goroutines",
		metric.WithDescription("Number of live goroutines")); err != nil {
		return nil, err
	}
	if m.heapAlloc, err = meter.Int64Gauge("netdash_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.heapSys, err = meter.Int64Gauge("netdash_heap_sys_bytes",
		metric.WithDescription("Bytes of heap memory obtained from the OS"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.gcPause, err = meter.Float64Histogram("netdash_gc_pause_seconds",
		metric.WithDescription("Stop-the-world pause of each garbage collection"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.uptime, err = meter.Float64Gauge("netdash_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return &m, nil
}

// Collect samples the runtime and records the sample
func (m *RuntimeMetrics) Collect(ctx context.Context, started time.Time) RuntimeStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := RuntimeStats{
		Goroutines:  int64(runtime.NumGoroutine()),
		HeapAlloc:   int64(ms.HeapAlloc),
		HeapSys:     int64(ms.HeapSys),
		GCCount:     ms.NumGC,
		LastGCPause: time.Duration(ms.PauseNs[(ms.NumGC+255)%256]),
		Uptime:      time.Since(started),
		Timestamp:   time.Now(),
	}

	m.goroutines.Record(ctx, stats.Goroutines)
	m.heapAlloc.Record(ctx, stats.HeapAlloc)
	m.heapSys.Record(ctx, stats.HeapSys)
	m.uptime.Record(ctx, stats.Uptime.Seconds())

	// Only pauses of collections since the previous sample
	if stats.GCCount != m.lastGC && stats.LastGCPause > 0 {
		m.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}
	m.lastGC = stats.GCCount

	return stats
}

// RuntimeCollector samples the runtime on an interval
type RuntimeCollector struct {
	metrics  *RuntimeMetrics
	started  time.Time
	interval time.Duration
	logger   *slog.Logger
}

// NewRuntimeCollector creates a collector sampling every interval
func NewRuntimeCollector(meter metric.Meter, interval time.Duration, logger *slog.Logger) (*RuntimeCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuntimeCollector{
		metrics:  metrics,
		started:  time.Now(),
		interval: interval,
		logger:   logger.With(slog.String("component", "runtime_metrics")),
	}, nil
}

// Run samples until ctx is done. It always returns nil so it can run in
// an errgroup next to the server.
func (c *RuntimeCollector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.started)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := c.metrics.Collect(ctx, c.started)
			c.logger.DebugContext(ctx, "runtime sampled",
				slog.Int64("goroutines", stats.Goroutines),
				slog.Int64("heap_alloc_bytes", stats.HeapAlloc))
		}
	}
}

// Sample records and returns the current runtime state
func (c *RuntimeCollector) Sample(ctx context.Context) RuntimeStats {
	return c.metrics.Collect(ctx, c.started)
}
