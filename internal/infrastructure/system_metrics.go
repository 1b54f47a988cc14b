package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeMetrics records Go runtime health alongside the pipeline
// business metrics, so a stalled upload can be correlated with memory
// or goroutine growth on the same Prometheus scrape.
type RuntimeMetrics struct {
	goroutines    metric.Int64Gauge
	heapAlloc     metric.Int64Gauge
	heapSys       metric.Int64Gauge
	gcTotal       metric.Int64Counter
	gcPause       metric.Float64Histogram
	processUptime metric.Float64Gauge

	lastNumGC uint32
}

// NewRuntimeMetrics registers the runtime instruments on the meter.
func NewRuntimeMetrics(meter metric.Meter) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64Gauge(
		"runtime_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	heapAlloc, err := meter.Int64Gauge(
		"runtime_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	heapSys, err := meter.Int64Gauge(
		"runtime_heap_sys_bytes",
		metric.WithDescription("Heap memory obtained from the OS"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcTotal, err := meter.Int64Counter(
		"runtime_gc_total",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	gcPause, err := meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Garbage collection pause duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the server started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &RuntimeMetrics{
		goroutines:    goroutines,
		heapAlloc:     heapAlloc,
		heapSys:       heapSys,
		gcTotal:       gcTotal,
		gcPause:       gcPause,
		processUptime: processUptime,
	}, nil
}

// Collect samples the runtime and records one observation per instrument.
// GC cycles are reported as a delta since the previous sample.
func (rm *RuntimeMetrics) Collect(ctx context.Context, startTime time.Time) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	rm.goroutines.Record(ctx, int64(runtime.NumGoroutine()))
	rm.heapAlloc.Record(ctx, int64(memStats.Alloc))
	rm.heapSys.Record(ctx, int64(memStats.Sys))
	rm.processUptime.Record(ctx, time.Since(startTime).Seconds())

	if cycles := memStats.NumGC - rm.lastNumGC; cycles > 0 {
		rm.gcTotal.Add(ctx, int64(cycles))
		pause := time.Duration(memStats.PauseNs[(memStats.NumGC+255)%256])
		rm.gcPause.Record(ctx, pause.Seconds())
	}
	rm.lastNumGC = memStats.NumGC
}

// SystemMetricsCollector samples runtime metrics on a fixed interval
// for the lifetime of the server.
type SystemMetricsCollector struct {
	metrics   *RuntimeMetrics
	startTime time.Time
	interval  time.Duration
	stopCh    chan struct{}
}

// NewSystemMetricsCollector creates a collector that samples every interval.
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration) (*SystemMetricsCollector, error) {
	metrics, err := NewRuntimeMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		startTime: time.Now(),
		interval:  interval,
		stopCh:    make(chan struct{}),
	}, nil
}

// Start samples until the context is cancelled or Stop is called.
func (smc *SystemMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(smc.interval)
	defer ticker.Stop()

	smc.metrics.Collect(ctx, smc.startTime)

	for {
		select {
		case <-ticker.C:
			smc.metrics.Collect(ctx, smc.startTime)
		case <-smc.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the sampling loop.
func (smc *SystemMetricsCollector) Stop() {
	close(smc.stopCh)
}
