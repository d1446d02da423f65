// Package monitoring records per-stage timings of a pipeline run.
package monitoring

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// StageMetrics represents performance metrics for a single pipeline stage.
type StageMetrics struct {
	Stage         string        `json:"stage"`
	Duration      time.Duration `json:"duration"`
	RowsProcessed int64         `json:"rows_processed"`
	BytesAlloc    int64         `json:"bytes_alloc"` // heap bytes allocated during the stage
	Failed        bool          `json:"failed,omitempty"`
}

// MetricsCollector collects and stores stage metrics.
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics []StageMetrics
	enabled bool
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(enabled bool) *MetricsCollector {
	return &MetricsCollector{
		metrics: make([]StageMetrics, 0),
		enabled: enabled,
	}
}

// IsEnabled returns whether metrics collection is enabled.
func (mc *MetricsCollector) IsEnabled() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.enabled
}

// SetEnabled enables or disables metrics collection.
func (mc *MetricsCollector) SetEnabled(enabled bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.enabled = enabled
}

// RecordOperation executes fn and records its duration, allocation and the
// row count it reports. Failed stages are recorded too.
func (mc *MetricsCollector) RecordOperation(stage string, fn func() (int, error)) error {
	if !mc.IsEnabled() {
		_, err := fn()
		return err
	}

	var memBefore runtime.MemStats
	runtime.ReadMemStats(&memBefore)

	start := time.Now()
	rows, err := fn()
	duration := time.Since(start)

	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	metrics := StageMetrics{
		Stage:         stage,
		Duration:      duration,
		RowsProcessed: int64(rows),
		BytesAlloc:    int64(memAfter.TotalAlloc - memBefore.TotalAlloc), //nolint:gosec // TotalAlloc is monotonic
		Failed:        err != nil,
	}

	mc.mu.Lock()
	mc.metrics = append(mc.metrics, metrics)
	mc.mu.Unlock()

	return err
}

// GetMetrics returns a copy of all collected metrics.
func (mc *MetricsCollector) GetMetrics() []StageMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make([]StageMetrics, len(mc.metrics))
	copy(result, mc.metrics)
	return result
}

// Clear removes all collected metrics.
func (mc *MetricsCollector) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.metrics = mc.metrics[:0]
}

// GetSummary returns a summary of collected metrics.
func (mc *MetricsCollector) GetSummary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	if len(mc.metrics) == 0 {
		return MetricsSummary{}
	}

	summary := MetricsSummary{TotalStages: len(mc.metrics)}
	for _, metric := range mc.metrics {
		summary.TotalDuration += metric.Duration
		summary.TotalBytes += metric.BytesAlloc
		if summary.Slowest == "" || metric.Duration > summary.slowestDuration {
			summary.Slowest = metric.Stage
			summary.slowestDuration = metric.Duration
		}
	}
	return summary
}

// MetricsSummary provides aggregate statistics for collected metrics.
type MetricsSummary struct {
	TotalStages   int           `json:"total_stages"`
	TotalDuration time.Duration `json:"total_duration"`
	TotalBytes    int64         `json:"total_bytes"`
	Slowest       string        `json:"slowest"`

	slowestDuration time.Duration
}

// Table renders the collected metrics with FormatTable.
func (mc *MetricsCollector) Table() string {
	return FormatTable(mc.GetMetrics())
}

// FormatTable renders metrics as aligned text, one stage per line.
func FormatTable(metrics []StageMetrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-16s %12s %10s %12s\n", "stage", "duration", "rows", "alloc")
	for _, m := range metrics {
		status := ""
		if m.Failed {
			status = " (failed)"
		}
		fmt.Fprintf(&b, "%-16s %12s %10d %12s%s\n",
			m.Stage, m.Duration.Round(time.Microsecond), m.RowsProcessed, formatBytes(m.BytesAlloc), status)
	}
	return b.String()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
