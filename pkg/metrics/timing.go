// Package metrics keeps in-process timing statistics for bu's hot paths:
// snapshot reads, tree rebuilds, cycle checks, executor commands and view
// rendering.
//
// Collection is on by default; BU_METRICS=0 disables it. The totals are
// written to the log when the dashboard exits.
//
// Usage:
//
//	func (s *Store) ReadSnapshot(ctx context.Context) (model.Snapshot, error) {
//	    defer metrics.Timer(metrics.SnapshotRead)()
//	    ...
//	}
package metrics

import (
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("BU_METRICS") != "0")
}

// Enabled reports whether measurements are recorded.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// TimingMetric accumulates durations for one named operation.
// All methods are safe for concurrent use.
type TimingMetric struct {
	name    string
	count   atomic.Int64
	totalNs atomic.Int64
	maxNs   atomic.Int64
	minNs   atomic.Int64 // 0 means not set
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)

	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if old != 0 && ns >= old {
			break
		}
		if m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of measurements.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a consistent-enough copy of the counters.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	var avg int64
	if count > 0 {
		avg = total / count
	}
	return TimingStats{
		Name:  m.name,
		Count: count,
		Total: time.Duration(total),
		Avg:   time.Duration(avg),
		Max:   time.Duration(m.maxNs.Load()),
		Min:   time.Duration(m.minNs.Load()),
	}
}

// Reset clears all measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
}

// TimingStats is a snapshot of one metric.
type TimingStats struct {
	Name  string
	Count int64
	Total time.Duration
	Avg   time.Duration
	Max   time.Duration
	Min   time.Duration
}

// LogValue renders the stats as a log group.
func (s TimingStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("count", s.Count),
		slog.Duration("avg", s.Avg),
		slog.Duration("max", s.Max),
		slog.Duration("min", s.Min),
		slog.Duration("total", s.Total),
	)
}

// Timer returns a function that records the elapsed time when called.
//
//	defer metrics.Timer(metrics.TreeBuild)()
func Timer(m *TimingMetric) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.Record(time.Since(start))
	}
}

// TimerWithCallback is Timer that also hands the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

var (
	SnapshotRead = newTimingMetric("snapshot_read")
	TreeBuild    = newTimingMetric("tree_build")
	CycleCheck   = newTimingMetric("cycle_check")
	MutationExec = newTimingMetric("mutation_exec")
	UIRender     = newTimingMetric("ui_render")
)

// AllTimingMetrics returns every registered metric.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{SnapshotRead, TreeBuild, CycleCheck, MutationExec, UIRender}
}

// ResetAll resets every metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for the metrics that have data.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	stats := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// LogAll writes one debug record per metric with data.
func LogAll(logger *slog.Logger) {
	for _, s := range AllTimingStats() {
		logger.Debug("timing", s.Name, s)
	}
}
