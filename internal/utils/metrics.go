// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector tracks operation counters and latency summaries for the
// metrics endpoint. Counter updates are atomic; timer summaries take a lock.
type MetricsCollector struct {
	counters map[string]*int64
	timers   map[string]*timerSummary

	mu sync.RWMutex
}

type timerSummary struct {
	count int64
	sum   time.Duration
	min   time.Duration
	max   time.Duration

	mu sync.Mutex
}

// TimerSnapshot is the exported view of a timer summary.
type TimerSnapshot struct {
	Count int64   `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	MinMs float64 `json:"min_ms"`
	MaxMs float64 `json:"max_ms"`
}

// MetricsSnapshot is the exported view of all collected metrics.
type MetricsSnapshot struct {
	Counters map[string]int64         `json:"counters"`
	Timers   map[string]TimerSnapshot `json:"timers"`
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics collector.
func GetMetrics() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			counters: make(map[string]*int64),
			timers:   make(map[string]*timerSummary),
		}
	})
	return globalMetrics
}

func (m *MetricsCollector) counter(name string) *int64 {
	m.mu.RLock()
	c, ok := m.counters[name]
	m.mu.RUnlock()
	if ok {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.counters[name]; ok {
		return c
	}
	c = new(int64)
	m.counters[name] = c
	return c
}

// Inc increments the named counter.
func (m *MetricsCollector) Inc(name string) {
	atomic.AddInt64(m.counter(name), 1)
}

// Observe records one duration sample under the named timer.
func (m *MetricsCollector) Observe(name string, d time.Duration) {
	m.mu.RLock()
	t, ok := m.timers[name]
	m.mu.RUnlock()

	if !ok {
		m.mu.Lock()
		if t, ok = m.timers[name]; !ok {
			t = &timerSummary{}
			m.timers[name] = t
		}
		m.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	t.sum += d
	if t.min == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
}

// Time runs fn and records its duration under the named timer.
func (m *MetricsCollector) Time(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	m.Observe(name, time.Since(start))
	return err
}

// Snapshot returns a copy of all current metric values.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := MetricsSnapshot{
		Counters: make(map[string]int64, len(m.counters)),
		Timers:   make(map[string]TimerSnapshot, len(m.timers)),
	}

	for name, c := range m.counters {
		snap.Counters[name] = atomic.LoadInt64(c)
	}

	for name, t := range m.timers {
		t.mu.Lock()
		ts := TimerSnapshot{Count: t.count}
		if t.count > 0 {
			ts.AvgMs = float64(t.sum.Milliseconds()) / float64(t.count)
			ts.MinMs = float64(t.min.Milliseconds())
			ts.MaxMs = float64(t.max.Milliseconds())
		}
		t.mu.Unlock()
		snap.Timers[name] = ts
	}

	return snap
}
