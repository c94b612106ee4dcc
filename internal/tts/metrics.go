package tts

import (
	"sync"
	"time"
)

// MetricsCollector tracks synthesis performance counters. It is process-scoped
// state constructed once and injected into the orchestrator.
type MetricsCollector struct {
	mu sync.Mutex

	requests   int64
	cacheHits  int64
	failures   int64
	totalSpent time.Duration

	backendSuccess  map[string]int64
	backendFailures map[string]int64
}

// MetricsSnapshot is a point-in-time copy of the collector's counters.
type MetricsSnapshot struct {
	Requests        int64
	CacheHits       int64
	Failures        int64
	AverageDuration time.Duration
	CacheHitRate    float64
	BackendSuccess  map[string]int64
	BackendFailures map[string]int64
}

// NewMetricsCollector returns an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		backendSuccess:  make(map[string]int64),
		backendFailures: make(map[string]int64),
	}
}

// RecordRequest records one completed generate call.
func (m *MetricsCollector) RecordRequest(result *Result, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests++
	if err != nil {
		m.failures++
		return
	}
	m.totalSpent += result.Duration
	if result.CacheHit {
		m.cacheHits++
	}
}

// RecordAttempt records the outcome of one backend invocation.
func (m *MetricsCollector) RecordAttempt(backendID string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.backendFailures[backendID]++
		return
	}
	m.backendSuccess[backendID]++
}

// Snapshot returns a copy of the current counters.
func (m *MetricsCollector) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSnapshot{
		Requests:        m.requests,
		CacheHits:       m.cacheHits,
		Failures:        m.failures,
		BackendSuccess:  make(map[string]int64, len(m.backendSuccess)),
		BackendFailures: make(map[string]int64, len(m.backendFailures)),
	}
	for id, n := range m.backendSuccess {
		s.BackendSuccess[id] = n
	}
	for id, n := range m.backendFailures {
		s.BackendFailures[id] = n
	}
	if served := m.requests - m.failures; served > 0 {
		s.AverageDuration = m.totalSpent / time.Duration(served)
	}
	if m.requests > 0 {
		s.CacheHitRate = float64(m.cacheHits) / float64(m.requests)
	}
	return s
}
