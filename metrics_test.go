package ftp2http

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if snap := m.Snapshot(); len(snap.Counters) != 0 {
		t.Fatalf("disabled snapshot must be empty, got %v", snap.Counters)
	}
}

func TestMetricsEnabledIncrementAndAdd(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricUploadRelayed)
	m.Inc(MetricUploadRelayed)
	m.Add(MetricUploadBytes, 1500)

	if got := m.Value(MetricUploadRelayed); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := m.Value(MetricUploadBytes); got != 1500 {
		t.Fatalf("expected 1500, got %d", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginFailure)
	m.Observe(MetricRelayLatency, time.Second)
	if m.Enabled() || m.Value(MetricLoginFailure) != 0 {
		t.Fatal("nil metrics must be inert")
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricUploadOpened)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricUploadOpened); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		10 * time.Millisecond,
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		5 * time.Second,
		30 * time.Second,
	}
	for _, d := range observations {
		m.Observe(MetricRelayLatency, d)
	}
	m.Observe(MetricLoginSuccess, time.Second)

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRelayLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}
	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d: expected 1, got %d", i, v)
		}
	}
	if _, ok := snap.Counters[MetricRelayLatency]; ok {
		t.Fatal("histogram id must not appear as a counter")
	}
	if len(snap.Histograms) != 1 {
		t.Fatalf("only the relay histogram is recorded, got %d", len(snap.Histograms))
	}
}

func TestMetricsHistogramDisabled(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Observe(MetricRelayLatency, time.Second)
	if _, ok := m.Snapshot().Histograms[MetricRelayLatency]; ok {
		t.Fatal("histogram must be absent when latency is disabled")
	}
}
