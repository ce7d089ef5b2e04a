package profiler

import (
	"testing"
	"time"

	"arena-core/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func metricValue(t *testing.T, m prometheus.Metric) *dto.Metric {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return &out
}

func TestReplayAndTimingMetrics(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	p := New(config.DefaultProfiler(), WithClock(clk.now), WithMemoryReader(func() float64 { return 64 }), WithMetrics())

	steps := metricValue(t, stepDuration).GetHistogram().GetSampleCount()
	renders := metricValue(t, renderDuration).GetHistogram().GetSampleCount()
	inputs := metricValue(t, replayEventsTotal.WithLabelValues("input")).GetCounter().GetValue()
	divs := metricValue(t, divergencesTotal).GetCounter().GetValue()

	p.ObserveStep(2 * time.Millisecond)
	p.ObserveStep(3 * time.Millisecond)
	p.ObserveRender(time.Millisecond)
	p.RecordReplayEvent("input")
	p.RecordReplayEvent("input")
	p.RecordReplayEvent("checkpoint")
	p.RecordDivergence()

	if got := metricValue(t, stepDuration).GetHistogram().GetSampleCount() - steps; got != 2 {
		t.Errorf("Expected 2 step observations, got %d", got)
	}
	if got := metricValue(t, renderDuration).GetHistogram().GetSampleCount() - renders; got != 1 {
		t.Errorf("Expected 1 render observation, got %d", got)
	}
	if got := metricValue(t, replayEventsTotal.WithLabelValues("input")).GetCounter().GetValue() - inputs; got != 2 {
		t.Errorf("Expected 2 input events, got %v", got)
	}
	if got := metricValue(t, divergencesTotal).GetCounter().GetValue() - divs; got != 1 {
		t.Errorf("Expected 1 divergence, got %v", got)
	}

	events, divergences := p.ReplayCounts()
	if events != 3 || divergences != 1 {
		t.Errorf("Expected 3 events and 1 divergence, got %d and %d", events, divergences)
	}
}

func TestCountersWithoutMetrics(t *testing.T) {
	p := newTestProfiler(&fakeClock{t: time.Unix(100, 0)})
	p.ObserveStep(time.Millisecond)
	p.RecordReplayEvent("start")
	p.RecordDivergence()
	if events, divergences := p.ReplayCounts(); events != 1 || divergences != 1 {
		t.Errorf("Expected counts without a metrics publisher, got %d and %d", events, divergences)
	}
}
