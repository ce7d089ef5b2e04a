package profiler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics with bounded cardinality (no per-session labels)
var (
	fpsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_fps",
		Help: "Rolling average frames per second",
	})

	frameTimeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_frame_time_ms",
		Help: "Rolling average frame time in milliseconds",
	})

	entityGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_entities",
		Help: "Live entities by kind",
	}, []string{"kind"}) // Bounded: "enemy", "collectible", "projectile"

	drawCallGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_draw_calls",
		Help: "Draw calls issued by the last render",
	})

	heapGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_heap_mb",
		Help: "Go heap in use in megabytes",
	})

	subsystemGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_subsystem_ms",
		Help: "Last frame time spent per subsystem",
	}, []string{"subsystem"})

	warningGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_perf_warnings",
		Help: "Number of active performance warnings",
	})

	stepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_fixed_step_seconds",
		Help:    "Duration of one fixed simulation step",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_render_seconds",
		Help:    "Duration of one render callback",
		Buckets: []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025},
	})

	replayEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_replay_events_total",
		Help: "Replay events recorded",
	}, []string{"kind"}) // Bounded: one label per event kind

	divergencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_replay_divergences_total",
		Help: "Replay divergences detected during playback",
	})
)

type metricsPublisher struct{}

func newMetricsPublisher() *metricsPublisher { return &metricsPublisher{} }

func (m *metricsPublisher) publish(s PerformanceSnapshot, warnings int) {
	fpsGauge.Set(s.Frame.FPS)
	frameTimeGauge.Set(s.Frame.AvgFrameTime)
	entityGauge.WithLabelValues("enemy").Set(float64(s.Entities.Enemies))
	entityGauge.WithLabelValues("collectible").Set(float64(s.Entities.Collectibles))
	entityGauge.WithLabelValues("projectile").Set(float64(s.Entities.Projectiles))
	drawCallGauge.Set(float64(s.Render.DrawCalls))
	heapGauge.Set(s.Memory.HeapMB)
	subsystemGauge.WithLabelValues(SubsystemEntityUpdate).Set(s.Timings.EntityUpdate)
	subsystemGauge.WithLabelValues(SubsystemCollision).Set(s.Timings.Collision)
	subsystemGauge.WithLabelValues(SubsystemParticles).Set(s.Timings.Particles)
	subsystemGauge.WithLabelValues(SubsystemBillboard).Set(s.Timings.Billboard)
	subsystemGauge.WithLabelValues(SubsystemSceneRender).Set(s.Timings.SceneRender)
	warningGauge.Set(float64(warnings))
}

func (m *metricsPublisher) observeStep(d time.Duration)   { stepDuration.Observe(d.Seconds()) }
func (m *metricsPublisher) observeRender(d time.Duration) { renderDuration.Observe(d.Seconds()) }
func (m *metricsPublisher) replayEvent(kind string)       { replayEventsTotal.WithLabelValues(kind).Inc() }
func (m *metricsPublisher) divergence()                   { divergencesTotal.Inc() }
