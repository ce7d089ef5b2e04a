// Package profiler measures the loop's own performance: named time marks,
// rolling frame statistics, entity and draw-call counts, a short per-frame
// history and a seven-minute per-second game-stats history.
package profiler

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
)

// memorySampleEvery is how many frames pass between heap samples.
// runtime.ReadMemStats stops the world, so it is not called per frame.
const memorySampleEvery = 60

// Profiler is written by the loop goroutine and read by hosts.
type Profiler struct {
	mu  sync.Mutex
	cfg config.ProfilerConfig
	now func() time.Time
	mem func() float64

	marks map[string]time.Time

	frameStart time.Time
	lastBegin  time.Time
	hasBegin   bool
	frameTimes *Ring

	fpsHistory       *Ring
	frameTimeHistory *Ring
	entityHistory    *Ring

	stats *StatsHistory

	snap PerformanceSnapshot

	replayEvents atomic.Uint64
	divergences  atomic.Uint64

	visible atomic.Bool
	metrics *metricsPublisher
	log     *logrus.Entry
}

// Option customises a Profiler.
type Option func(*Profiler)

// WithClock replaces the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) { p.now = now }
}

// WithMemoryReader replaces the heap sampler; it returns megabytes.
func WithMemoryReader(fn func() float64) Option {
	return func(p *Profiler) { p.mem = fn }
}

// WithMetrics publishes snapshot values to Prometheus on each heap sample.
func WithMetrics() Option {
	return func(p *Profiler) { p.metrics = newMetricsPublisher() }
}

// New creates a profiler.
func New(cfg config.ProfilerConfig, opts ...Option) *Profiler {
	if cfg.FrameWindow <= 0 {
		cfg.FrameWindow = 60
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 300
	}
	if cfg.StatsHistory <= 0 {
		cfg.StatsHistory = 420
	}

	p := &Profiler{
		cfg:              cfg,
		now:              time.Now,
		mem:              heapInUseMB,
		marks:            make(map[string]time.Time),
		frameTimes:       NewRing(cfg.FrameWindow),
		fpsHistory:       NewRing(cfg.HistorySize),
		frameTimeHistory: NewRing(cfg.HistorySize),
		entityHistory:    NewRing(cfg.HistorySize),
		stats:            NewStatsHistory(cfg.StatsHistory),
		log:              logging.For("profiler"),
	}
	p.visible.Store(cfg.OverlayVisible)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func heapInUseMB() float64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return float64(ms.HeapInuse) / (1024 * 1024)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Mark stores the current time under label.
func (p *Profiler) Mark(label string) {
	now := p.now()
	p.mu.Lock()
	p.marks[label] = now
	p.mu.Unlock()
}

// MeasureEnd returns the time since Mark(label) and clears the mark.
// An unknown label measures zero.
func (p *Profiler) MeasureEnd(label string) time.Duration {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	start, ok := p.marks[label]
	if !ok {
		return 0
	}
	delete(p.marks, label)
	return now.Sub(start)
}

// BeginFrame opens one loop tick.
func (p *Profiler) BeginFrame() {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasBegin {
		ft := millis(now.Sub(p.lastBegin))
		p.frameTimes.Push(ft)
		p.frameTimeHistory.Push(ft)
		p.snap.Frame.FrameTime = ft
	}
	p.lastBegin = now
	p.hasBegin = true
	p.frameStart = now
}

// EndFrame closes the tick opened by BeginFrame and refreshes frame
// statistics and the per-frame histories.
func (p *Profiler) EndFrame() {
	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()

	f := &p.snap.Frame
	f.WorkTime = millis(now.Sub(p.frameStart))
	f.Frames++
	f.AvgFrameTime = p.frameTimes.Mean()
	f.MinFrameTime, f.MaxFrameTime = p.frameTimes.MinMax()
	if f.AvgFrameTime > 0 {
		f.FPS = 1000 / f.AvgFrameTime
	}

	p.fpsHistory.Push(f.FPS)
	p.entityHistory.Push(float64(p.snap.Entities.Total))

	if f.Frames%memorySampleEvery == 1 {
		p.snap.Memory.HeapMB = p.mem()
		if p.metrics != nil {
			p.metrics.publish(p.snap, len(Evaluate(p.snap, p.cfg.Thresholds)))
		}
	}
}

// SetEntityCounts records the live entity population.
func (p *Profiler) SetEntityCounts(enemies, collectibles, projectiles int) {
	p.mu.Lock()
	p.snap.Entities = EntityCounts{
		Enemies:      enemies,
		Collectibles: collectibles,
		Projectiles:  projectiles,
		Total:        enemies + collectibles + projectiles,
	}
	p.mu.Unlock()
}

// SetRenderStats records draw calls and triangles of the last render.
func (p *Profiler) SetRenderStats(drawCalls, triangles int) {
	p.mu.Lock()
	p.snap.Render = RenderStats{DrawCalls: drawCalls, Triangles: triangles}
	p.mu.Unlock()
}

// RecordTiming stores a subsystem duration for the current frame.
// Unknown subsystem names are ignored.
func (p *Profiler) RecordTiming(subsystem string, d time.Duration) {
	ms := millis(d)
	p.mu.Lock()
	defer p.mu.Unlock()

	t := &p.snap.Timings
	switch subsystem {
	case SubsystemEntityUpdate:
		t.EntityUpdate = ms
	case SubsystemCollision:
		t.Collision = ms
	case SubsystemParticles:
		t.Particles = ms
	case SubsystemBillboard:
		t.Billboard = ms
	case SubsystemSceneRender:
		t.SceneRender = ms
	}
}

// UpdateGameStats takes cumulative totals every frame and samples the
// stats history once per whole game second.
func (p *Profiler) UpdateGameStats(t GameTotals) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Observe(t)
	p.snap.GameStats = GameStats{
		TotalDamage: t.Damage,
		TotalKills:  t.Kills,
		TotalXP:     t.XP,
		DPS:         p.stats.DPS(),
		GameTime:    t.GameTime,
	}
}

// Snapshot returns a copy of the current state.
func (p *Profiler) Snapshot() PerformanceSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snap
}

// Warnings evaluates the warning policy against the current snapshot.
func (p *Profiler) Warnings() []string {
	return Evaluate(p.Snapshot(), p.cfg.Thresholds)
}

// FPS returns the rolling average FPS.
func (p *Profiler) FPS() float64 {
	return p.Snapshot().Frame.FPS
}

// History returns copies of the per-frame series.
func (p *Profiler) History() History {
	p.mu.Lock()
	defer p.mu.Unlock()
	return History{
		FPS:         p.fpsHistory.Values(),
		FrameTime:   p.frameTimeHistory.Values(),
		EntityCount: p.entityHistory.Values(),
	}
}

// StatsHistory returns copies of the per-second series.
func (p *Profiler) StatsHistory() StatsSeries {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.Series()
}

// GenerateReport renders the current snapshot and warnings as text.
func (p *Profiler) GenerateReport() string {
	snap := p.Snapshot()
	return FormatReport(snap, Evaluate(snap, p.cfg.Thresholds))
}

// Visible reports whether the overlay is shown.
func (p *Profiler) Visible() bool { return p.visible.Load() }

// SetVisible shows or hides the overlay.
func (p *Profiler) SetVisible(v bool) { p.visible.Store(v) }

// ToggleVisible flips overlay visibility and returns the new value.
func (p *Profiler) ToggleVisible() bool {
	for {
		cur := p.visible.Load()
		if p.visible.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// Thresholds returns the warning policy in use.
func (p *Profiler) Thresholds() config.ProfilerThresholds {
	return p.cfg.Thresholds
}

// ObserveStep records the duration of one fixed simulation step.
func (p *Profiler) ObserveStep(d time.Duration) {
	if p.metrics != nil {
		p.metrics.observeStep(d)
	}
}

// ObserveRender records the duration of one render callback.
func (p *Profiler) ObserveRender(d time.Duration) {
	if p.metrics != nil {
		p.metrics.observeRender(d)
	}
}

// RecordReplayEvent counts one recorded replay event of kind.
func (p *Profiler) RecordReplayEvent(kind string) {
	p.replayEvents.Add(1)
	if p.metrics != nil {
		p.metrics.replayEvent(kind)
	}
}

// RecordDivergence counts one replay divergence.
func (p *Profiler) RecordDivergence() {
	p.divergences.Add(1)
	if p.metrics != nil {
		p.metrics.divergence()
	}
}

// ReplayCounts returns the recorded event and divergence totals.
func (p *Profiler) ReplayCounts() (events, divergences uint64) {
	return p.replayEvents.Load(), p.divergences.Load()
}
