// Package loop implements the fixed-timestep game loop.
//
// The loop samples wall-clock time once per scheduler tick, runs the update
// callback a whole number of times at a fixed step, then runs the render
// callback exactly once with the leftover interpolation fraction. Update and
// render always run on the loop goroutine, never concurrently.
package loop

import (
	"sync"
	"sync/atomic"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
)

// UpdateFunc advances the simulation by dt seconds.
type UpdateFunc func(dt float64)

// RenderFunc draws a frame; alpha in [0,1) is the interpolation fraction.
type RenderFunc func(alpha float64)

// FPSFunc receives the rolling average FPS once per tick.
type FPSFunc func(avgFps float64)

// Stats summarises loop activity.
type Stats struct {
	Frames     uint64
	Steps      uint64
	AverageFPS float64
	Uncapped   bool
	Running    bool
}

// Loop is the fixed-timestep loop.
type Loop struct {
	update UpdateFunc
	render RenderFunc
	onFPS  FPSFunc

	clock *Clock
	fps   *FPSWindow
	now   func() time.Time

	vsync    Scheduler
	uncapped Scheduler
	useFast  atomic.Bool

	// tick state, owned by the loop goroutine
	last    time.Time
	hasLast bool

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	done     chan struct{}
	halted   atomic.Bool

	frames atomic.Uint64
	steps  atomic.Uint64
	avgFps atomic.Uint64 // math.Float64bits
	log    *logrus.Entry
}

// Option customises a Loop.
type Option func(*Loop)

// WithFPSCallback registers the optional FPS callback.
func WithFPSCallback(fn FPSFunc) Option {
	return func(l *Loop) { l.onFPS = fn }
}

// WithNow replaces the wall clock (tests).
func WithNow(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithSchedulers replaces the capped and uncapped schedulers.
func WithSchedulers(vsync, uncapped Scheduler) Option {
	return func(l *Loop) {
		if vsync != nil {
			l.vsync = vsync
		}
		if uncapped != nil {
			l.uncapped = uncapped
		}
	}
}

// WithConfig applies loop configuration.
func WithConfig(cfg config.LoopConfig) Option {
	return func(l *Loop) {
		stepMs := float64(cfg.FixedStep()) / float64(time.Millisecond)
		l.clock = NewClock(stepMs, cfg.MaxFrameMs)
		l.fps = NewFPSWindow(cfg.FPSWindow)
		l.vsync = NewVsyncScheduler(cfg.RefreshRate)
		l.useFast.Store(cfg.Uncapped)
	}
}

// New creates a loop. update and render are required.
func New(update UpdateFunc, render RenderFunc, opts ...Option) *Loop {
	l := &Loop{
		update:   update,
		render:   render,
		clock:    NewClock(DefaultFixedStepMs, DefaultMaxFrameMs),
		fps:      NewFPSWindow(60),
		now:      time.Now,
		vsync:    NewVsyncScheduler(60),
		uncapped: UncappedScheduler{},
		log:      logging.For("loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start begins scheduling ticks on a dedicated goroutine.
// Calling Start on a running loop does nothing.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	prev := l.done
	l.mu.Unlock()

	// a previous run must be fully gone before tick state is reused
	if prev != nil {
		<-prev
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	l.running = true
	l.halted.Store(false)
	l.stopChan = make(chan struct{})
	l.done = make(chan struct{})
	stop, done := l.stopChan, l.done
	l.Reset(l.now())
	l.mu.Unlock()

	go l.run(stop, done)

	l.log.WithFields(logrus.Fields{
		"fixedStepMs": l.clock.FixedStepMs,
		"uncapped":    l.useFast.Load(),
	}).Info("🎮 Loop started")
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer l.vsync.Release()
	defer l.uncapped.Release()

	for {
		sched := l.vsync
		if l.useFast.Load() {
			sched = l.uncapped
		}
		if !sched.Wait(stop) {
			return
		}
		if l.halted.Load() {
			return
		}
		l.Tick(l.now())
	}
}

// Stop cancels the pending continuation. It is idempotent and safe to call
// from inside an update or render callback; use Done to wait for the loop
// goroutine to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.running = false
	l.halted.Store(true)
	close(l.stopChan)
	l.log.Info("🛑 Loop stopped")
}

// Done is closed when the loop goroutine has exited. Nil before Start.
func (l *Loop) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Running reports whether the loop is scheduled.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Reset sets the last timestamp and drops accumulated time.
func (l *Loop) Reset(now time.Time) {
	l.last = now
	l.hasLast = true
	l.clock.Reset()
}

// Tick runs one scheduler tick at the given time and returns the number
// of fixed steps executed and the render alpha. Step accounting matches
// Clock.Advance, but steps are consumed one at a time so a Stop from
// inside update ends the tick before the next step.
func (l *Loop) Tick(now time.Time) (steps int, alpha float64) {
	frameTime := 0.0
	if l.hasLast {
		frameTime = float64(now.Sub(l.last)) / float64(time.Millisecond)
	}
	l.last = now
	l.hasLast = true

	l.fps.Push(frameTime)
	avg := l.fps.Average()
	l.storeFPS(avg)
	if l.onFPS != nil {
		l.onFPS(avg)
	}

	l.clock.Accumulate(frameTime)
	dt := l.clock.StepSeconds()
	for l.clock.Consume() {
		l.update(dt)
		steps++
		l.steps.Add(1)
		if l.halted.Load() {
			return steps, l.clock.Alpha()
		}
	}

	alpha = l.clock.Alpha()
	l.render(alpha)
	l.frames.Add(1)
	return steps, alpha
}

// SetUncapped switches between the vsync-paced and zero-delay schedulers.
// The change applies at the next reschedule.
func (l *Loop) SetUncapped(on bool) {
	if l.useFast.Swap(on) != on {
		l.log.WithField("uncapped", on).Info("⚡ Loop scheduling mode changed")
	}
}

// ToggleUncapped flips the scheduling mode and returns the new value.
func (l *Loop) ToggleUncapped() bool {
	for {
		cur := l.useFast.Load()
		if l.useFast.CompareAndSwap(cur, !cur) {
			l.log.WithField("uncapped", !cur).Info("⚡ Loop scheduling mode changed")
			return !cur
		}
	}
}

// Uncapped reports the scheduling mode.
func (l *Loop) Uncapped() bool { return l.useFast.Load() }

// FPS returns the latest rolling average FPS.
func (l *Loop) FPS() float64 { return loadFloat(&l.avgFps) }

// Stats returns loop counters.
func (l *Loop) Stats() Stats {
	return Stats{
		Frames:     l.frames.Load(),
		Steps:      l.steps.Load(),
		AverageFPS: l.FPS(),
		Uncapped:   l.Uncapped(),
		Running:    l.Running(),
	}
}

// Clock exposes the accumulator (read-only use).
func (l *Loop) Clock() *Clock { return l.clock }

func (l *Loop) storeFPS(v float64) { storeFloat(&l.avgFps, v) }
