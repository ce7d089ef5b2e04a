// Package session wires one run together: a seeded stream, the arena, the
// fixed-timestep loop, the profiler, a replay recorder or player, the bot
// and a sound bank. A new run builds a new Session; nothing is shared
// between sessions.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"arena-core/internal/audio"
	"arena-core/internal/bot"
	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/loop"
	"arena-core/internal/profiler"
	"arena-core/internal/replay"
	"arena-core/internal/rng"
	"arena-core/internal/sim"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownSource  = errors.New("session: unknown input source")
	ErrReplayOnly     = errors.New("session: replay sessions cannot change source")
	ErrNotReplay      = errors.New("session: replay source needs a replay session")
	ErrRunning        = errors.New("session: loop is running")
	ErrFinished       = errors.New("session: run has finished")
	ErrInvalidReplay  = errors.New("session: invalid replay")
	errMissingChoice  = errors.New("replay has no choice for this level-up")
	errUnexpectedDead = errors.New("player died before the replay's terminal event")
)

// Sound names played by the session when loaded in the bank.
const (
	SoundHit     = "hit"
	SoundLevelUp = "levelup"
	SoundDeath   = "death"
)

// Profiler marks around the loop callbacks.
const (
	markStep   = "fixedStep"
	markRender = "render"
)

// Options configure New.
type Options struct {
	Config config.AppConfig
	// Seed overrides Config.Session.Seed. Empty for both means a fresh seed.
	Seed string
	// Replay plays this session back instead of recording a new one.
	Replay *replay.Session
	// Source is the initial live source. Ignored in replay mode.
	Source Source
	// Bank plays sound effects. nil gets a silent bank.
	Bank *audio.Bank
	// OnFinish receives the frozen replay when a recorded run ends.
	OnFinish func(*replay.Session)
	// BotDebug receives every bot decision.
	BotDebug bot.DebugSink
	// Metrics publishes profiler values to Prometheus.
	Metrics bool
	// Now is the wall clock (tests).
	Now func() time.Time
}

// Session owns every per-run component.
type Session struct {
	cfg    config.AppConfig
	stream *rng.Stream
	arena  *sim.Arena
	loop   *loop.Loop
	prof   *profiler.Profiler
	bot    *bot.Controller
	bank   *audio.Bank

	// mu guards the recorder and player against host reads.
	mu       sync.Mutex
	recorder *replay.Recorder
	player   *replay.Player

	control  atomic.Pointer[Control]
	view     atomic.Pointer[View]
	finished atomic.Bool
	onFinish func(*replay.Session)
	now      func() time.Time

	// owned by the stepping goroutine
	frame       uint32
	choices     []string
	checkpoints int

	log *logrus.Entry
}

// New builds a session. In replay mode the seed and metadata come from the
// replay, which must validate.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Session{
		cfg:      cfg,
		bank:     opts.Bank,
		onFinish: opts.OnFinish,
		now:      now,
		log:      logging.For("session"),
	}
	if s.bank == nil {
		s.bank = audio.NewBank(cfg.Audio)
	}

	ctl := Control{Source: opts.Source}
	var seed string
	if opts.Replay != nil {
		if err := opts.Replay.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidReplay, err)
		}
		seed = opts.Replay.Seed
		s.player = replay.NewPlayer(opts.Replay.Clone())
		ctl.Source = SourceReplay
	} else {
		if ctl.Source == SourceReplay {
			return nil, ErrNotReplay
		}
		seed = opts.Seed
		if seed == "" {
			seed = cfg.Session.Seed
		}
		if seed == "" {
			seed = rng.NewSeed()
		}
		s.recorder = replay.NewRecorder(seed, now(), replay.Meta{
			PlayerName:  cfg.Session.PlayerName,
			CharacterID: cfg.Session.CharacterID,
			WorldID:     cfg.Session.WorldID,
		})
	}
	s.control.Store(&ctl)

	s.stream = rng.New(seed)
	s.arena = sim.NewArena(cfg.Arena, s.stream)

	profOpts := []profiler.Option{profiler.WithClock(now)}
	if opts.Metrics {
		profOpts = append(profOpts, profiler.WithMetrics())
	}
	s.prof = profiler.New(cfg.Profiler, profOpts...)
	s.arena.SetProbe(s.prof)
	if s.recorder != nil {
		s.recorder.Observe(func(k replay.Kind) { s.prof.RecordReplayEvent(k.String()) })
		s.recorder.RecordStart()
	}

	var botOpts []bot.Option
	if opts.BotDebug != nil {
		botOpts = append(botOpts, bot.WithDebugSink(opts.BotDebug))
	}
	s.bot = bot.New(cfg.Bot, s.arena, botOpts...)

	s.loop = loop.New(s.update, s.render,
		loop.WithConfig(cfg.Loop),
		loop.WithNow(now),
		loop.WithFPSCallback(func(float64) { s.prof.BeginFrame() }),
	)

	s.publish(0)
	s.log.WithFields(logrus.Fields{
		"seed":   seed,
		"source": ctl.Source.String(),
	}).Info("🎮 Session created")
	return s, nil
}

// Seed returns the run's seed.
func (s *Session) Seed() string { return s.stream.Seed() }

// Profiler returns the session profiler.
func (s *Session) Profiler() *profiler.Profiler { return s.prof }

// Loop returns the session loop.
func (s *Session) Loop() *loop.Loop { return s.loop }

// Bank returns the sound bank.
func (s *Session) Bank() *audio.Bank { return s.bank }

// IsReplay reports whether the session plays back a recording.
func (s *Session) IsReplay() bool { return s.player != nil }

// Finished reports whether the run has ended.
func (s *Session) Finished() bool { return s.finished.Load() }

// Control returns the current control value.
func (s *Session) Control() Control { return *s.control.Load() }

// SetSource switches between human and bot input for live sessions.
func (s *Session) SetSource(src Source) error {
	if s.IsReplay() {
		return ErrReplayOnly
	}
	switch src {
	case SourceHuman, SourceBot:
	case SourceReplay:
		return ErrNotReplay
	default:
		return ErrUnknownSource
	}
	s.updateControl(func(c *Control) { c.Source = src })
	s.log.WithField("source", src.String()).Info("🕹️ Input source changed")
	return nil
}

// ToggleBot flips between human and bot input and returns the new source.
func (s *Session) ToggleBot() (Source, error) {
	next := SourceBot
	if s.Control().Source == SourceBot {
		next = SourceHuman
	}
	return next, s.SetSource(next)
}

// SetHumanInput stores the device input used while the source is human.
func (s *Session) SetHumanInput(x, z float64) {
	s.updateControl(func(c *Control) { c.Human = sim.Vec2{X: x, Z: z} })
}

func (s *Session) updateControl(fn func(*Control)) {
	for {
		old := s.control.Load()
		next := *old
		fn(&next)
		if s.control.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Start runs the loop on its own goroutine.
func (s *Session) Start() error {
	if s.finished.Load() {
		return ErrFinished
	}
	s.loop.Start()
	return nil
}

// Stop halts the loop and waits for it to exit.
func (s *Session) Stop() {
	s.loop.Stop()
	if done := s.loop.Done(); done != nil {
		<-done
	}
}

// Done is closed when the loop goroutine exits. Nil before Start.
func (s *Session) Done() <-chan struct{} { return s.loop.Done() }

// RunHeadless executes up to steps fixed steps synchronously, without the
// wall clock, and returns how many ran. It stops early when the run ends.
func (s *Session) RunHeadless(steps int) (int, error) {
	if s.loop.Running() {
		return 0, ErrRunning
	}
	dt := s.cfg.Loop.FixedStep().Seconds()
	ran := 0
	for ran < steps && !s.finished.Load() {
		s.prof.BeginFrame()
		s.step(s.Control(), dt)
		ran++
		s.render(0)
	}
	return ran, nil
}

// ToggleOverlay flips profiler overlay visibility.
func (s *Session) ToggleOverlay() bool {
	v := s.prof.ToggleVisible()
	s.log.WithField("visible", v).Info("📊 Profiler overlay toggled")
	return v
}

// ToggleUncapped flips the loop between vsync pacing and uncapped mode.
func (s *Session) ToggleUncapped() bool { return s.loop.ToggleUncapped() }

// ExportReport writes the profiler report and chart into dir.
func (s *Session) ExportReport(dir string) (profiler.ExportResult, error) {
	if dir == "" {
		dir = s.cfg.Profiler.ReportDir
	}
	return s.prof.Export(dir, s.now())
}

// Replay returns a copy of the session being recorded or played.
func (s *Session) Replay() *replay.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recorder != nil {
		return s.recorder.Snapshot()
	}
	return s.player.Session().Clone()
}

// ReplayStatus summarises playback for hosts.
type ReplayStatus struct {
	Active      bool                `json:"active"`
	State       string              `json:"state"`
	Frame       uint32              `json:"frame"`
	LastFrame   uint32              `json:"lastFrame"`
	Checkpoints int                 `json:"checkpoints"`
	Divergences []replay.Divergence `json:"divergences"`
}

// ReplayStatus reports playback progress. Active is false while recording.
func (s *Session) ReplayStatus() ReplayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return ReplayStatus{State: "recording", Frame: s.recorder.Frame(), LastFrame: s.recorder.Session().LastFrame()}
	}
	return ReplayStatus{
		Active:      true,
		State:       s.player.State().String(),
		Frame:       s.player.CurrentFrame(),
		LastFrame:   s.player.Session().LastFrame(),
		Checkpoints: s.checkpoints,
		Divergences: s.player.Divergences(),
	}
}

func (s *Session) update(dt float64) {
	if s.finished.Load() {
		return
	}
	s.step(s.Control(), dt)
}

// step advances the run by one fixed step with ctl as its input state.
func (s *Session) step(ctl Control, dt float64) {
	s.prof.Mark(markStep)
	s.mu.Lock()
	final := s.advance(ctl, dt)
	s.mu.Unlock()
	s.prof.ObserveStep(s.prof.MeasureEnd(markStep))

	// outside the lock so the callback may read the session
	if final != nil && s.onFinish != nil {
		s.onFinish(final)
	}
}

// advance runs the step body and returns the frozen replay when a
// recorded run ends on this step.
func (s *Session) advance(ctl Control, dt float64) *replay.Session {
	frame := s.frame
	var events []replay.Event

	var in sim.Vec2
	switch ctl.Source {
	case SourceReplay:
		events = s.player.EventsForFrame(frame)
		ci := s.player.CurrentInput()
		in = sim.Vec2{X: ci.X, Z: ci.Z}
		for _, e := range events {
			if lu, ok := e.(replay.LevelUp); ok {
				s.choices = append(s.choices, lu.ChoiceID)
			}
		}
	case SourceBot:
		in = s.bot.Input(s.arena.GameTime())
	default:
		in = ctl.Human
	}

	// live runs step with exactly what a replay will read back
	in = sim.Vec2{X: replay.RoundAxis(in.X), Z: replay.RoundAxis(in.Z)}
	if s.recorder != nil {
		s.recorder.RecordInput(in.X, in.Z)
	}

	res := s.arena.Step(in, dt)
	for s.arena.PendingLevelUps() > 0 {
		s.resolveLevelUp(ctl.Source, frame)
	}

	if s.recorder != nil {
		if every := s.cfg.Replay.CheckpointEvery; every > 0 && frame > 0 && frame%uint32(every) == 0 {
			x, z, level, kills := s.arena.Checkpoint()
			s.recorder.RecordCheckpoint(x, z, level, kills)
		}
	} else {
		s.verifyReplay(events)
	}

	s.playSounds(res)
	s.observe()

	var final *replay.Session
	switch {
	case res.Died:
		if s.recorder != nil {
			s.recorder.Finish(s.arena.Player().Level, s.arena.GameTime())
		}
		final = s.finish("death")
	case s.recorder != nil && s.cfg.Session.GoalSeconds > 0 && s.arena.GameTime() >= s.cfg.Session.GoalSeconds:
		s.recorder.Milestone(s.arena.Player().Level, s.arena.GameTime())
		final = s.finish("milestone")
	case s.player != nil && s.player.Done() && frame >= s.player.Session().LastFrame():
		s.finish("replay " + s.player.State().String())
	}

	if s.recorder != nil && !s.finished.Load() {
		s.recorder.Update()
	}
	s.frame++
	return final
}

// resolveLevelUp spends one pending level-up. The choice draw is taken in
// every mode so the stream stays aligned between recording and playback.
func (s *Session) resolveLevelUp(src Source, frame uint32) {
	offers := s.arena.Offer(s.cfg.Arena.Offers)
	pick := s.stream.Intn(len(offers))

	id := ""
	if len(offers) > 0 {
		id = offers[pick].ID
	}
	if src == SourceReplay && len(offers) > 0 {
		if len(s.choices) == 0 {
			s.prof.RecordDivergence()
			s.log.WithError(errMissingChoice).WithField("frame", frame).Warn("⚠️ Replay divergence")
		} else {
			id, s.choices = s.choices[0], s.choices[1:]
		}
	}
	if s.recorder != nil && id != "" {
		s.recorder.RecordLevelUp(id)
	}
	if err := s.arena.ApplyUpgrade(id); err != nil && id != "" {
		s.log.WithError(err).WithField("frame", frame).Warn("⚠️ Level-up choice rejected")
	}
}

func (s *Session) verifyReplay(events []replay.Event) {
	for _, e := range events {
		switch ev := e.(type) {
		case replay.Checkpoint:
			x, z, level, kills := s.arena.Checkpoint()
			if !s.player.VerifyCheckpoint(ev, x, z, level, kills) {
				s.prof.RecordDivergence()
			}
			s.checkpoints++
		case replay.Death:
			if !s.arena.Dead() {
				s.prof.RecordDivergence()
				s.log.WithField("frame", ev.Frame()).Warn("⚠️ Replay ended before the simulated player died")
			}
		case replay.Milestone:
			if s.arena.Dead() {
				s.prof.RecordDivergence()
				s.log.WithField("frame", ev.Frame()).Warn("⚠️ Simulated player died in a run that survived")
			}
		case replay.Start, replay.Input, replay.LevelUp:
		}
	}
	if s.arena.Dead() && s.player.Terminal() == nil {
		s.prof.RecordDivergence()
		s.log.WithError(errUnexpectedDead).WithField("frame", s.frame).Warn("⚠️ Replay divergence")
	}
}

func (s *Session) playSounds(res sim.StepResult) {
	if res.Kills > 0 {
		s.bank.Play(SoundHit)
	}
	if res.LevelUps > 0 {
		s.bank.Play(SoundLevelUp)
	}
	if res.Died {
		s.bank.Play(SoundDeath)
	}
}

func (s *Session) observe() {
	c := s.arena.Counts()
	t := s.arena.Totals()
	s.prof.SetEntityCounts(c.Enemies, c.Gems, c.Projectiles)
	s.prof.UpdateGameStats(profiler.GameTotals{
		Damage:     t.Damage,
		Kills:      t.Kills,
		XP:         t.XP,
		GameTime:   s.arena.GameTime(),
		EnemyCount: c.Enemies,
	})
}

// finish ends the run once and returns the recorded replay, if any. It
// runs on the stepping goroutine and may stop the loop from inside its
// own callback.
func (s *Session) finish(reason string) *replay.Session {
	if !s.finished.CompareAndSwap(false, true) {
		return nil
	}
	p := s.arena.Player()
	s.log.WithFields(logrus.Fields{
		"reason": reason,
		"frame":  s.frame,
		"level":  p.Level,
		"time":   s.arena.GameTime(),
		"kills":  s.arena.Totals().Kills,
	}).Info("🏁 Run finished")

	s.loop.Stop()
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Snapshot()
}
