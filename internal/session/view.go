package session

import (
	"arena-core/internal/bot"
	"arena-core/internal/profiler"
	"arena-core/internal/sim"
)

// View is an immutable picture of the run, published once per rendered
// frame. Hosts read it from any goroutine.
type View struct {
	Frame       uint32        `json:"frame"`
	GameTime    float64       `json:"gameTime"`
	Alpha       float64       `json:"alpha"`
	Seed        string        `json:"seed"`
	Source      Source        `json:"source"`
	Player      sim.Player    `json:"player"`
	Totals      sim.Totals    `json:"totals"`
	Counts      sim.Counts    `json:"counts"`
	Enemies     []sim.Vec2    `json:"enemies"`
	Gems        []sim.Vec2    `json:"gems"`
	Projectiles []sim.Vec2    `json:"projectiles"`
	Particles   []sim.Vec2    `json:"particles"`
	Upgrades    []sim.Upgrade `json:"upgrades"`
	Synergies   []string      `json:"synergies"`
	Bot         bot.Decision  `json:"bot"`
	FPS         float64       `json:"fps"`
	Uncapped    bool          `json:"uncapped"`
	Overlay     bool          `json:"overlay"`
	Dead        bool          `json:"dead"`
	Finished    bool          `json:"finished"`
	Replay      string        `json:"replay"`
}

// View returns the latest published view. Never nil after New.
func (s *Session) View() *View { return s.view.Load() }

func (s *Session) render(alpha float64) {
	s.prof.Mark(markRender)
	s.prof.Mark(profiler.SubsystemBillboard)
	v := s.buildView(alpha)
	s.prof.RecordTiming(profiler.SubsystemBillboard, s.prof.MeasureEnd(profiler.SubsystemBillboard))

	s.prof.Mark(profiler.SubsystemSceneRender)
	s.view.Store(v)
	s.prof.RecordTiming(profiler.SubsystemSceneRender, s.prof.MeasureEnd(profiler.SubsystemSceneRender))

	// one draw per sprite, two triangles per quad
	draws := len(v.Enemies) + len(v.Gems) + len(v.Projectiles) + len(v.Particles) + 1
	s.prof.SetRenderStats(draws, draws*2)
	s.prof.ObserveRender(s.prof.MeasureEnd(markRender))
	s.prof.EndFrame()
}

// publish stores a view outside the loop (construction, headless runs).
func (s *Session) publish(alpha float64) {
	s.view.Store(s.buildView(alpha))
}

func (s *Session) buildView(alpha float64) *View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := &View{
		Frame:       s.frame,
		GameTime:    s.arena.GameTime(),
		Alpha:       alpha,
		Seed:        s.stream.Seed(),
		Source:      s.Control().Source,
		Player:      s.arena.Player(),
		Totals:      s.arena.Totals(),
		Counts:      s.arena.Counts(),
		Enemies:     positions(s.arena.Enemies()),
		Gems:        positions(s.arena.Collectibles()),
		Projectiles: append([]sim.Vec2(nil), s.arena.Projectiles()...),
		Particles:   append([]sim.Vec2(nil), s.arena.Particles()...),
		Upgrades:    s.arena.Resolver().Upgrades(),
		Synergies:   s.arena.Resolver().ActiveSynergies(),
		Bot:         s.bot.Last(),
		FPS:         s.loop.FPS(),
		Uncapped:    s.loop.Uncapped(),
		Overlay:     s.prof.Visible(),
		Dead:        s.arena.Dead(),
		Finished:    s.finished.Load(),
		Replay:      "recording",
	}
	if s.player != nil {
		v.Replay = s.player.State().String()
	}
	return v
}

func positions(es []sim.Entity) []sim.Vec2 {
	out := make([]sim.Vec2, 0, len(es))
	for _, e := range es {
		if e.Active {
			out = append(out, e.Position)
		}
	}
	return out
}
