// Package bot steers the player autonomously. The controller is a pure
// function of the world it reads: it never mutates entities and keeps no
// state between calls except the last decision for debugging.
package bot

import (
	"math"

	"arena-core/internal/config"
	"arena-core/internal/sim"
)

// World is the read-only view the controller needs.
type World interface {
	sim.EntityRegistry
	PlayerPosition() sim.Vec2
	HealthFraction() float64
}

// Mode is the branch that produced a decision.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeFlee
	ModeGather
	ModeAdvance
)

// String returns human-readable mode
func (m Mode) String() string {
	switch m {
	case ModeFlee:
		return "flee"
	case ModeGather:
		return "gather"
	case ModeAdvance:
		return "advance"
	default:
		return "idle"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Decision is one call's output plus the intermediate vectors.
type Decision struct {
	Input           sim.Vec2 `json:"input"`
	Mode            Mode     `json:"mode"`
	Flee            sim.Vec2 `json:"flee"`
	Gravity         sim.Vec2 `json:"gravity"`
	Threats         int      `json:"threats"`
	NearestThreat   float64  `json:"nearestThreat"` // -1 when none in range
	DangerThreshold float64  `json:"dangerThreshold"`
	Collectibles    int      `json:"collectibles"` // active and within ResourceRadius
}

// DebugSink receives every decision. It gets a copy and cannot influence
// the returned input.
type DebugSink interface {
	ObserveDecision(d Decision)
}

// Controller computes movement input from the world each step.
type Controller struct {
	cfg   config.BotConfig
	world World
	sink  DebugSink
	last  Decision
}

// Option customises a Controller.
type Option func(*Controller)

// WithDebugSink registers a sink for decisions.
func WithDebugSink(s DebugSink) Option {
	return func(c *Controller) { c.sink = s }
}

// New creates a controller over world.
func New(cfg config.BotConfig, world World, opts ...Option) *Controller {
	c := &Controller{cfg: cfg, world: world}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Input returns the movement vector for gameTime seconds into the run.
func (c *Controller) Input(gameTime float64) sim.Vec2 {
	return c.Decide(gameTime).Input
}

// Last returns the previous decision.
func (c *Controller) Last() Decision { return c.last }

// DangerThreshold is the nearest-threat distance that triggers fleeing.
// The bot becomes more cautious once CautionAfter seconds have passed.
func (c *Controller) DangerThreshold(gameTime float64) float64 {
	if gameTime >= c.cfg.CautionAfter {
		return c.cfg.LateDangerDistance
	}
	return c.cfg.EarlyDangerDistance
}

// Decide runs the full priority chain: flee, gather, advance, idle.
func (c *Controller) Decide(gameTime float64) Decision {
	me := c.world.PlayerPosition()
	enemies := c.world.Enemies()

	d := Decision{DangerThreshold: c.DangerThreshold(gameTime)}

	// threat repulsion
	var flee sim.Vec2
	nearest := math.Inf(1)
	advanceDist := math.Inf(1)
	var advanceTo sim.Vec2
	hasAdvance := false
	for _, e := range enemies {
		if !e.Active {
			continue
		}
		dist := me.Dist(e.Position)
		if dist > c.cfg.AdvanceRange && dist < advanceDist {
			advanceDist = dist
			advanceTo = e.Position
			hasAdvance = true
		}
		if dist > c.cfg.ThreatRadius {
			continue
		}
		d.Threats++
		if dist < nearest {
			nearest = dist
		}
		if dist > 0 {
			flee = flee.Add(me.Sub(e.Position).Scale(1 / dist))
		}
	}
	d.Flee = flee.Normalize()
	d.NearestThreat = -1
	if d.Threats > 0 {
		d.NearestThreat = nearest
	}

	// resource gravity
	var pull sim.Vec2
	for _, g := range c.world.Collectibles() {
		if !g.Active {
			continue
		}
		dist := me.Dist(g.Position)
		if dist > c.cfg.ResourceRadius {
			continue
		}
		d.Collectibles++
		if dist == 0 {
			continue
		}
		w := 1 / (dist + c.cfg.ResourceBias)
		pull = pull.Add(g.Position.Sub(me).Scale(w / dist))
	}
	d.Gravity = pull.Normalize()

	switch {
	case c.world.HealthFraction() < c.cfg.LowHealthFraction,
		nearest < d.DangerThreshold,
		d.Threats > c.cfg.CrowdLimit:
		d.Mode = ModeFlee
		d.Input = d.Flee
	case d.Collectibles > 0 && d.Gravity != (sim.Vec2{}):
		d.Mode = ModeGather
		d.Input = d.Gravity
	case hasAdvance:
		d.Mode = ModeAdvance
		d.Input = advanceTo.Sub(me).Normalize()
	default:
		d.Mode = ModeIdle
		d.Input = sim.Vec2{X: math.Cos(gameTime), Z: math.Sin(gameTime)}
	}

	c.last = d
	if c.sink != nil {
		c.sink.ObserveDecision(d)
	}
	return d
}
