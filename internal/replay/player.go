package replay

import (
	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
)

// State describes where playback stands.
type State uint8

const (
	// StatePlaying means events remain in the log.
	StatePlaying State = iota
	// StateOngoing means the log ended without a terminal event: the
	// recorded run was still in progress when the log was taken.
	StateOngoing
	// StateComplete means the terminal Death or Milestone was consumed.
	StateComplete
)

// String returns a readable state name.
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StateOngoing:
		return "ongoing"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Vec2 is a movement input on the ground plane.
type Vec2 struct {
	X, Z float64
}

// Divergence is a checkpoint that did not match.
type Divergence struct {
	Frame    uint32
	Expected Checkpoint
	Actual   Checkpoint
}

// Player is a forward-only cursor over a session's events.
type Player struct {
	session      *Session
	eventIndex   int
	currentFrame uint32
	currentInput Vec2
	requested    bool
	terminal     Event
	divergences  []Divergence
	log          *logrus.Entry
}

// NewPlayer creates a cursor at the start of s.
func NewPlayer(s *Session) *Player {
	return &Player{
		session: s,
		log:     logging.For("replay"),
	}
}

// Session returns the session being played.
func (p *Player) Session() *Session { return p.session }

// Seed returns the session seed.
func (p *Player) Seed() string { return p.session.Seed }

// EventsForFrame consumes every event with frame <= frame, applies Input
// events to CurrentInput, and returns the consumed events in log order.
// Each event is returned exactly once. The cursor never rewinds: asking
// for a frame lower than a previous request returns nothing.
func (p *Player) EventsForFrame(frame uint32) []Event {
	if p.requested && frame < p.currentFrame {
		return nil
	}
	p.requested = true
	p.currentFrame = frame

	events := p.session.Events
	start := p.eventIndex
	for p.eventIndex < len(events) && events[p.eventIndex].Frame() <= frame {
		e := events[p.eventIndex]
		switch ev := e.(type) {
		case Input:
			p.currentInput = Vec2{X: ev.X, Z: ev.Z}
		case Death, Milestone:
			p.terminal = ev
		case Start, LevelUp, Checkpoint:
		}
		p.eventIndex++
	}
	if start == p.eventIndex {
		return nil
	}
	return events[start:p.eventIndex:p.eventIndex]
}

// CurrentInput is the last applied Input, held until the next one.
func (p *Player) CurrentInput() Vec2 { return p.currentInput }

// CurrentFrame is the last requested frame.
func (p *Player) CurrentFrame() uint32 { return p.currentFrame }

// Done reports whether every event has been consumed.
func (p *Player) Done() bool { return p.eventIndex >= len(p.session.Events) }

// State reports playback progress.
func (p *Player) State() State {
	switch {
	case p.terminal != nil:
		return StateComplete
	case p.Done():
		return StateOngoing
	default:
		return StatePlaying
	}
}

// Terminal returns the consumed terminal event, or nil.
func (p *Player) Terminal() Event { return p.terminal }

// VerifyCheckpoint rescales the live state like the recorder did and
// compares it with ev. A mismatch is logged with every field and recorded;
// it never stops playback.
func (p *Player) VerifyCheckpoint(ev Checkpoint, x, z float64, level, kills int) bool {
	actual := NewCheckpoint(ev.At, x, z, level, kills)
	if actual == ev {
		return true
	}

	p.divergences = append(p.divergences, Divergence{Frame: ev.At, Expected: ev, Actual: actual})
	p.log.WithFields(logrus.Fields{
		"frame":         ev.At,
		"expectedX":     ev.X,
		"actualX":       actual.X,
		"expectedZ":     ev.Z,
		"actualZ":       actual.Z,
		"expectedLevel": ev.Level,
		"actualLevel":   actual.Level,
		"expectedKills": ev.Kills,
		"actualKills":   actual.Kills,
	}).Warn("⚠️ Replay divergence at checkpoint")
	return false
}

// Divergences returns every mismatch seen so far.
func (p *Player) Divergences() []Divergence {
	return append([]Divergence(nil), p.divergences...)
}
