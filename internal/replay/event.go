package replay

import "math"

// Kind classifies replay events. The numeric values are the wire codes.
type Kind uint8

const (
	KindStart Kind = iota
	KindInput
	KindLevelUp
	KindDeath
	KindCheckpoint
	KindMilestone
)

// String returns human-readable event kind
func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindInput:
		return "input"
	case KindLevelUp:
		return "level_up"
	case KindDeath:
		return "death"
	case KindCheckpoint:
		return "checkpoint"
	case KindMilestone:
		return "milestone"
	default:
		return "unknown"
	}
}

// Event is one recorded fact, stamped with the simulation frame it
// happened on. The set of implementations is closed: Start, Input,
// LevelUp, Death, Checkpoint and Milestone.
type Event interface {
	Kind() Kind
	Frame() uint32
	isEvent()
}

// Start marks the beginning of a run.
type Start struct {
	At uint32
}

// Input is a movement vector, each axis rounded to 4 decimals. It holds
// until the next Input.
type Input struct {
	At   uint32
	X, Z float64
}

// LevelUp is the upgrade chosen at a level-up.
type LevelUp struct {
	At       uint32
	ChoiceID string
}

// Death ends a run. Time is game seconds rounded to milliseconds.
type Death struct {
	At    uint32
	Level int
	Time  float64
}

// Checkpoint is a scaled-integer snapshot of authoritative state:
// X and Z are position*100 rounded.
type Checkpoint struct {
	At    uint32
	X, Z  int32
	Level int32
	Kills int32
}

// Milestone ends a run that was frozen externally (goal reached).
type Milestone struct {
	At    uint32
	Level int
	Time  float64
}

func (e Start) Kind() Kind      { return KindStart }
func (e Input) Kind() Kind      { return KindInput }
func (e LevelUp) Kind() Kind    { return KindLevelUp }
func (e Death) Kind() Kind      { return KindDeath }
func (e Checkpoint) Kind() Kind { return KindCheckpoint }
func (e Milestone) Kind() Kind  { return KindMilestone }

func (e Start) Frame() uint32      { return e.At }
func (e Input) Frame() uint32      { return e.At }
func (e LevelUp) Frame() uint32    { return e.At }
func (e Death) Frame() uint32      { return e.At }
func (e Checkpoint) Frame() uint32 { return e.At }
func (e Milestone) Frame() uint32  { return e.At }

func (Start) isEvent()      {}
func (Input) isEvent()      {}
func (LevelUp) isEvent()    {}
func (Death) isEvent()      {}
func (Checkpoint) isEvent() {}
func (Milestone) isEvent()  {}

// IsTerminal reports whether e ends a run.
func IsTerminal(e Event) bool {
	switch e.(type) {
	case Death, Milestone:
		return true
	default:
		return false
	}
}

// RoundAxis rounds an input axis to 4 decimals.
func RoundAxis(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// RoundTime rounds game seconds to milliseconds.
func RoundTime(t float64) float64 {
	return math.Round(t*1000) / 1000
}

// ScalePosition converts a world coordinate to checkpoint units.
func ScalePosition(v float64) int32 {
	return int32(math.Round(v * 100))
}

// NewCheckpoint builds a checkpoint with the recorder's scaling.
func NewCheckpoint(frame uint32, x, z float64, level, kills int) Checkpoint {
	return Checkpoint{
		At:    frame,
		X:     ScalePosition(x),
		Z:     ScalePosition(z),
		Level: int32(level),
		Kills: int32(kills),
	}
}
