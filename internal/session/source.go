package session

import (
	"fmt"
	"strings"

	"arena-core/internal/sim"
)

// Source selects where a step's movement input comes from.
type Source uint8

const (
	SourceHuman Source = iota
	SourceBot
	SourceReplay
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceHuman:
		return "human"
	case SourceBot:
		return "bot"
	case SourceReplay:
		return "replay"
	default:
		return "unknown"
	}
}

// ParseSource parses "human", "bot" or "replay".
func ParseSource(v string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "human":
		return SourceHuman, nil
	case "bot":
		return SourceBot, nil
	case "replay":
		return SourceReplay, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSource, v)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Control is the per-step input state. Hosts replace it atomically; the
// loop reads one value at the start of each step and passes it down.
type Control struct {
	Source Source
	Human  sim.Vec2
}
