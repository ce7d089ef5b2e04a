// Package replay records a run as a seed plus a compact, frame-stamped
// event log and plays it back frame by frame.
package replay

import (
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the current session format.
const FormatVersion = 2

var (
	ErrUnsupportedVersion = errors.New("replay: unsupported format version")
	ErrNonMonotonicFrame  = errors.New("replay: event frames decrease")
	ErrNoTerminalEvent    = errors.New("replay: log has no terminal event")
	ErrEventAfterTerminal = errors.New("replay: event after terminal event")
	ErrShortRecord        = errors.New("replay: truncated record")
	ErrBadMagic           = errors.New("replay: not a binary replay")
	ErrUnknownKind        = errors.New("replay: unknown event kind")
)

// Session is a complete or in-progress run: the seed that drives the
// simulation plus every discrete event needed to re-derive it.
type Session struct {
	Seed          string  `json:"seed" jsonschema:"description=Seed string for the run's random stream,minLength=1"`
	StartTime     int64   `json:"startTime" jsonschema:"description=Run start as unix milliseconds"`
	FormatVersion int     `json:"version" jsonschema:"description=Session format version"`
	Events        Events  `json:"events" jsonschema:"description=Positional arrays [kind frame ...payload] ordered by frame"`
	FinalLevel    int     `json:"finalLevel"`
	FinalTime     float64 `json:"finalTime" jsonschema:"description=Game seconds at death or milestone"`
	PlayerName    string  `json:"playerName"`
	CharacterID   string  `json:"characterId"`
	WorldID       string  `json:"worldId"`
}

// Meta is the descriptive part of a session.
type Meta struct {
	PlayerName  string
	CharacterID string
	WorldID     string
}

// NewSession creates an empty session.
func NewSession(seed string, start time.Time, meta Meta) *Session {
	return &Session{
		Seed:          seed,
		StartTime:     start.UnixMilli(),
		FormatVersion: FormatVersion,
		Events:        make(Events, 0, 256),
		PlayerName:    meta.PlayerName,
		CharacterID:   meta.CharacterID,
		WorldID:       meta.WorldID,
	}
}

// Freeze sets the final stats.
func (s *Session) Freeze(level int, gameTime float64) {
	s.FinalLevel = level
	s.FinalTime = RoundTime(gameTime)
}

// Frozen reports whether the run has ended with a terminal event.
func (s *Session) Frozen() bool {
	return s.Terminal() != nil
}

// Terminal returns the terminal event, or nil for an ongoing run.
func (s *Session) Terminal() Event {
	if n := len(s.Events); n > 0 && IsTerminal(s.Events[n-1]) {
		return s.Events[n-1]
	}
	return nil
}

// LastFrame returns the frame of the last event, 0 when empty.
func (s *Session) LastFrame() uint32 {
	if n := len(s.Events); n > 0 {
		return s.Events[n-1].Frame()
	}
	return 0
}

// Validate checks the invariants a player relies on. A log without a
// terminal event is valid: it describes a run still in progress.
func (s *Session) Validate() error {
	if s.FormatVersion < 1 || s.FormatVersion > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.FormatVersion)
	}
	var prev uint32
	for i, e := range s.Events {
		if e.Frame() < prev {
			return fmt.Errorf("%w: event %d at frame %d after frame %d", ErrNonMonotonicFrame, i, e.Frame(), prev)
		}
		if IsTerminal(e) && i != len(s.Events)-1 {
			return fmt.Errorf("%w: %s at index %d", ErrEventAfterTerminal, e.Kind(), i)
		}
		prev = e.Frame()
	}
	return nil
}

// RequireTerminal validates the session and additionally demands that the
// run has ended.
func (s *Session) RequireTerminal() error {
	if err := s.Validate(); err != nil {
		return err
	}
	if s.Terminal() == nil {
		return ErrNoTerminalEvent
	}
	return nil
}

// Counts tallies events by kind.
func (s *Session) Counts() map[Kind]int {
	out := make(map[Kind]int)
	for _, e := range s.Events {
		out[e.Kind()]++
	}
	return out
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	c := *s
	c.Events = append(Events(nil), s.Events...)
	return &c
}
