package tui

import (
	"time"

	"arena-core/internal/sim"
)

// HoldDuration is how long one key press keeps its direction active.
// Terminals report repeats, not releases, so a held key keeps refreshing
// the deadline and a released key fades out after this window.
const HoldDuration = 180 * time.Millisecond

type direction uint8

const (
	dirUp direction = iota
	dirDown
	dirLeft
	dirRight
	dirCount
)

// heldKeys tracks the latest press per direction.
type heldKeys struct {
	until [dirCount]time.Time
}

func (h *heldKeys) press(d direction, now time.Time) {
	h.until[d] = now.Add(HoldDuration)
}

// release drops every direction, used when the source changes.
func (h *heldKeys) release() {
	h.until = [dirCount]time.Time{}
}

func (h *heldKeys) active(d direction, now time.Time) bool {
	return now.Before(h.until[d])
}

// axis combines active directions into a movement vector of length <= 1.
func (h *heldKeys) axis(now time.Time) sim.Vec2 {
	var v sim.Vec2
	if h.active(dirUp, now) {
		v.Z--
	}
	if h.active(dirDown, now) {
		v.Z++
	}
	if h.active(dirLeft, now) {
		v.X--
	}
	if h.active(dirRight, now) {
		v.X++
	}
	return v.Normalize()
}
