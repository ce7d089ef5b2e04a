package replay

import (
	"time"

	"arena-core/internal/logging"

	"github.com/sirupsen/logrus"
)

// Recorder appends events to a session as a run is played.
//
// Update must be called exactly once per fixed simulation step, from the
// loop's update callback, so frame numbers line up with deterministic steps.
type Recorder struct {
	session  *Session
	frame    uint32
	lastX    float64
	lastZ    float64
	hasInput bool
	observe  func(Kind)
	log      *logrus.Entry
}

// NewRecorder starts a session for seed.
func NewRecorder(seed string, start time.Time, meta Meta) *Recorder {
	return &Recorder{
		session: NewSession(seed, start, meta),
		log:     logging.For("replay"),
	}
}

// Frame returns the current simulation frame.
func (r *Recorder) Frame() uint32 { return r.frame }

// Session returns the live session. Callers on another goroutine should
// use Snapshot instead.
func (r *Recorder) Session() *Session { return r.session }

// Snapshot returns a deep copy of the session.
func (r *Recorder) Snapshot() *Session { return r.session.Clone() }

// Observe registers fn to be called with the kind of every appended event.
func (r *Recorder) Observe(fn func(Kind)) { r.observe = fn }

// Finished reports whether a terminal event was appended.
func (r *Recorder) Finished() bool { return r.session.Frozen() }

func (r *Recorder) push(e Event) {
	if r.session.Frozen() {
		r.log.WithFields(logrus.Fields{
			"kind":  e.Kind().String(),
			"frame": e.Frame(),
		}).Debug("event after terminal event ignored")
		return
	}
	r.session.Events = append(r.session.Events, e)
	if r.observe != nil {
		r.observe(e.Kind())
	}
}

// RecordStart appends the Start marker.
func (r *Recorder) RecordStart() {
	r.push(Start{At: r.frame})
}

// RecordInput appends an Input only when the rounded vector differs from
// the last recorded one. It reports whether an event was appended.
func (r *Recorder) RecordInput(x, z float64) bool {
	x, z = RoundAxis(x), RoundAxis(z)
	if r.hasInput && x == r.lastX && z == r.lastZ {
		return false
	}
	r.lastX, r.lastZ, r.hasInput = x, z, true
	r.push(Input{At: r.frame, X: x, Z: z})
	return true
}

// RecordLevelUp always appends.
func (r *Recorder) RecordLevelUp(choiceID string) {
	r.push(LevelUp{At: r.frame, ChoiceID: choiceID})
}

// RecordCheckpoint appends a scaled-integer snapshot for divergence checks.
func (r *Recorder) RecordCheckpoint(x, z float64, level, kills int) {
	r.push(NewCheckpoint(r.frame, x, z, level, kills))
}

// Update advances the frame counter by one step.
func (r *Recorder) Update() {
	r.frame++
}

// Finish freezes the session and appends the terminal Death event.
func (r *Recorder) Finish(level int, gameTime float64) {
	if r.session.Frozen() {
		return
	}
	r.session.Freeze(level, gameTime)
	r.push(Death{At: r.frame, Level: level, Time: r.session.FinalTime})
	r.logFrozen("death")
}

// Milestone freezes the session externally (goal reached) and appends a
// terminal Milestone event.
func (r *Recorder) Milestone(level int, gameTime float64) {
	if r.session.Frozen() {
		return
	}
	r.session.Freeze(level, gameTime)
	r.push(Milestone{At: r.frame, Level: level, Time: r.session.FinalTime})
	r.logFrozen("milestone")
}

func (r *Recorder) logFrozen(reason string) {
	r.log.WithFields(logrus.Fields{
		"reason": reason,
		"frame":  r.frame,
		"events": len(r.session.Events),
		"level":  r.session.FinalLevel,
		"time":   r.session.FinalTime,
	}).Info("📼 Replay frozen")
}
