package loop

// DefaultFixedStepMs is one simulation step at 60Hz.
const DefaultFixedStepMs = 1000.0 / 60.0

// DefaultMaxFrameMs caps the wall-clock time added per frame. Time lost
// beyond the cap after a stall is discarded, not caught up.
const DefaultMaxFrameMs = 250.0

// Clock is the fixed-step accumulator.
//
// Invariant: after Advance, 0 <= accumulator < FixedStepMs and the number
// of steps returned equals floor((previous + min(frame, MaxFrameMs)) / FixedStepMs).
type Clock struct {
	FixedStepMs float64
	MaxFrameMs  float64
	accumulator float64
}

// NewClock creates a clock. Non-positive values fall back to the defaults.
func NewClock(fixedStepMs, maxFrameMs float64) *Clock {
	if fixedStepMs <= 0 {
		fixedStepMs = DefaultFixedStepMs
	}
	if maxFrameMs <= 0 {
		maxFrameMs = DefaultMaxFrameMs
	}
	return &Clock{FixedStepMs: fixedStepMs, MaxFrameMs: maxFrameMs}
}

// Accumulate adds one frame's elapsed time, clamped to MaxFrameMs.
// Negative frame times (clock went backwards) add nothing.
func (c *Clock) Accumulate(frameTimeMs float64) {
	if frameTimeMs < 0 {
		frameTimeMs = 0
	}
	if frameTimeMs > c.MaxFrameMs {
		frameTimeMs = c.MaxFrameMs
	}
	c.accumulator += frameTimeMs
}

// Consume removes one fixed step if enough time has accumulated.
func (c *Clock) Consume() bool {
	if c.accumulator < c.FixedStepMs {
		return false
	}
	c.accumulator -= c.FixedStepMs
	return true
}

// Advance accumulates a frame and consumes every whole step it allows.
// It returns the step count and the leftover interpolation fraction.
func (c *Clock) Advance(frameTimeMs float64) (steps int, alpha float64) {
	c.Accumulate(frameTimeMs)
	for c.Consume() {
		steps++
	}
	return steps, c.Alpha()
}

// Alpha is the render interpolation fraction in [0,1).
func (c *Clock) Alpha() float64 {
	return c.accumulator / c.FixedStepMs
}

// Accumulator returns the unconsumed time in milliseconds.
func (c *Clock) Accumulator() float64 {
	return c.accumulator
}

// StepSeconds is the dt passed to the update callback.
func (c *Clock) StepSeconds() float64 {
	return c.FixedStepMs / 1000
}

// Reset drops any accumulated time.
func (c *Clock) Reset() {
	c.accumulator = 0
}
