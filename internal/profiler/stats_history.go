package profiler

import "math"

// GameTotals are the cumulative values passed to UpdateGameStats each frame.
type GameTotals struct {
	Damage     float64
	Kills      int
	XP         float64
	GameTime   float64 // seconds
	EnemyCount int
}

// StatsHistory keeps one sample per whole game second, FIFO-trimmed.
type StatsHistory struct {
	damage     *Ring
	kills      *Ring
	xp         *Ring
	dps        *Ring
	enemyCount *Ring

	lastSecond int
	lastDamage float64
	lastDPS    float64
}

// NewStatsHistory creates a history bounded to size seconds.
func NewStatsHistory(size int) *StatsHistory {
	return &StatsHistory{
		damage:     NewRing(size),
		kills:      NewRing(size),
		xp:         NewRing(size),
		dps:        NewRing(size),
		enemyCount: NewRing(size),
		lastSecond: -1,
	}
}

// Observe samples t when floor(GameTime) crossed past the last sampled
// second. It reports whether a sample was taken.
func (h *StatsHistory) Observe(t GameTotals) bool {
	sec := int(math.Floor(t.GameTime))
	if sec <= h.lastSecond {
		return false
	}

	dps := t.Damage - h.lastDamage
	h.damage.Push(t.Damage)
	h.kills.Push(float64(t.Kills))
	h.xp.Push(t.XP)
	h.dps.Push(dps)
	h.enemyCount.Push(float64(t.EnemyCount))

	h.lastSecond = sec
	h.lastDamage = t.Damage
	h.lastDPS = dps
	return true
}

// DPS returns the damage delta of the latest sample.
func (h *StatsHistory) DPS() float64 { return h.lastDPS }

// Len returns the number of samples held (all series share it).
func (h *StatsHistory) Len() int { return h.damage.Len() }

// Series returns copies of all series, oldest first.
func (h *StatsHistory) Series() StatsSeries {
	return StatsSeries{
		Damage:     h.damage.Values(),
		Kills:      h.kills.Values(),
		XP:         h.xp.Values(),
		DPS:        h.dps.Values(),
		EnemyCount: h.enemyCount.Values(),
	}
}

// Reset clears all samples.
func (h *StatsHistory) Reset() {
	*h = *NewStatsHistory(h.damage.Cap())
}
