// Package sim holds the simulation collaborators the session drives one
// fixed step at a time, plus Arena, a headless reference implementation.
//
// Everything in this package runs on the loop goroutine. Randomness comes
// only from the rng.Stream handed to NewArena, so two arenas built from the
// same seed and fed the same inputs stay bit-identical.
package sim

// Entity is the read-only view of an enemy or collectible.
type Entity struct {
	ID       uint32
	Active   bool
	Position Vec2
}

// EntityRegistry exposes the live entity sets.
// Returned slices are reused by the next call.
type EntityRegistry interface {
	Enemies() []Entity
	Collectibles() []Entity
}

// Wave is a scheduled burst of enemies.
type Wave struct {
	At    float64 `json:"at"` // game seconds
	Count int     `json:"count"`
}

// Spawner introduces enemies over time.
type Spawner interface {
	Update(dt float64)
	DifficultyMultiplier() float64
	UpcomingWaves(n int) []Wave
}

// UpgradeKind separates active abilities from passives.
type UpgradeKind uint8

const (
	KindAbility UpgradeKind = iota
	KindPassive
)

// String returns the kind name.
func (k UpgradeKind) String() string {
	if k == KindPassive {
		return "passive"
	}
	return "ability"
}

// Upgrade is one entry a level-up can offer.
type Upgrade struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Kind     UpgradeKind `json:"kind"`
	Level    int         `json:"level"` // current level, 0 when not owned
	MaxLevel int         `json:"maxLevel"`
}

// Maxed reports whether the upgrade cannot be taken again.
func (u Upgrade) Maxed() bool { return u.Level >= u.MaxLevel }

// EvolutionRule turns a maxed ability plus an owned passive into Result.
type EvolutionRule struct {
	Ability string
	Passive string
	Result  string
}

// AbilityResolver owns the player's abilities and passives.
type AbilityResolver interface {
	Upgrades() []Upgrade
	AddAbility(id string) error
	AddPassive(id string) error
	Evolve(rule EvolutionRule) bool
	ActiveSynergies() []string
}
