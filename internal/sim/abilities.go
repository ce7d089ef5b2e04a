package sim

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownUpgrade = errors.New("sim: unknown upgrade")
	ErrUpgradeMaxed   = errors.New("sim: upgrade at max level")
	ErrWrongKind      = errors.New("sim: upgrade is of a different kind")
)

// UpgradeDef is the static description of an upgrade.
type UpgradeDef struct {
	ID       string
	Name     string
	Kind     UpgradeKind
	MaxLevel int
}

// Catalog is every upgrade a level-up can offer, in offer order.
var Catalog = []UpgradeDef{
	{ID: "spark", Name: "Spark", Kind: KindAbility, MaxLevel: 5},
	{ID: "aura", Name: "Aura", Kind: KindAbility, MaxLevel: 5},
	{ID: "nova", Name: "Nova", Kind: KindAbility, MaxLevel: 5},
	{ID: "might", Name: "Might", Kind: KindPassive, MaxLevel: 5},
	{ID: "haste", Name: "Haste", Kind: KindPassive, MaxLevel: 5},
	{ID: "vigor", Name: "Vigor", Kind: KindPassive, MaxLevel: 5},
	{ID: "magnet", Name: "Magnet", Kind: KindPassive, MaxLevel: 3},
}

// Evolutions are checked after every upgrade.
var Evolutions = []EvolutionRule{
	{Ability: "spark", Passive: "haste", Result: "storm"},
	{Ability: "aura", Passive: "vigor", Result: "sanctuary"},
}

// synergy is an ability/passive pair that is reported while both are owned.
type synergy struct {
	name    string
	ability string
	passive string
}

var synergies = []synergy{
	{name: "overcharge", ability: "spark", passive: "might"},
	{name: "undertow", ability: "aura", passive: "magnet"},
	{name: "pulse", ability: "nova", passive: "haste"},
}

// Resolver tracks owned upgrade levels and derives combat numbers from them.
type Resolver struct {
	levels  map[string]int
	evolved map[string]string // ability id -> evolved form
	defs    map[string]UpgradeDef
}

// NewResolver creates a resolver that starts with the spark ability.
func NewResolver() *Resolver {
	r := &Resolver{
		levels:  make(map[string]int),
		evolved: make(map[string]string),
		defs:    make(map[string]UpgradeDef, len(Catalog)),
	}
	for _, d := range Catalog {
		r.defs[d.ID] = d
	}
	r.levels["spark"] = 1
	return r
}

// Upgrades returns the catalog with current levels, in catalog order.
func (r *Resolver) Upgrades() []Upgrade {
	out := make([]Upgrade, 0, len(Catalog))
	for _, d := range Catalog {
		out = append(out, Upgrade{
			ID:       d.ID,
			Name:     d.Name,
			Kind:     d.Kind,
			Level:    r.levels[d.ID],
			MaxLevel: d.MaxLevel,
		})
	}
	return out
}

// Available returns upgrades that can still be taken.
func (r *Resolver) Available() []Upgrade {
	all := r.Upgrades()
	out := all[:0]
	for _, u := range all {
		if !u.Maxed() {
			out = append(out, u)
		}
	}
	return out
}

// Level returns the owned level of id.
func (r *Resolver) Level(id string) int { return r.levels[id] }

// Evolved returns the evolved form of ability, or "".
func (r *Resolver) Evolved(ability string) string { return r.evolved[ability] }

func (r *Resolver) add(id string, kind UpgradeKind) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
	}
	if d.Kind != kind {
		return fmt.Errorf("%w: %q is a %s", ErrWrongKind, id, d.Kind)
	}
	if r.levels[id] >= d.MaxLevel {
		return fmt.Errorf("%w: %q", ErrUpgradeMaxed, id)
	}
	r.levels[id]++
	return nil
}

// AddAbility raises an ability by one level.
func (r *Resolver) AddAbility(id string) error { return r.add(id, KindAbility) }

// AddPassive raises a passive by one level.
func (r *Resolver) AddPassive(id string) error { return r.add(id, KindPassive) }

// Apply raises id whichever kind it is.
func (r *Resolver) Apply(id string) error {
	d, ok := r.defs[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUpgrade, id)
	}
	return r.add(id, d.Kind)
}

// Evolve applies rule when its ability is maxed and its passive is owned.
// It reports whether the evolution happened now.
func (r *Resolver) Evolve(rule EvolutionRule) bool {
	if _, done := r.evolved[rule.Ability]; done {
		return false
	}
	d, ok := r.defs[rule.Ability]
	if !ok || r.levels[rule.Ability] < d.MaxLevel || r.levels[rule.Passive] == 0 {
		return false
	}
	r.evolved[rule.Ability] = rule.Result
	return true
}

// ActiveSynergies returns the names of synergies currently in effect, sorted.
func (r *Resolver) ActiveSynergies() []string {
	var out []string
	for _, s := range synergies {
		if r.levels[s.ability] > 0 && r.levels[s.passive] > 0 {
			out = append(out, s.name)
		}
	}
	sort.Strings(out)
	return out
}

// DamageMultiplier is the combined might bonus.
func (r *Resolver) DamageMultiplier() float64 {
	m := 1 + 0.2*float64(r.levels["might"])
	if r.hasSynergy("overcharge") {
		m += 0.1
	}
	return m
}

// CooldownMultiplier is the combined haste reduction.
func (r *Resolver) CooldownMultiplier() float64 {
	return 1 / (1 + 0.15*float64(r.levels["haste"]))
}

// BonusHP is extra max health from vigor.
func (r *Resolver) BonusHP() float64 { return 20 * float64(r.levels["vigor"]) }

// PickupBonus is extra pickup radius from magnet.
func (r *Resolver) PickupBonus() float64 {
	b := 1.5 * float64(r.levels["magnet"])
	if r.hasSynergy("undertow") {
		b += 1
	}
	return b
}

func (r *Resolver) hasSynergy(name string) bool {
	for _, s := range synergies {
		if s.name == name {
			return r.levels[s.ability] > 0 && r.levels[s.passive] > 0
		}
	}
	return false
}
