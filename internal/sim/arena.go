package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/profiler"
	"arena-core/internal/rng"
	"arena-core/internal/sim/spatial"

	"github.com/sirupsen/logrus"
)

// ErrNoPendingLevelUp is returned by ApplyUpgrade when no level-up is waiting.
var ErrNoPendingLevelUp = errors.New("sim: no pending level-up")

// Ability tuning. Damage values are before the might multiplier and
// cooldowns before haste.
const (
	sparkDamage      = 8.0
	sparkDamageLevel = 4.0
	sparkCooldown    = 0.9
	sparkRange       = 12.0
	sparkSpeed       = 18.0
	sparkTTL         = 1.0
	stormTargets     = 3

	auraDPS         = 6.0
	auraDPSLevel    = 3.0
	auraRadius      = 2.5
	auraRadiusLevel = 0.4
	sanctuaryRegen  = 2.0 // HP per second

	novaDamage      = 15.0
	novaDamageLevel = 6.0
	novaCooldown    = 3.0
	novaRadius      = 6.0

	gemXP          = 1.0
	burstParticles = 6
	particleTTL    = 0.4
	particleSpeed  = 3.0
)

// Probe receives per-phase timings. *profiler.Profiler implements it.
type Probe interface {
	Mark(label string)
	MeasureEnd(label string) time.Duration
	RecordTiming(subsystem string, d time.Duration)
}

// Player is the controlled character.
type Player struct {
	Position Vec2    `json:"position"`
	Facing   Vec2    `json:"facing"`
	HP       float64 `json:"hp"`
	MaxHP    float64 `json:"maxHp"`
	Level    int     `json:"level"`
	XP       float64 `json:"xp"`
	NextXP   float64 `json:"nextXp"`
}

// Totals are cumulative run statistics.
type Totals struct {
	Damage float64 `json:"damage"`
	Kills  int     `json:"kills"`
	XP     float64 `json:"xp"`
}

// Counts is the live entity population.
type Counts struct {
	Enemies     int `json:"enemies"`
	Gems        int `json:"gems"`
	Projectiles int `json:"projectiles"`
	Particles   int `json:"particles"`
}

// StepResult reports what happened during one fixed step.
type StepResult struct {
	Kills    int
	LevelUps int
	Died     bool
}

type enemy struct {
	pos    Vec2
	hp     float64
	active bool
}

type gem struct {
	pos    Vec2
	value  float64
	active bool
}

type projectile struct {
	pos    Vec2
	vel    Vec2
	damage float64
	ttl    float64
	active bool
}

type particle struct {
	pos    Vec2
	vel    Vec2
	ttl    float64
	active bool
}

// Arena is the headless reference simulation: one player, a pool of
// enemies chasing it, XP gems they drop, and the player's abilities.
type Arena struct {
	cfg      config.ArenaConfig
	stream   *rng.Stream
	grid     *spatial.Grid
	resolver *Resolver
	spawner  *WaveSpawner
	probe    Probe

	player      Player
	enemies     []enemy
	gems        []gem
	projectiles []projectile
	particles   []particle

	enemyView []Entity
	gemView   []Entity
	hitBuf    []uint32

	gameTime   float64
	steps      uint64
	sparkTimer float64
	novaTimer  float64
	pending    int
	dead       bool
	totals     Totals

	log *logrus.Entry
}

// NewArena creates an arena whose every random draw comes from stream.
func NewArena(cfg config.ArenaConfig, stream *rng.Stream) *Arena {
	size := cfg.HalfExtent * 2
	a := &Arena{
		cfg:         cfg,
		stream:      stream,
		grid:        spatial.NewGrid(-cfg.HalfExtent, -cfg.HalfExtent, size, size, cfg.CellSize, cfg.MaxEnemies),
		resolver:    NewResolver(),
		enemies:     make([]enemy, 0, cfg.MaxEnemies),
		gems:        make([]gem, 0, cfg.MaxGems),
		projectiles: make([]projectile, 0, cfg.MaxProjectiles),
		particles:   make([]particle, 0, 256),
		enemyView:   make([]Entity, 0, cfg.MaxEnemies),
		gemView:     make([]Entity, 0, cfg.MaxGems),
		hitBuf:      make([]uint32, 0, 64),
		log:         logging.For("arena"),
	}
	a.spawner = NewWaveSpawner(cfg, stream, a)
	a.player = Player{
		Facing: Vec2{X: 1},
		HP:     cfg.PlayerHP,
		MaxHP:  cfg.PlayerHP,
		Level:  1,
		NextXP: cfg.XPBase,
	}
	return a
}

// SetProbe attaches a phase timer. nil detaches.
func (a *Arena) SetProbe(p Probe) { a.probe = p }

// Resolver returns the ability resolver.
func (a *Arena) Resolver() *Resolver { return a.resolver }

// Spawner returns the wave spawner.
func (a *Arena) Spawner() *WaveSpawner { return a.spawner }

// Player returns a copy of the player state.
func (a *Arena) Player() Player { return a.player }

// PlayerPosition returns the player's position.
func (a *Arena) PlayerPosition() Vec2 { return a.player.Position }

// HealthFraction is HP over max HP in [0,1].
func (a *Arena) HealthFraction() float64 {
	if a.player.MaxHP <= 0 {
		return 0
	}
	return clamp(a.player.HP/a.player.MaxHP, 0, 1)
}

// GameTime returns simulated seconds.
func (a *Arena) GameTime() float64 { return a.gameTime }

// Steps returns the number of completed steps.
func (a *Arena) Steps() uint64 { return a.steps }

// Dead reports whether the player has died.
func (a *Arena) Dead() bool { return a.dead }

// Totals returns cumulative damage, kills and XP.
func (a *Arena) Totals() Totals { return a.totals }

// PendingLevelUps returns how many upgrade choices are owed.
func (a *Arena) PendingLevelUps() int { return a.pending }

// Counts returns the live population.
func (a *Arena) Counts() Counts {
	var c Counts
	for i := range a.enemies {
		if a.enemies[i].active {
			c.Enemies++
		}
	}
	for i := range a.gems {
		if a.gems[i].active {
			c.Gems++
		}
	}
	for i := range a.projectiles {
		if a.projectiles[i].active {
			c.Projectiles++
		}
	}
	for i := range a.particles {
		if a.particles[i].active {
			c.Particles++
		}
	}
	return c
}

// Enemies implements EntityRegistry.
func (a *Arena) Enemies() []Entity {
	a.enemyView = a.enemyView[:0]
	for i := range a.enemies {
		e := &a.enemies[i]
		a.enemyView = append(a.enemyView, Entity{ID: uint32(i), Active: e.active, Position: e.pos})
	}
	return a.enemyView
}

// Collectibles implements EntityRegistry.
func (a *Arena) Collectibles() []Entity {
	a.gemView = a.gemView[:0]
	for i := range a.gems {
		g := &a.gems[i]
		a.gemView = append(a.gemView, Entity{ID: uint32(i), Active: g.active, Position: g.pos})
	}
	return a.gemView
}

// Particles returns active particle positions for renderers.
func (a *Arena) Particles() []Vec2 {
	out := make([]Vec2, 0, len(a.particles))
	for i := range a.particles {
		if a.particles[i].active {
			out = append(out, a.particles[i].pos)
		}
	}
	return out
}

// Projectiles returns active projectile positions for renderers.
func (a *Arena) Projectiles() []Vec2 {
	out := make([]Vec2, 0, len(a.projectiles))
	for i := range a.projectiles {
		if a.projectiles[i].active {
			out = append(out, a.projectiles[i].pos)
		}
	}
	return out
}

// Checkpoint returns the authoritative values a replay verifies.
func (a *Arena) Checkpoint() (x, z float64, level, kills int) {
	return a.player.Position.X, a.player.Position.Z, a.player.Level, a.totals.Kills
}

// SpawnEnemy implements SpawnSink. It reuses an inactive slot before
// growing the pool and refuses once MaxEnemies are alive.
func (a *Arena) SpawnEnemy(angle, distance, hpScale float64) bool {
	pos := a.player.Position.Add(Vec2{math.Cos(angle) * distance, math.Sin(angle) * distance}).Clamp(a.cfg.HalfExtent)
	e := enemy{pos: pos, hp: a.cfg.EnemyHP * hpScale, active: true}
	for i := range a.enemies {
		if !a.enemies[i].active {
			a.enemies[i] = e
			return true
		}
	}
	if len(a.enemies) >= a.cfg.MaxEnemies {
		return false
	}
	a.enemies = append(a.enemies, e)
	return true
}

func (a *Arena) mark(label string) {
	if a.probe != nil {
		a.probe.Mark(label)
	}
}

func (a *Arena) measure(label string) {
	if a.probe != nil {
		a.probe.RecordTiming(label, a.probe.MeasureEnd(label))
	}
}

// Step advances the simulation by dt seconds with movement input in.
// Inputs longer than 1 are shortened to unit length.
func (a *Arena) Step(in Vec2, dt float64) StepResult {
	var res StepResult
	if a.dead {
		return res
	}
	a.gameTime += dt
	a.steps++

	a.mark(profiler.SubsystemEntityUpdate)
	a.movePlayer(in, dt)
	a.spawner.Update(dt)
	a.moveEnemies(dt)
	a.measure(profiler.SubsystemEntityUpdate)

	a.mark(profiler.SubsystemCollision)
	a.rebuildGrid()
	a.fireAbilities(dt)
	a.moveProjectiles(dt)
	a.contactDamage(dt)
	res.Kills = a.reap()
	res.LevelUps = a.collectGems()
	a.measure(profiler.SubsystemCollision)

	a.mark(profiler.SubsystemParticles)
	a.updateParticles(dt)
	a.measure(profiler.SubsystemParticles)

	if a.player.HP <= 0 {
		a.player.HP = 0
		a.dead = true
		res.Died = true
		a.log.WithFields(logrus.Fields{
			"level": a.player.Level,
			"kills": a.totals.Kills,
			"time":  a.gameTime,
		}).Info("💀 Player died")
	}
	return res
}

func (a *Arena) movePlayer(in Vec2, dt float64) {
	in = in.Limit()
	if !in.IsZero() {
		a.player.Facing = in.Normalize()
	}
	a.player.Position = a.player.Position.Add(in.Scale(a.cfg.PlayerSpeed * dt)).Clamp(a.cfg.HalfExtent)

	if a.resolver.Evolved("aura") != "" && a.player.HP < a.player.MaxHP {
		a.player.HP = math.Min(a.player.MaxHP, a.player.HP+sanctuaryRegen*dt)
	}
}

func (a *Arena) moveEnemies(dt float64) {
	speed := a.cfg.EnemySpeed * (1 + 0.1*(a.spawner.DifficultyMultiplier()-1))
	target := a.player.Position
	for i := range a.enemies {
		e := &a.enemies[i]
		if !e.active {
			continue
		}
		dir := target.Sub(e.pos)
		d := dir.Len()
		if d <= a.cfg.PlayerRadius+a.cfg.EnemyRadius {
			continue
		}
		step := math.Min(speed*dt, d)
		e.pos = e.pos.Add(dir.Scale(step / d))
	}
}

func (a *Arena) rebuildGrid() {
	a.grid.Clear()
	for i := range a.enemies {
		if a.enemies[i].active {
			a.grid.Insert(uint32(i), a.enemies[i].pos.X, a.enemies[i].pos.Z)
		}
	}
}

// nearestEnemies appends up to n active enemy indices within radius of p,
// nearest first. Ties keep index order.
func (a *Arena) nearestEnemies(p Vec2, radius float64, n int) []uint32 {
	a.hitBuf = a.hitBuf[:0]
	r2 := radius * radius
	for _, id := range a.grid.QueryRadius(p.X, p.Z, radius) {
		e := &a.enemies[id]
		if e.active && e.hp > 0 && e.pos.DistSq(p) <= r2 {
			a.hitBuf = append(a.hitBuf, id)
		}
	}
	// insertion sort: candidate lists are short
	for i := 1; i < len(a.hitBuf); i++ {
		for j := i; j > 0 && a.less(p, a.hitBuf[j], a.hitBuf[j-1]); j-- {
			a.hitBuf[j], a.hitBuf[j-1] = a.hitBuf[j-1], a.hitBuf[j]
		}
	}
	if len(a.hitBuf) > n {
		a.hitBuf = a.hitBuf[:n]
	}
	return a.hitBuf
}

func (a *Arena) less(p Vec2, i, j uint32) bool {
	di, dj := a.enemies[i].pos.DistSq(p), a.enemies[j].pos.DistSq(p)
	if di != dj {
		return di < dj
	}
	return i < j
}

func (a *Arena) damage(i int, amount float64) {
	e := &a.enemies[i]
	if !e.active || e.hp <= 0 || amount <= 0 {
		return
	}
	dealt := math.Min(amount, e.hp)
	e.hp -= amount
	a.totals.Damage += dealt
}

func (a *Arena) fireAbilities(dt float64) {
	r := a.resolver
	dmgMult := r.DamageMultiplier()
	cdMult := r.CooldownMultiplier()
	p := a.player.Position

	if lvl := r.Level("spark"); lvl > 0 {
		a.sparkTimer -= dt
		if a.sparkTimer <= 0 {
			targets := 1
			if r.Evolved("spark") != "" {
				targets = stormTargets
			}
			dmg := (sparkDamage + sparkDamageLevel*float64(lvl-1)) * dmgMult
			fired := false
			for _, id := range a.nearestEnemies(p, sparkRange, targets) {
				dir := a.enemies[id].pos.Sub(p).Normalize()
				if dir.IsZero() {
					dir = a.player.Facing
				}
				fired = a.spawnProjectile(p, dir.Scale(sparkSpeed), dmg) || fired
			}
			if fired {
				a.sparkTimer = sparkCooldown * cdMult
			}
		}
	}

	if lvl := r.Level("aura"); lvl > 0 {
		radius := auraRadius + auraRadiusLevel*float64(lvl-1)
		dps := (auraDPS + auraDPSLevel*float64(lvl-1)) * dmgMult
		r2 := radius * radius
		for _, id := range a.grid.QueryRadius(p.X, p.Z, radius) {
			if a.enemies[id].pos.DistSq(p) <= r2 {
				a.damage(int(id), dps*dt)
			}
		}
	}

	if lvl := r.Level("nova"); lvl > 0 {
		a.novaTimer -= dt
		if a.novaTimer <= 0 {
			dmg := (novaDamage + novaDamageLevel*float64(lvl-1)) * dmgMult
			r2 := novaRadius * novaRadius
			for _, id := range a.grid.QueryRadius(p.X, p.Z, novaRadius) {
				if a.enemies[id].pos.DistSq(p) <= r2 {
					a.damage(int(id), dmg)
				}
			}
			a.novaTimer = novaCooldown * cdMult
		}
	}
}

func (a *Arena) spawnProjectile(pos, vel Vec2, dmg float64) bool {
	p := projectile{pos: pos, vel: vel, damage: dmg, ttl: sparkTTL, active: true}
	for i := range a.projectiles {
		if !a.projectiles[i].active {
			a.projectiles[i] = p
			return true
		}
	}
	if len(a.projectiles) >= a.cfg.MaxProjectiles {
		return false
	}
	a.projectiles = append(a.projectiles, p)
	return true
}

func (a *Arena) moveProjectiles(dt float64) {
	hitR := a.cfg.EnemyRadius + 0.2
	for i := range a.projectiles {
		pr := &a.projectiles[i]
		if !pr.active {
			continue
		}
		pr.pos = pr.pos.Add(pr.vel.Scale(dt))
		pr.ttl -= dt
		if pr.ttl <= 0 || math.Abs(pr.pos.X) > a.cfg.HalfExtent || math.Abs(pr.pos.Z) > a.cfg.HalfExtent {
			pr.active = false
			continue
		}
		if hit := a.nearestEnemies(pr.pos, hitR, 1); len(hit) > 0 {
			a.damage(int(hit[0]), pr.damage)
			pr.active = false
		}
	}
}

func (a *Arena) contactDamage(dt float64) {
	reach := a.cfg.PlayerRadius + a.cfg.EnemyRadius + 0.05
	r2 := reach * reach
	p := a.player.Position
	for _, id := range a.grid.QueryRadius(p.X, p.Z, reach) {
		e := &a.enemies[id]
		if e.active && e.hp > 0 && e.pos.DistSq(p) <= r2 {
			a.player.HP -= a.cfg.ContactDPS * dt
		}
	}
}

// reap deactivates dead enemies, drops a gem and a particle burst for each.
func (a *Arena) reap() int {
	kills := 0
	mult := a.spawner.DifficultyMultiplier()
	for i := range a.enemies {
		e := &a.enemies[i]
		if !e.active || e.hp > 0 {
			continue
		}
		e.active = false
		kills++
		a.dropGem(e.pos, gemXP*mult)
		a.burst(e.pos)
	}
	a.totals.Kills += kills
	return kills
}

func (a *Arena) dropGem(pos Vec2, value float64) {
	g := gem{pos: pos, value: value, active: true}
	for i := range a.gems {
		if !a.gems[i].active {
			a.gems[i] = g
			return
		}
	}
	if len(a.gems) < a.cfg.MaxGems {
		a.gems = append(a.gems, g)
	}
}

func (a *Arena) burst(pos Vec2) {
	for k := 0; k < burstParticles; k++ {
		angle := 2 * math.Pi * float64(k) / burstParticles
		p := particle{
			pos:    pos,
			vel:    Vec2{math.Cos(angle) * particleSpeed, math.Sin(angle) * particleSpeed},
			ttl:    particleTTL,
			active: true,
		}
		placed := false
		for i := range a.particles {
			if !a.particles[i].active {
				a.particles[i] = p
				placed = true
				break
			}
		}
		if !placed {
			a.particles = append(a.particles, p)
		}
	}
}

func (a *Arena) updateParticles(dt float64) {
	for i := range a.particles {
		p := &a.particles[i]
		if !p.active {
			continue
		}
		p.ttl -= dt
		if p.ttl <= 0 {
			p.active = false
			continue
		}
		p.pos = p.pos.Add(p.vel.Scale(dt))
	}
}

// collectGems picks up gems in reach and returns the number of levels gained.
func (a *Arena) collectGems() int {
	reach := a.cfg.PickupRadius + a.resolver.PickupBonus()
	r2 := reach * reach
	p := a.player.Position
	gained := 0
	for i := range a.gems {
		g := &a.gems[i]
		if !g.active || g.pos.DistSq(p) > r2 {
			continue
		}
		g.active = false
		a.player.XP += g.value
		a.totals.XP += g.value
		for a.player.XP >= a.player.NextXP {
			a.player.XP -= a.player.NextXP
			a.player.Level++
			a.player.NextXP = a.cfg.XPBase + a.cfg.XPGrowth*float64(a.player.Level-1)
			a.pending++
			gained++
		}
	}
	return gained
}

// Offer draws up to n distinct upgrade choices for the next pending
// level-up. The draws depend only on resolver state, so a replay that
// calls Offer at the same points consumes the stream identically.
func (a *Arena) Offer(n int) []Upgrade {
	pool := a.resolver.Available()
	out := make([]Upgrade, 0, n)
	for i := 0; i < n; i++ {
		k := a.stream.Intn(len(pool))
		if len(pool) == 0 {
			continue
		}
		out = append(out, pool[k])
		pool = append(pool[:k], pool[k+1:]...)
	}
	return out
}

// ApplyUpgrade spends one pending level-up on id and runs any evolution
// it unlocks. An id that can no longer be applied still spends the
// level-up and is logged.
func (a *Arena) ApplyUpgrade(id string) error {
	if a.pending == 0 {
		return ErrNoPendingLevelUp
	}
	a.pending--

	before := a.resolver.BonusHP()
	if err := a.resolver.Apply(id); err != nil {
		a.log.WithError(err).WithField("upgrade", id).Warn("⚠️ Upgrade not applied")
		return fmt.Errorf("apply upgrade: %w", err)
	}
	if gain := a.resolver.BonusHP() - before; gain > 0 {
		a.player.MaxHP += gain
		a.player.HP += gain
	}
	for _, rule := range Evolutions {
		if a.resolver.Evolve(rule) {
			a.log.WithFields(logrus.Fields{
				"ability": rule.Ability,
				"result":  rule.Result,
			}).Info("✨ Ability evolved")
		}
	}
	return nil
}
