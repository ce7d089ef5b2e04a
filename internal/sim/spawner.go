package sim

import (
	"math"

	"arena-core/internal/config"
	"arena-core/internal/rng"
)

// SpawnSink places enemies. angle and distance are relative to the player.
type SpawnSink interface {
	SpawnEnemy(angle, distance, hpScale float64) bool
}

// WaveSpawner trickles enemies in continuously and adds a burst every
// WaveInterval seconds. Both scale with the difficulty multiplier.
type WaveSpawner struct {
	cfg    config.ArenaConfig
	stream *rng.Stream
	sink   SpawnSink

	elapsed  float64
	trickle  float64 // seconds until next trickle spawn
	nextWave float64
	waves    int
}

// NewWaveSpawner creates a spawner drawing positions from stream.
func NewWaveSpawner(cfg config.ArenaConfig, stream *rng.Stream, sink SpawnSink) *WaveSpawner {
	return &WaveSpawner{
		cfg:      cfg,
		stream:   stream,
		sink:     sink,
		trickle:  cfg.SpawnInterval,
		nextWave: cfg.WaveInterval,
	}
}

// DifficultyMultiplier grows linearly: 1 at the start, 2 after one minute.
func (s *WaveSpawner) DifficultyMultiplier() float64 {
	return difficultyAt(s.elapsed)
}

func difficultyAt(t float64) float64 { return 1 + t/60 }

// Update advances spawn timers by dt seconds.
func (s *WaveSpawner) Update(dt float64) {
	s.elapsed += dt
	mult := s.DifficultyMultiplier()

	if s.cfg.SpawnInterval > 0 {
		s.trickle -= dt
		for s.trickle <= 0 {
			s.spawnOne(mult)
			s.trickle += s.cfg.SpawnInterval / mult
		}
	}

	if s.cfg.WaveInterval > 0 && s.elapsed >= s.nextWave {
		n := s.waveSize(s.nextWave)
		// burst arrives as an evenly spaced ring with a random rotation
		base := s.stream.Angle()
		for i := 0; i < n; i++ {
			angle := base + 2*math.Pi*float64(i)/float64(n)
			s.sink.SpawnEnemy(angle, s.cfg.SpawnDistance, mult)
		}
		s.waves++
		s.nextWave += s.cfg.WaveInterval
	}
}

func (s *WaveSpawner) spawnOne(mult float64) {
	angle := s.stream.Angle()
	dist := s.cfg.SpawnDistance + s.stream.Range(0, 4)
	s.sink.SpawnEnemy(angle, dist, mult)
}

func (s *WaveSpawner) waveSize(at float64) int {
	return int(math.Round(float64(s.cfg.WaveSize) * difficultyAt(at)))
}

// UpcomingWaves returns the next n scheduled bursts.
func (s *WaveSpawner) UpcomingWaves(n int) []Wave {
	if n <= 0 || s.cfg.WaveInterval <= 0 {
		return nil
	}
	out := make([]Wave, 0, n)
	at := s.nextWave
	for i := 0; i < n; i++ {
		out = append(out, Wave{At: at, Count: s.waveSize(at)})
		at += s.cfg.WaveInterval
	}
	return out
}

// WavesSpawned returns how many bursts have fired.
func (s *WaveSpawner) WavesSpawned() int { return s.waves }
