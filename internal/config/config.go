// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for loop, profiler, replay and host settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// LOOP CONFIGURATION
// =============================================================================

// LoopConfig holds fixed-timestep loop settings.
type LoopConfig struct {
	TickRate    int     // Fixed simulation steps per second
	MaxFrameMs  float64 // Frame time clamp before accumulation (spiral-of-death guard)
	RefreshRate int     // Display refresh rate the capped scheduler aligns to
	Uncapped    bool    // Benchmark mode: zero-delay continuation instead of vsync
	FPSWindow   int     // Rolling window for the loop's FPS callback
}

// DefaultLoop returns the default loop configuration.
func DefaultLoop() LoopConfig {
	return LoopConfig{
		TickRate:    60,
		MaxFrameMs:  250,
		RefreshRate: 60,
		Uncapped:    false, // never default to uncapped
		FPSWindow:   60,
	}
}

// LoopFromEnv returns loop configuration with environment variable overrides.
func LoopFromEnv() LoopConfig {
	cfg := DefaultLoop()

	if hz := getEnvInt("LOOP_REFRESH_RATE", 0); hz > 0 {
		cfg.RefreshRate = hz
	}
	if os.Getenv("LOOP_UNCAPPED") == "true" {
		cfg.Uncapped = true
	}

	return cfg
}

// FixedStep returns the simulation step duration.
func (c LoopConfig) FixedStep() time.Duration {
	if c.TickRate <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(c.TickRate)
}

// =============================================================================
// PROFILER CONFIGURATION
// =============================================================================

// ProfilerThresholds are the fixed warning policy constants.
type ProfilerThresholds struct {
	FPSCritical       float64 // below → critical
	FPSWarning        float64 // below → warning
	FrameTimeCritical float64 // ms, above → critical
	FrameTimeWarning  float64 // ms, above → warning
	MaxEntities       int
	MaxDrawCalls      int
	MaxMemoryMB       float64
	MaxCollisionMs    float64
	MaxParticlesMs    float64
}

// ProfilerConfig holds window sizes and warning policy.
type ProfilerConfig struct {
	FrameWindow    int // rolling frame-time samples
	HistorySize    int // fps/frameTime/entityCount ring buffers (≈5s at 60Hz)
	StatsHistory   int // one sample per game second (7 minutes)
	Thresholds     ProfilerThresholds
	OverlayVisible bool
	ReportDir      string
}

// DefaultProfiler returns the default profiler configuration.
func DefaultProfiler() ProfilerConfig {
	return ProfilerConfig{
		FrameWindow:  60,
		HistorySize:  300,
		StatsHistory: 420,
		Thresholds: ProfilerThresholds{
			FPSCritical:       30,
			FPSWarning:        50,
			FrameTimeCritical: 33,
			FrameTimeWarning:  20,
			MaxEntities:       2250,
			MaxDrawCalls:      100,
			MaxMemoryMB:       500,
			MaxCollisionMs:    5,
			MaxParticlesMs:    3,
		},
		ReportDir: ".",
	}
}

// ProfilerFromEnv returns profiler configuration with environment overrides.
func ProfilerFromEnv() ProfilerConfig {
	cfg := DefaultProfiler()

	if os.Getenv("PROFILER_OVERLAY") == "true" {
		cfg.OverlayVisible = true
	}
	if dir := os.Getenv("PROFILER_REPORT_DIR"); dir != "" {
		cfg.ReportDir = dir
	}

	return cfg
}

// =============================================================================
// BOT CONFIGURATION
// =============================================================================

// BotConfig holds the autonomous controller's tuned constants.
// The caution threshold values reproduce observed play; they have no derivation.
type BotConfig struct {
	ThreatRadius        float64
	ResourceRadius      float64
	ResourceBias        float64 // added to distance before inverting
	LowHealthFraction   float64
	EarlyDangerDistance float64
	LateDangerDistance  float64
	CautionAfter        float64 // game seconds
	CrowdLimit          int     // more threats than this → flee
	AdvanceRange        float64 // only advance on hostiles farther than this
}

// DefaultBot returns the default bot configuration.
func DefaultBot() BotConfig {
	return BotConfig{
		ThreatRadius:        12,
		ResourceRadius:      100,
		ResourceBias:        0.5,
		LowHealthFraction:   0.4,
		EarlyDangerDistance: 4.0,
		LateDangerDistance:  5.5,
		CautionAfter:        600,
		CrowdLimit:          5,
		AdvanceRange:        15,
	}
}

// =============================================================================
// ARENA CONFIGURATION
// =============================================================================

// ArenaConfig holds the reference simulation's tuning.
// Distances are world units, speeds are units per second.
type ArenaConfig struct {
	HalfExtent     float64 // world spans [-HalfExtent, HalfExtent] on both axes
	CellSize       float64 // broad-phase grid cell
	MaxEnemies     int
	MaxGems        int
	MaxProjectiles int

	PlayerSpeed  float64
	PlayerHP     float64
	PlayerRadius float64
	PickupRadius float64

	EnemySpeed  float64
	EnemyHP     float64
	EnemyRadius float64
	ContactDPS  float64 // damage per second while touching the player

	SpawnDistance float64 // enemies appear on a ring this far from the player
	SpawnInterval float64 // seconds between trickle spawns at difficulty 1
	WaveInterval  float64 // seconds between burst waves
	WaveSize      int     // enemies per burst at difficulty 1

	XPBase   float64 // XP for level 2
	XPGrowth float64 // extra XP per level after that
	Offers   int     // upgrade choices offered per level-up
}

// DefaultArena returns the default arena configuration.
func DefaultArena() ArenaConfig {
	return ArenaConfig{
		HalfExtent:     60,
		CellSize:       4,
		MaxEnemies:     600,
		MaxGems:        1200,
		MaxProjectiles: 128,

		PlayerSpeed:  6,
		PlayerHP:     100,
		PlayerRadius: 0.6,
		PickupRadius: 1.5,

		EnemySpeed:  2.4,
		EnemyHP:     10,
		EnemyRadius: 0.5,
		ContactDPS:  12,

		SpawnDistance: 20,
		SpawnInterval: 1.2,
		WaveInterval:  30,
		WaveSize:      12,

		XPBase:   5,
		XPGrowth: 10,
		Offers:   3,
	}
}

// =============================================================================
// REPLAY CONFIGURATION
// =============================================================================

// ReplayConfig holds recording and archive settings.
type ReplayConfig struct {
	CheckpointEvery int     // frames between checkpoints
	ArchivePath     string  // JSONL file for finished sessions ("" disables)
	ArchiveRate     float64 // sessions per second accepted by the archive
}

// DefaultReplay returns the default replay configuration.
func DefaultReplay() ReplayConfig {
	return ReplayConfig{
		CheckpointEvery: 300, // 5s at 60Hz
		ArchivePath:     "replays.jsonl",
		ArchiveRate:     5,
	}
}

// ReplayFromEnv returns replay configuration with environment overrides.
func ReplayFromEnv() ReplayConfig {
	cfg := DefaultReplay()

	if n := getEnvInt("REPLAY_CHECKPOINT_EVERY", 0); n > 0 {
		cfg.CheckpointEvery = n
	}
	if v, ok := os.LookupEnv("REPLAY_ARCHIVE_PATH"); ok {
		cfg.ArchivePath = v
	}
	if r := getEnvFloat("REPLAY_ARCHIVE_RATE", 0); r > 0 {
		cfg.ArchiveRate = r
	}

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds sound bank settings.
type AudioConfig struct {
	Enabled  bool
	Volume   float64 // 0.0 to 1.0
	AssetDir string
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		Enabled:  true,
		Volume:   0.5,
		AssetDir: "assets/sfx",
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("SFX_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("SFX_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if dir := os.Getenv("SFX_DIR"); dir != "" {
		cfg.AssetDir = dir
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          int
	CORSOrigins   []string
	DebugAddr     string // pprof + metrics, localhost only
	DebugServer   bool
	DebugExternal bool   // allow DebugAddr off localhost
	ControlToken  string // bearer token for POST routes ("" disables the check)
	RateLimit     float64
	RateBurst     int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
		CORSOrigins: []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		},
		DebugAddr:   "127.0.0.1:6060",
		DebugServer: true,
		RateLimit:   10,
		RateBurst:   20,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.DebugServer = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	cfg.DebugExternal = os.Getenv("ALLOW_DEBUG_EXTERNAL") == "true"
	cfg.ControlToken = os.Getenv("API_CONTROL_TOKEN")
	cfg.RateLimit = getEnvFloat("API_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = getEnvInt("API_RATE_BURST", cfg.RateBurst)

	return cfg
}

// =============================================================================
// SESSION CONFIGURATION
// =============================================================================

// SessionConfig holds per-run metadata defaults.
type SessionConfig struct {
	Seed        string // "" → fresh seed per run
	PlayerName  string
	CharacterID string
	WorldID     string
	BotEnabled  bool
	GoalSeconds float64 // survive this long to end the run with a milestone (0 = no goal)
}

// DefaultSession returns the default session configuration.
func DefaultSession() SessionConfig {
	return SessionConfig{
		PlayerName:  "player",
		CharacterID: "wanderer",
		WorldID:     "forest",
		BotEnabled:  true,
	}
}

// SessionFromEnv returns session configuration with environment overrides.
func SessionFromEnv() SessionConfig {
	cfg := DefaultSession()

	cfg.Seed = os.Getenv("SESSION_SEED")
	if v := os.Getenv("SESSION_PLAYER"); v != "" {
		cfg.PlayerName = v
	}
	if v := os.Getenv("SESSION_CHARACTER"); v != "" {
		cfg.CharacterID = v
	}
	if v := os.Getenv("SESSION_WORLD"); v != "" {
		cfg.WorldID = v
	}
	if os.Getenv("BOT_ENABLED") == "false" {
		cfg.BotEnabled = false
	}
	if g := getEnvFloat("SESSION_GOAL_SECONDS", 0); g > 0 {
		cfg.GoalSeconds = g
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Loop     LoopConfig
	Arena    ArenaConfig
	Profiler ProfilerConfig
	Bot      BotConfig
	Replay   ReplayConfig
	Audio    AudioConfig
	Server   ServerConfig
	Session  SessionConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Loop:     LoopFromEnv(),
		Arena:    DefaultArena(),
		Profiler: ProfilerFromEnv(),
		Bot:      DefaultBot(),
		Replay:   ReplayFromEnv(),
		Audio:    AudioFromEnv(),
		Server:   ServerFromEnv(),
		Session:  SessionFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
