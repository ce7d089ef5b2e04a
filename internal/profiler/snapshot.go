package profiler

// Subsystem names accepted by RecordTiming.
const (
	SubsystemEntityUpdate = "entityUpdate"
	SubsystemCollision    = "collision"
	SubsystemParticles    = "particles"
	SubsystemBillboard    = "billboard"
	SubsystemSceneRender  = "sceneRender"
)

// FrameStats is frame timing in milliseconds.
type FrameStats struct {
	FPS          float64 `json:"fps"`
	FrameTime    float64 `json:"frameTime"`
	AvgFrameTime float64 `json:"avgFrameTime"`
	MinFrameTime float64 `json:"minFrameTime"`
	MaxFrameTime float64 `json:"maxFrameTime"`
	WorkTime     float64 `json:"workTime"` // begin→end of the last frame
	Frames       uint64  `json:"frames"`
}

// EntityCounts is the live entity population.
type EntityCounts struct {
	Enemies      int `json:"enemies"`
	Collectibles int `json:"collectibles"`
	Projectiles  int `json:"projectiles"`
	Total        int `json:"total"`
}

// RenderStats is reported by the rendering collaborator.
type RenderStats struct {
	DrawCalls int `json:"drawCalls"`
	Triangles int `json:"triangles"`
}

// Timings is the per-subsystem breakdown of the last frame in milliseconds.
type Timings struct {
	EntityUpdate float64 `json:"entityUpdate"`
	Collision    float64 `json:"collision"`
	Particles    float64 `json:"particles"`
	Billboard    float64 `json:"billboard"`
	SceneRender  float64 `json:"sceneRender"`
}

// MemoryStats is the Go heap in use.
type MemoryStats struct {
	HeapMB float64 `json:"heapMB"`
}

// GameStats holds cumulative run totals and the last per-second DPS.
type GameStats struct {
	TotalDamage float64 `json:"totalDamage"`
	TotalKills  int     `json:"totalKills"`
	TotalXP     float64 `json:"totalXP"`
	DPS         float64 `json:"dps"`
	GameTime    float64 `json:"gameTime"`
}

// PerformanceSnapshot is an immutable copy of the profiler state.
type PerformanceSnapshot struct {
	Frame     FrameStats   `json:"frame"`
	Entities  EntityCounts `json:"entities"`
	Render    RenderStats  `json:"render"`
	Timings   Timings      `json:"timings"`
	Memory    MemoryStats  `json:"memory"`
	GameStats GameStats    `json:"gameStats"`
}

// History is the short-horizon per-frame series.
type History struct {
	FPS         []float64 `json:"fps"`
	FrameTime   []float64 `json:"frameTime"`
	EntityCount []float64 `json:"entityCount"`
}

// StatsSeries is the long-horizon per-second series.
type StatsSeries struct {
	Damage     []float64 `json:"damage"`
	Kills      []float64 `json:"kills"`
	XP         []float64 `json:"xp"`
	DPS        []float64 `json:"dps"`
	EnemyCount []float64 `json:"enemyCount"`
}
