package profiler

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arena-core/internal/config"
)

// fakeClock advances only when told to.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProfiler(clk *fakeClock) *Profiler {
	return New(config.DefaultProfiler(),
		WithClock(clk.now),
		WithMemoryReader(func() float64 { return 64 }),
	)
}

func TestMarkMeasureEnd(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	p := newTestProfiler(clk)

	p.Mark("collision")
	clk.advance(3 * time.Millisecond)
	if got := p.MeasureEnd("collision"); got != 3*time.Millisecond {
		t.Errorf("Expected 3ms, got %v", got)
	}

	// mark was cleared
	if got := p.MeasureEnd("collision"); got != 0 {
		t.Errorf("Expected 0 for a cleared mark, got %v", got)
	}
}

func TestFrameStatistics(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clk)

	for i := 0; i < 10; i++ {
		p.BeginFrame()
		clk.advance(4 * time.Millisecond)
		p.EndFrame()
		clk.advance(16 * time.Millisecond)
	}

	s := p.Snapshot()
	if s.Frame.Frames != 10 {
		t.Fatalf("Expected 10 frames, got %d", s.Frame.Frames)
	}
	if s.Frame.AvgFrameTime != 20 {
		t.Errorf("Expected 20ms average frame time, got %v", s.Frame.AvgFrameTime)
	}
	if s.Frame.FPS != 50 {
		t.Errorf("Expected 50 FPS, got %v", s.Frame.FPS)
	}
	if s.Frame.WorkTime != 4 {
		t.Errorf("Expected 4ms work time, got %v", s.Frame.WorkTime)
	}
	if s.Memory.HeapMB != 64 {
		t.Errorf("Expected sampled heap 64MB, got %v", s.Memory.HeapMB)
	}
}

func TestFrameHistoryBounded(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	p := newTestProfiler(clk)

	for i := 0; i < 400; i++ {
		p.BeginFrame()
		clk.advance(16 * time.Millisecond)
		p.EndFrame()
	}

	h := p.History()
	if len(h.FPS) != 300 {
		t.Errorf("Expected fps history of 300, got %d", len(h.FPS))
	}
	if len(h.FrameTime) != 300 {
		t.Errorf("Expected frame time history of 300, got %d", len(h.FrameTime))
	}
	if len(h.EntityCount) != 300 {
		t.Errorf("Expected entity history of 300, got %d", len(h.EntityCount))
	}
}

func TestStatsHistoryBounded(t *testing.T) {
	p := newTestProfiler(&fakeClock{})

	for sec := 0; sec < 500; sec++ {
		// several frames per second: only the first crossing samples
		for f := 0; f < 3; f++ {
			p.UpdateGameStats(GameTotals{
				Damage:   float64(sec * 10),
				Kills:    sec,
				XP:       float64(sec * 2),
				GameTime: float64(sec) + float64(f)*0.3,
			})
		}
	}

	s := p.StatsHistory()
	for name, series := range map[string][]float64{
		"damage": s.Damage, "kills": s.Kills, "xp": s.XP, "dps": s.DPS, "enemyCount": s.EnemyCount,
	} {
		if len(series) != 420 {
			t.Errorf("%s: Expected 420 samples, got %d", name, len(series))
		}
	}
	// FIFO: oldest retained sample is second 80
	if s.Kills[0] != 80 {
		t.Errorf("Expected oldest kills sample 80, got %v", s.Kills[0])
	}
	if s.DPS[len(s.DPS)-1] != 10 {
		t.Errorf("Expected per-interval DPS of 10, got %v", s.DPS[len(s.DPS)-1])
	}
}

func TestStatsHistorySkipsSameSecond(t *testing.T) {
	h := NewStatsHistory(420)
	if !h.Observe(GameTotals{GameTime: 0.1}) {
		t.Fatal("first observation should sample second 0")
	}
	if h.Observe(GameTotals{GameTime: 0.9}) {
		t.Error("same whole second should not sample again")
	}
	if !h.Observe(GameTotals{GameTime: 3.2, Damage: 50}) {
		t.Error("crossing to second 3 should sample")
	}
	if h.DPS() != 50 {
		t.Errorf("Expected DPS 50, got %v", h.DPS())
	}
}

func TestWarningsAreAdditive(t *testing.T) {
	th := config.DefaultProfiler().Thresholds
	snap := PerformanceSnapshot{
		Frame:    FrameStats{FPS: 25, AvgFrameTime: 40, Frames: 1},
		Entities: EntityCounts{Total: 3000},
		Render:   RenderStats{DrawCalls: 150},
		Memory:   MemoryStats{HeapMB: 600},
		Timings:  Timings{Collision: 6, Particles: 4},
	}

	got := Evaluate(snap, th)
	if len(got) != 7 {
		t.Fatalf("Expected 7 independent warnings, got %d: %v", len(got), got)
	}
	if !strings.HasPrefix(got[0], SeverityCritical) || !strings.HasPrefix(got[1], SeverityCritical) {
		t.Errorf("FPS and frame time should be critical: %v", got[:2])
	}
}

func TestWarningLevels(t *testing.T) {
	th := config.DefaultProfiler().Thresholds
	tests := []struct {
		name string
		snap PerformanceSnapshot
		want []string
	}{
		{"healthy", PerformanceSnapshot{Frame: FrameStats{FPS: 60, AvgFrameTime: 16.6, Frames: 1}}, nil},
		{"fps warning", PerformanceSnapshot{Frame: FrameStats{FPS: 45, AvgFrameTime: 19, Frames: 1}}, []string{SeverityWarning}},
		{"frame time warning", PerformanceSnapshot{Frame: FrameStats{FPS: 55, AvgFrameTime: 25, Frames: 1}}, []string{SeverityWarning}},
		{"no frames yet", PerformanceSnapshot{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.snap, th)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d warnings, got %v", len(tt.want), got)
			}
			for i := range tt.want {
				if !strings.HasPrefix(got[i], tt.want[i]) {
					t.Errorf("Expected prefix %s, got %s", tt.want[i], got[i])
				}
			}
		})
	}
}

func TestReportDeterministic(t *testing.T) {
	snap := PerformanceSnapshot{
		Frame:     FrameStats{FPS: 59.8, FrameTime: 16.7, AvgFrameTime: 16.72, Frames: 120},
		Entities:  EntityCounts{Enemies: 10, Collectibles: 5, Total: 15},
		GameStats: GameStats{GameTime: 12, TotalKills: 3},
	}

	a := FormatReport(snap, nil)
	b := FormatReport(snap, nil)
	if a != b {
		t.Fatal("report text differs for the same snapshot")
	}
	for _, want := range []string{
		"=== PERFORMANCE REPORT ===",
		"FPS:              59.8",
		"Total:            15",
		"Total Kills:      3",
		"--- Warnings ---\n(none)",
	} {
		if !strings.Contains(a, want) {
			t.Errorf("report missing %q:\n%s", want, a)
		}
	}

	withWarn := FormatReport(snap, []string{"WARNING: test"})
	if !strings.Contains(withWarn, "- WARNING: test\n") {
		t.Errorf("report should list warnings:\n%s", withWarn)
	}
}

func TestOverlayToggle(t *testing.T) {
	p := newTestProfiler(&fakeClock{})
	if p.Visible() {
		t.Fatal("overlay should be hidden by default")
	}
	if !p.ToggleVisible() || !p.Visible() {
		t.Error("toggle should show the overlay")
	}
}

func TestRenderChartPNG(t *testing.T) {
	p := newTestProfiler(&fakeClock{})
	for sec := 0; sec < 30; sec++ {
		p.UpdateGameStats(GameTotals{Damage: float64(sec * sec), Kills: sec, GameTime: float64(sec), EnemyCount: sec % 7})
	}

	var buf bytes.Buffer
	if err := p.RenderChart(&buf, 320, 240); err != nil {
		t.Fatalf("RenderChart failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("chart is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Errorf("Expected 320x240, got %v", b)
	}

	if err := p.RenderChart(&buf, 0, 10); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestExportWritesFiles(t *testing.T) {
	p := newTestProfiler(&fakeClock{})
	dir := t.TempDir()

	res, err := p.Export(filepath.Join(dir, "reports"), time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	data, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if string(data) != p.GenerateReport() {
		t.Error("exported report should equal GenerateReport output")
	}
	if !strings.HasSuffix(res.ReportPath, "perf-report-20260102-030405.txt") {
		t.Errorf("unexpected report name %s", res.ReportPath)
	}
	if res.ChartPath == "" {
		t.Error("Expected chart to be exported")
	}
}
