package profiler

import (
	"fmt"
	"strings"
)

// FormatReport renders a fixed-layout text block. The output depends only
// on its arguments, so the same snapshot always yields the same text.
func FormatReport(s PerformanceSnapshot, warnings []string) string {
	var b strings.Builder

	b.WriteString("=== PERFORMANCE REPORT ===\n")

	section(&b, "Frame Timing")
	row(&b, "FPS", fmt.Sprintf("%.1f", s.Frame.FPS))
	row(&b, "Frame Time", fmt.Sprintf("%.2f ms", s.Frame.FrameTime))
	row(&b, "Avg Frame Time", fmt.Sprintf("%.2f ms", s.Frame.AvgFrameTime))
	row(&b, "Min / Max", fmt.Sprintf("%.2f / %.2f ms", s.Frame.MinFrameTime, s.Frame.MaxFrameTime))
	row(&b, "Work Time", fmt.Sprintf("%.2f ms", s.Frame.WorkTime))
	row(&b, "Frames", fmt.Sprintf("%d", s.Frame.Frames))

	section(&b, "Entities")
	row(&b, "Enemies", fmt.Sprintf("%d", s.Entities.Enemies))
	row(&b, "Collectibles", fmt.Sprintf("%d", s.Entities.Collectibles))
	row(&b, "Projectiles", fmt.Sprintf("%d", s.Entities.Projectiles))
	row(&b, "Total", fmt.Sprintf("%d", s.Entities.Total))

	section(&b, "Rendering")
	row(&b, "Draw Calls", fmt.Sprintf("%d", s.Render.DrawCalls))
	row(&b, "Triangles", fmt.Sprintf("%d", s.Render.Triangles))

	section(&b, "Timing Breakdown")
	row(&b, "Entity Update", fmt.Sprintf("%.2f ms", s.Timings.EntityUpdate))
	row(&b, "Collision", fmt.Sprintf("%.2f ms", s.Timings.Collision))
	row(&b, "Particles", fmt.Sprintf("%.2f ms", s.Timings.Particles))
	row(&b, "Billboard", fmt.Sprintf("%.2f ms", s.Timings.Billboard))
	row(&b, "Scene Render", fmt.Sprintf("%.2f ms", s.Timings.SceneRender))

	section(&b, "Memory")
	row(&b, "Heap In Use", fmt.Sprintf("%.1f MB", s.Memory.HeapMB))

	section(&b, "Game Stats")
	row(&b, "Game Time", fmt.Sprintf("%.1f s", s.GameStats.GameTime))
	row(&b, "Total Damage", fmt.Sprintf("%.0f", s.GameStats.TotalDamage))
	row(&b, "Total Kills", fmt.Sprintf("%d", s.GameStats.TotalKills))
	row(&b, "Total XP", fmt.Sprintf("%.0f", s.GameStats.TotalXP))
	row(&b, "DPS", fmt.Sprintf("%.1f", s.GameStats.DPS))

	section(&b, "Warnings")
	if len(warnings) == 0 {
		b.WriteString("(none)\n")
	}
	for _, w := range warnings {
		b.WriteString("- ")
		b.WriteString(w)
		b.WriteByte('\n')
	}

	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "\n--- %s ---\n", title)
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-18s%s\n", label+":", value)
}
