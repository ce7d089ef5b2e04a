package profiler

import (
	"fmt"

	"arena-core/internal/config"
)

// Severity prefixes for warning strings.
const (
	SeverityCritical = "CRITICAL"
	SeverityWarning  = "WARNING"
)

// Evaluate applies the warning policy to a snapshot. Each metric is checked
// on its own; a frame can raise any combination of warnings.
func Evaluate(s PerformanceSnapshot, th config.ProfilerThresholds) []string {
	var out []string

	if s.Frame.Frames > 0 {
		switch {
		case s.Frame.FPS < th.FPSCritical:
			out = append(out, fmt.Sprintf("%s: FPS %.1f below %.0f", SeverityCritical, s.Frame.FPS, th.FPSCritical))
		case s.Frame.FPS < th.FPSWarning:
			out = append(out, fmt.Sprintf("%s: FPS %.1f below %.0f", SeverityWarning, s.Frame.FPS, th.FPSWarning))
		}

		switch {
		case s.Frame.AvgFrameTime > th.FrameTimeCritical:
			out = append(out, fmt.Sprintf("%s: frame time %.2fms above %.0fms", SeverityCritical, s.Frame.AvgFrameTime, th.FrameTimeCritical))
		case s.Frame.AvgFrameTime > th.FrameTimeWarning:
			out = append(out, fmt.Sprintf("%s: frame time %.2fms above %.0fms", SeverityWarning, s.Frame.AvgFrameTime, th.FrameTimeWarning))
		}
	}

	if s.Entities.Total > th.MaxEntities {
		out = append(out, fmt.Sprintf("%s: %d entities above %d", SeverityWarning, s.Entities.Total, th.MaxEntities))
	}
	if s.Render.DrawCalls > th.MaxDrawCalls {
		out = append(out, fmt.Sprintf("%s: %d draw calls above %d", SeverityWarning, s.Render.DrawCalls, th.MaxDrawCalls))
	}
	if s.Memory.HeapMB > th.MaxMemoryMB {
		out = append(out, fmt.Sprintf("%s: heap %.1fMB above %.0fMB", SeverityWarning, s.Memory.HeapMB, th.MaxMemoryMB))
	}
	if s.Timings.Collision > th.MaxCollisionMs {
		out = append(out, fmt.Sprintf("%s: collision %.2fms above %.0fms", SeverityWarning, s.Timings.Collision, th.MaxCollisionMs))
	}
	if s.Timings.Particles > th.MaxParticlesMs {
		out = append(out, fmt.Sprintf("%s: particles %.2fms above %.0fms", SeverityWarning, s.Timings.Particles, th.MaxParticlesMs))
	}

	return out
}
