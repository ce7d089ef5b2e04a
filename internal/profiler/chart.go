package profiler

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
)

type chartSeries struct {
	name    string
	values  []float64
	r, g, b float64
}

// RenderChart draws the per-second stats history as stacked line panels
// and writes a PNG to w.
func (p *Profiler) RenderChart(w io.Writer, width, height int) error {
	return RenderStatsChart(w, p.StatsHistory(), width, height)
}

// RenderStatsChart draws series as a PNG.
func RenderStatsChart(w io.Writer, s StatsSeries, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", width, height)
	}

	series := []chartSeries{
		{"damage", s.Damage, 0.90, 0.30, 0.25},
		{"kills", s.Kills, 0.95, 0.75, 0.20},
		{"xp", s.XP, 0.30, 0.80, 0.40},
		{"dps", s.DPS, 0.35, 0.55, 0.95},
		{"enemies", s.EnemyCount, 0.75, 0.40, 0.90},
	}

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.08, 0.08, 0.10)
	dc.Clear()

	panelH := float64(height) / float64(len(series))
	const pad = 6.0

	for i, cs := range series {
		top := float64(i) * panelH

		dc.SetRGBA(1, 1, 1, 0.08)
		dc.DrawLine(0, top+panelH, float64(width), top+panelH)
		dc.SetLineWidth(1)
		dc.Stroke()

		peak := 0.0
		for _, v := range cs.values {
			if v > peak {
				peak = v
			}
		}

		dc.SetRGB(cs.r, cs.g, cs.b)
		dc.DrawString(fmt.Sprintf("%s (max %.0f)", cs.name, peak), pad, top+14)

		if len(cs.values) < 2 || peak <= 0 {
			continue
		}

		step := (float64(width) - 2*pad) / float64(len(cs.values)-1)
		plotH := panelH - 20 - pad
		for j, v := range cs.values {
			x := pad + float64(j)*step
			y := top + panelH - pad - (v/peak)*plotH
			if j == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.SetLineWidth(1.5)
		dc.Stroke()
	}

	return dc.EncodePNG(w)
}
