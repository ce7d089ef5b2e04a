package tui

import (
	"fmt"
	"math"
	"time"

	"arena-core/internal/profiler"
	"arena-core/internal/session"
	"arena-core/internal/sim"

	"github.com/gdamore/tcell/v2"
)

// canvas is the drawing subset of tcell.Screen.
type canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
}

// Terminal cells are about twice as tall as wide, so one world unit is
// two columns and one row.
const (
	colsPerUnit = 2
	rowsPerUnit = 1
)

var (
	stylePlayer     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleEnemy      = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleGem        = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleProjectile = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleParticle   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHUD        = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleOverlay    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorBlack)
	styleWarning    = tcell.StyleDefault.Foreground(tcell.ColorOrange).Background(tcell.ColorBlack)
	styleBanner     = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorRed).Bold(true)
)

// camera maps world positions to cells, centred on the player.
type camera struct {
	cx, cy int
	origin sim.Vec2
}

func (c camera) cell(p sim.Vec2) (int, int) {
	dx := (p.X - c.origin.X) * colsPerUnit
	dy := (p.Z - c.origin.Z) * rowsPerUnit
	return c.cx + int(math.Round(dx)), c.cy + int(math.Round(dy))
}

func (a *App) draw(cv canvas, v *session.View, now time.Time) {
	w, h := cv.Size()
	if w <= 0 || h <= 2 || v == nil {
		return
	}

	cam := camera{cx: w / 2, cy: (h-2)/2 + 1, origin: v.Player.Position}
	plot := func(p sim.Vec2, r rune, st tcell.Style) {
		x, y := cam.cell(p)
		if x >= 0 && x < w && y >= 1 && y < h-1 {
			cv.SetContent(x, y, r, nil, st)
		}
	}

	for _, p := range v.Particles {
		plot(p, '.', styleParticle)
	}
	for _, g := range v.Gems {
		plot(g, '◆', styleGem)
	}
	for _, p := range v.Projectiles {
		plot(p, '*', styleProjectile)
	}
	for _, e := range v.Enemies {
		plot(e, 'x', styleEnemy)
	}
	plot(v.Player.Position, '@', stylePlayer)

	a.drawHUD(cv, v, w)
	a.drawFooter(cv, v, w, h, now)
	if v.Overlay {
		drawOverlay(cv, a.host.Profiler(), v, w)
	}
	if v.Finished {
		msg := " RUN OVER  press Esc "
		if !v.Dead {
			msg = " RUN COMPLETE  press Esc "
		}
		drawText(cv, (w-len([]rune(msg)))/2, h/2, msg, styleBanner)
	}
}

func (a *App) drawHUD(cv canvas, v *session.View, w int) {
	fillRow(cv, 0, w, styleHUD)
	p := v.Player
	mins, secs := int(v.GameTime)/60, int(v.GameTime)%60
	line := fmt.Sprintf(" HP %3.0f/%-3.0f  LV %d  XP %.0f/%.0f  %02d:%02d  Kills %d  [%s]",
		p.HP, p.MaxHP, p.Level, p.XP, p.NextXP, mins, secs, v.Totals.Kills, v.Source)
	if len(v.Synergies) > 0 {
		line += fmt.Sprintf("  %v", v.Synergies)
	}
	drawText(cv, 0, 0, line, styleHUD)
}

func (a *App) drawFooter(cv canvas, v *session.View, w, h int, now time.Time) {
	line := " WASD/arrows move  b bot  F3 overlay  F4 uncapped  F5 report  Esc quit"
	if v.Source == session.SourceReplay {
		line = fmt.Sprintf(" replay %s  frame %d  F3 overlay  F5 report  Esc quit", v.Replay, v.Frame)
	}
	if a.status != "" && now.Before(a.statusTill) {
		line = " " + a.status
	}
	fillRow(cv, h-1, w, styleHUD)
	drawText(cv, 0, h-1, line, styleHUD)
}

func drawOverlay(cv canvas, prof *profiler.Profiler, v *session.View, w int) {
	s := prof.Snapshot()
	lines := []string{
		fmt.Sprintf("FPS %6.1f  loop %6.1f", s.Frame.FPS, v.FPS),
		fmt.Sprintf("frame %5.2fms  avg %5.2f", s.Frame.FrameTime, s.Frame.AvgFrameTime),
		fmt.Sprintf("min %5.2f  max %5.2f", s.Frame.MinFrameTime, s.Frame.MaxFrameTime),
		fmt.Sprintf("entities %d (e%d g%d p%d)", s.Entities.Total, s.Entities.Enemies, s.Entities.Collectibles, s.Entities.Projectiles),
		fmt.Sprintf("update %.2f  coll %.2f", s.Timings.EntityUpdate, s.Timings.Collision),
		fmt.Sprintf("fx %.2f  bb %.2f  scene %.2f", s.Timings.Particles, s.Timings.Billboard, s.Timings.SceneRender),
		fmt.Sprintf("draws %d  heap %.1fMB", s.Render.DrawCalls, s.Memory.HeapMB),
		fmt.Sprintf("dps %.1f  bot %s", s.GameStats.DPS, v.Bot.Mode),
	}
	if v.Uncapped {
		lines = append(lines, "UNCAPPED")
	}

	width := 0
	for _, l := range lines {
		width = max(width, len(l))
	}
	x := w - width - 2
	if x < 0 {
		x = 0
	}
	y := 1
	for _, l := range lines {
		drawText(cv, x, y, fmt.Sprintf(" %-*s ", width, l), styleOverlay)
		y++
	}
	for _, warn := range prof.Warnings() {
		drawText(cv, x, y, fmt.Sprintf(" %-*s ", width, warn), styleWarning)
		y++
	}
}

func drawText(cv canvas, x, y int, s string, st tcell.Style) {
	w, h := cv.Size()
	if y < 0 || y >= h {
		return
	}
	for _, r := range s {
		if x >= w {
			return
		}
		if x >= 0 {
			cv.SetContent(x, y, r, nil, st)
		}
		x++
	}
}

func fillRow(cv canvas, y, w int, st tcell.Style) {
	for x := 0; x < w; x++ {
		cv.SetContent(x, y, ' ', nil, st)
	}
}
