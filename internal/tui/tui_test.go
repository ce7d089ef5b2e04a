package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/profiler"
	"arena-core/internal/session"
	"arena-core/internal/sim"

	"github.com/gdamore/tcell/v2"
)

type fakeHost struct {
	view      *session.View
	prof      *profiler.Profiler
	replay    bool
	input     sim.Vec2
	source    session.Source
	overlay   bool
	uncapped  bool
	exports   int
	exportErr error
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		view: &session.View{Player: sim.Player{HP: 80, MaxHP: 100, Level: 2}},
		prof: profiler.New(config.DefaultProfiler()),
	}
}

func (h *fakeHost) View() *session.View          { return h.view }
func (h *fakeHost) Profiler() *profiler.Profiler { return h.prof }
func (h *fakeHost) IsReplay() bool               { return h.replay }
func (h *fakeHost) SetHumanInput(x, z float64)   { h.input = sim.Vec2{X: x, Z: z} }
func (h *fakeHost) ToggleOverlay() bool          { h.overlay = !h.overlay; return h.overlay }
func (h *fakeHost) ToggleUncapped() bool         { h.uncapped = !h.uncapped; return h.uncapped }

func (h *fakeHost) ToggleBot() (session.Source, error) {
	if h.replay {
		return session.SourceReplay, session.ErrReplayOnly
	}
	if h.source == session.SourceBot {
		h.source = session.SourceHuman
	} else {
		h.source = session.SourceBot
	}
	return h.source, nil
}

func (h *fakeHost) ExportReport(dir string) (profiler.ExportResult, error) {
	h.exports++
	if h.exportErr != nil {
		return profiler.ExportResult{}, h.exportErr
	}
	return profiler.ExportResult{ReportPath: dir + "/report.txt"}, nil
}

type grid struct {
	w, h  int
	cells map[[2]int]rune
}

func newGrid(w, h int) *grid { return &grid{w: w, h: h, cells: map[[2]int]rune{}} }

func (g *grid) Size() (int, int) { return g.w, g.h }

func (g *grid) SetContent(x, y int, r rune, _ []rune, _ tcell.Style) {
	g.cells[[2]int{x, y}] = r
}

func (g *grid) row(y int) string {
	var b strings.Builder
	for x := 0; x < g.w; x++ {
		r, ok := g.cells[[2]int{x, y}]
		if !ok {
			r = ' '
		}
		b.WriteRune(r)
	}
	return b.String()
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time      { return c.t }
func (c *fakeClock) add(d time.Duration) { c.t = c.t.Add(d) }

func TestHeldKeysFadeAfterRelease(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	app := New(nil, host, WithClock(clock.now))

	app.handleKey(tcell.KeyRune, 'd')
	app.handleKey(tcell.KeyUp, 0)
	in := app.keys.axis(clock.now())
	if in.X <= 0 || in.Z >= 0 {
		t.Fatalf("Expected up-right input, got %+v", in)
	}
	if l := in.Len(); l < 0.999 || l > 1.001 {
		t.Errorf("diagonal input should be unit length, got %v", l)
	}

	clock.add(HoldDuration / 2)
	app.handleKey(tcell.KeyRune, 'd')
	clock.add(HoldDuration * 3 / 4)
	in = app.keys.axis(clock.now())
	if in.X != 1 || in.Z != 0 {
		t.Errorf("only the repeated key should stay held, got %+v", in)
	}

	clock.add(HoldDuration)
	if in := app.keys.axis(clock.now()); !in.IsZero() {
		t.Errorf("released keys should fade to zero, got %+v", in)
	}
}

func TestOpposingKeysCancel(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	app := New(nil, newFakeHost(), WithClock(clock.now))
	app.handleKey(tcell.KeyLeft, 0)
	app.handleKey(tcell.KeyRight, 0)
	if in := app.keys.axis(clock.now()); !in.IsZero() {
		t.Errorf("left+right should cancel, got %+v", in)
	}
}

func TestDebugKeys(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	app := New(nil, host, WithClock(clock.now), WithReportDir("/tmp/reports"))

	app.handleKey(tcell.KeyF3, 0)
	if !host.overlay {
		t.Error("F3 should toggle the overlay")
	}
	app.handleKey(tcell.KeyF4, 0)
	if !host.uncapped || app.status != "uncapped loop" {
		t.Errorf("F4 should toggle uncapped, status %q", app.status)
	}
	app.handleKey(tcell.KeyF5, 0)
	if host.exports != 1 || !strings.Contains(app.status, "/tmp/reports/report.txt") {
		t.Errorf("F5 should export, status %q", app.status)
	}

	host.exportErr = errors.New("disk full")
	app.handleKey(tcell.KeyF5, 0)
	if !strings.Contains(app.status, "disk full") {
		t.Errorf("export failure should be shown, status %q", app.status)
	}

	app.handleKey(tcell.KeyRune, 'b')
	if host.source != session.SourceBot || app.status != "input: bot" {
		t.Errorf("b should switch to the bot, status %q", app.status)
	}

	if app.handleKey(tcell.KeyEscape, 0) {
		t.Error("Esc should quit")
	}
	if app.handleKey(tcell.KeyCtrlC, 0) {
		t.Error("Ctrl-C should quit")
	}
}

func TestBotToggleRejectedInReplay(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	host.replay = true
	app := New(nil, host, WithClock(clock.now))

	app.handleKey(tcell.KeyRune, 'b')
	if !strings.Contains(app.status, session.ErrReplayOnly.Error()) {
		t.Errorf("Expected replay error in status, got %q", app.status)
	}
}

func TestDrawPlacesEntitiesAroundPlayer(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	host.view.Player.Position = sim.Vec2{X: 10, Z: 10}
	host.view.Enemies = []sim.Vec2{{X: 12, Z: 10}}
	host.view.Gems = []sim.Vec2{{X: 10, Z: 8}}
	host.view.Enemies = append(host.view.Enemies, sim.Vec2{X: 500, Z: 500})
	app := New(nil, host, WithClock(clock.now))

	g := newGrid(40, 12)
	app.draw(g, host.view, clock.now())

	cx, cy := 20, (12-2)/2+1
	if r := g.cells[[2]int{cx, cy}]; r != '@' {
		t.Errorf("player should be centred, got %q", r)
	}
	if r := g.cells[[2]int{cx + 2*colsPerUnit, cy}]; r != 'x' {
		t.Errorf("enemy 2 units right should be 4 columns right, got %q", r)
	}
	if r := g.cells[[2]int{cx, cy - 2}]; r != '◆' {
		t.Errorf("gem 2 units up should be 2 rows up, got %q", r)
	}
	if !strings.Contains(g.row(0), "LV 2") {
		t.Errorf("HUD missing level: %q", g.row(0))
	}
	if !strings.Contains(g.row(11), "F3 overlay") {
		t.Errorf("footer missing key help: %q", g.row(11))
	}
}

func TestDrawOverlayAndBanner(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	host.view.Overlay = true
	host.view.Finished = true
	host.view.Dead = true
	app := New(nil, host, WithClock(clock.now))

	g := newGrid(80, 24)
	app.draw(g, host.view, clock.now())

	var all strings.Builder
	for y := 0; y < 24; y++ {
		all.WriteString(g.row(y))
		all.WriteByte('\n')
	}
	text := all.String()
	if !strings.Contains(text, "FPS") || !strings.Contains(text, "entities") {
		t.Error("overlay should show profiler stats")
	}
	if !strings.Contains(text, "RUN OVER") {
		t.Error("finished run should show the banner")
	}
}

func TestFrameSkipsInputDuringReplay(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	host := newFakeHost()
	host.replay = true
	host.input = sim.Vec2{X: 0.25}
	app := New(tcell.NewSimulationScreen("UTF-8"), host, WithClock(clock.now))
	if err := app.screen.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer app.screen.Fini()

	app.handleKey(tcell.KeyRune, 'a')
	app.frame()
	if host.input.X != 0.25 {
		t.Errorf("replay input must not be overwritten, got %+v", host.input)
	}

	host.replay = false
	app.frame()
	if host.input.X != -1 {
		t.Errorf("live frame should push held input, got %+v", host.input)
	}
}
