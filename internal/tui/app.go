// Package tui is the terminal host: it draws the arena and the profiler
// overlay with tcell and feeds keyboard input to a session.
package tui

import (
	"context"
	"fmt"
	"time"

	"arena-core/internal/logging"
	"arena-core/internal/profiler"
	"arena-core/internal/session"

	"github.com/gdamore/tcell/v2"
	"github.com/sirupsen/logrus"
)

// FrameInterval is the terminal redraw cadence (~60 Hz).
const FrameInterval = 16 * time.Millisecond

const statusDuration = 3 * time.Second

// Host is the session surface the terminal drives.
// *session.Session implements it.
type Host interface {
	View() *session.View
	Profiler() *profiler.Profiler
	IsReplay() bool
	SetHumanInput(x, z float64)
	ToggleBot() (session.Source, error)
	ToggleOverlay() bool
	ToggleUncapped() bool
	ExportReport(dir string) (profiler.ExportResult, error)
}

// App owns the screen for one session.
type App struct {
	screen    tcell.Screen
	host      Host
	reportDir string
	now       func() time.Time

	keys       heldKeys
	status     string
	statusTill time.Time

	log *logrus.Entry
}

// Option customises an App.
type Option func(*App)

// WithReportDir sets where F5 exports the report ("" uses the profiler
// default).
func WithReportDir(dir string) Option {
	return func(a *App) { a.reportDir = dir }
}

// WithClock replaces the wall clock (tests).
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// New binds an initialised screen to host.
func New(screen tcell.Screen, host Host, opts ...Option) *App {
	a := &App{
		screen: screen,
		host:   host,
		now:    time.Now,
		log:    logging.For("tui"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewScreen creates and initialises the real terminal screen.
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	screen.HideCursor()
	return screen, nil
}

// Run polls input and redraws until Esc, Ctrl-C or ctx cancellation. It
// does not call Fini; the caller owns the screen.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(FrameInterval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				// screen finalised
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !a.handleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			a.frame()
		}
	}
}

func (a *App) frame() {
	now := a.now()
	if !a.host.IsReplay() {
		in := a.keys.axis(now)
		a.host.SetHumanInput(in.X, in.Z)
	}
	a.screen.Clear()
	a.draw(a.screen, a.host.View(), now)
	a.screen.Show()
}

func (a *App) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

// handleKey applies one key press and reports whether the app keeps
// running.
func (a *App) handleKey(key tcell.Key, r rune) bool {
	now := a.now()
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		a.keys.press(dirUp, now)
	case tcell.KeyDown:
		a.keys.press(dirDown, now)
	case tcell.KeyLeft:
		a.keys.press(dirLeft, now)
	case tcell.KeyRight:
		a.keys.press(dirRight, now)
	case tcell.KeyF3:
		a.host.ToggleOverlay()
	case tcell.KeyF4:
		if a.host.ToggleUncapped() {
			a.setStatus("uncapped loop", now)
		} else {
			a.setStatus("vsync loop", now)
		}
	case tcell.KeyF5:
		a.export(now)
	case tcell.KeyRune:
		a.handleRune(r, now)
	}
	return true
}

func (a *App) handleRune(r rune, now time.Time) {
	switch r {
	case 'w', 'W':
		a.keys.press(dirUp, now)
	case 's', 'S':
		a.keys.press(dirDown, now)
	case 'a', 'A':
		a.keys.press(dirLeft, now)
	case 'd', 'D':
		a.keys.press(dirRight, now)
	case 'b', 'B':
		src, err := a.host.ToggleBot()
		if err != nil {
			a.setStatus(err.Error(), now)
			return
		}
		a.keys.release()
		a.setStatus("input: "+src.String(), now)
	}
}

func (a *App) export(now time.Time) {
	res, err := a.host.ExportReport(a.reportDir)
	if err != nil {
		a.log.WithError(err).Warn("⚠️ Report export failed")
		a.setStatus("export failed: "+err.Error(), now)
		return
	}
	a.setStatus("report: "+res.ReportPath, now)
}

func (a *App) setStatus(msg string, now time.Time) {
	a.status = msg
	a.statusTill = now.Add(statusDuration)
}
