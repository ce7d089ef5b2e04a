package api

import (
	"net/http"

	"arena-core/internal/profiler"
	"arena-core/internal/replay"
	"arena-core/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SessionInterface is the part of a session the API calls.
// *session.Session implements it.
type SessionInterface interface {
	View() *session.View
	Profiler() *profiler.Profiler
	Control() session.Control
	Replay() *replay.Session
	ReplayStatus() session.ReplayStatus
	ToggleOverlay() bool
	ToggleUncapped() bool
	ExportReport(dir string) (profiler.ExportResult, error)
	SetHumanInput(x, z float64)
	SetSource(src session.Source) error
}

// Provider returns the session currently served. Hosts that start a new
// run after each finished one swap what Current returns.
type Provider interface {
	Current() SessionInterface
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func() SessionInterface

// Current calls f.
func (f ProviderFunc) Current() SessionInterface { return f() }

// Static serves one session for the process lifetime.
func Static(s SessionInterface) Provider {
	return ProviderFunc(func() SessionInterface { return s })
}

// ArchiveInterface exposes replay archive counters.
type ArchiveInterface interface {
	Stats() replay.ArchiveStats
}

// RouterConfig holds the router's dependencies.
//
//	router := api.NewRouter(api.RouterConfig{
//	    Sessions:        api.Static(sess),
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Sessions provides the served session (required).
	Sessions Provider

	// Archive is optional; /api/replay/archive returns 404 without it.
	Archive ArchiveInterface

	// RateLimiter is used as-is when set; otherwise one is built from
	// RateLimitConfig or DefaultRateLimitConfig.
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to localhost on any port.
	CORSOrigins []string

	// ControlToken guards POST routes when non-empty.
	ControlToken string

	// ReportDir is where POST /api/debug/export writes ("" uses the
	// profiler's configured directory).
	ReportDir string

	// DisableLogging drops the request logger (benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	sessions  Provider
	archive   ArchiveInterface
	reportDir string
}

// DefaultCORSOrigins allows local dashboards.
var DefaultCORSOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// NewRouter builds the HTTP router. It starts no goroutines besides the
// rate limiter's cleanup (when it creates the limiter) and opens no
// listeners, so it is safe with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// before CORS so floods are rejected early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rlCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rlCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rlCfg)
	}
	r.Use(rateLimiter.Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = DefaultCORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := &routerHandlers{
		sessions:  cfg.Sessions,
		archive:   cfg.Archive,
		reportDir: cfg.ReportDir,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.handleGetState)

		r.Route("/perf", func(r chi.Router) {
			r.Get("/", h.handlePerf)
			r.Get("/warnings", h.handlePerfWarnings)
			r.Get("/fps", h.handlePerfFPS)
			r.Get("/report", h.handlePerfReport)
			r.Get("/chart.png", h.handlePerfChart)
		})

		r.Route("/replay", func(r chi.Router) {
			r.Get("/", h.handleReplay)
			r.Get("/status", h.handleReplayStatus)
			r.Get("/schema", h.handleReplaySchema)
			r.Get("/archive", h.handleArchiveStats)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireToken(cfg.ControlToken))
			r.Post("/debug/overlay", h.handleToggleOverlay)
			r.Post("/debug/uncapped", h.handleToggleUncapped)
			r.Post("/debug/export", h.handleExport)
			r.Post("/input", h.handleInput)
			r.Post("/mode", h.handleMode)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}
