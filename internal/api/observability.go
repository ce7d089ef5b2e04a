package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/replay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values are bounded: route patterns, never raw paths or IPs.
var (
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_connection_rejected_total",
		Help: "Requests or connections rejected by rate limit, origin or auth checks",
	}, []string{"reason"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arena_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arena_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "route", "status"})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arena_websocket_messages_total",
		Help: "WebSocket broadcasts sent",
	})

	archiveSessions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arena_replay_archive_sessions",
		Help: "Replay archive counters",
	}, []string{"state"})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string
	AllowExternal bool
	BasicAuthUser string
	BasicAuthPass string
}

// ObservabilityFromServer derives the debug server settings.
func ObservabilityFromServer(cfg config.ServerConfig) ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:       cfg.DebugServer,
		ListenAddr:    cfg.DebugAddr,
		AllowExternal: cfg.DebugExternal,
	}
}

const defaultDebugAddr = "127.0.0.1:6060"

// debugAddr forces non-loopback addresses back to localhost unless
// external binding was explicitly allowed.
func debugAddr(cfg ObservabilityConfig) string {
	addr := cfg.ListenAddr
	if addr == "" {
		return defaultDebugAddr
	}
	if cfg.AllowExternal {
		return addr
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultDebugAddr
	}
	if host == "localhost" {
		return addr
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return addr
	}
	return defaultDebugAddr
}

// DebugHandler serves pprof, Prometheus metrics and a health check.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer serves DebugHandler until ctx is cancelled. It returns
// immediately; listen errors are logged.
func StartDebugServer(ctx context.Context, cfg ObservabilityConfig) {
	log := logging.For("api")
	if !cfg.Enabled {
		log.Info("📊 Debug server disabled")
		return
	}

	addr := debugAddr(cfg)
	if addr != cfg.ListenAddr {
		log.WithField("requested", cfg.ListenAddr).Warn("⚠️ Debug server forced to localhost")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           DebugHandler(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("addr", addr).Info("📊 Debug server starting (pprof, /metrics)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("⚠️ Debug server error")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !tokenEqual(u, user) || !tokenEqual(p, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records latency and status per chi route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, route, status, time.Since(start))
	})
}

// RecordConnectionRejected counts a rejection. reason is one of
// "rate_limit", "origin", "auth", "ws_total_limit", "ws_ip_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, route string, status int, d time.Duration) {
	requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
	requestTotal.WithLabelValues(method, route, http.StatusText(status)).Inc()
}

// UpdateWSConnections sets the active WebSocket gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one broadcast.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// UpdateArchiveStats mirrors replay archive counters into gauges.
func UpdateArchiveStats(s replay.ArchiveStats) {
	archiveSessions.WithLabelValues("written").Set(float64(s.Total))
	archiveSessions.WithLabelValues("dropped").Set(float64(s.Dropped))
	archiveSessions.WithLabelValues("pending").Set(float64(s.Pending))
}
