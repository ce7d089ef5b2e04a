package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	Config    config.ServerConfig
	Sessions  Provider
	Archive   ArchiveInterface
	ReportDir string
}

// Server is the HTTP API with the WebSocket hub.
type Server struct {
	cfg         config.ServerConfig
	sessions    Provider
	archive     ArchiveInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	http        *http.Server
	log         *logrus.Entry
}

// NewServer builds the server. Background workers and listeners start in
// Run, so Router can be exercised with httptest right after construction.
func NewServer(opts ServerOptions) *Server {
	s := &Server{
		cfg:      opts.Config,
		sessions: opts.Sessions,
		archive:  opts.Archive,
		wsHub:    NewWebSocketHub(opts.Config.CORSOrigins),
		log:      logging.For("api"),
	}

	rl := DefaultRateLimitConfig
	if opts.Config.RateLimit > 0 {
		rl.RequestsPerSecond = opts.Config.RateLimit
	}
	if opts.Config.RateBurst > 0 {
		rl.Burst = opts.Config.RateBurst
	}
	s.rateLimiter = NewIPRateLimiter(rl)

	s.router = NewRouter(RouterConfig{
		Sessions:     opts.Sessions,
		Archive:      opts.Archive,
		RateLimiter:  s.rateLimiter,
		CORSOrigins:  opts.Config.CORSOrigins,
		ControlToken: opts.Config.ControlToken,
		ReportDir:    opts.ReportDir,
	})
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
	return s
}

// Router returns the HTTP handler for httptest.
func (s *Server) Router() http.Handler { return s.router }

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub { return s.wsHub }

// Run serves on the configured port until ctx is cancelled, then shuts
// down gracefully. It starts the broadcast loop and archive metrics.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.wsHub.RunBroadcastLoop(ctx, s.sessions)
	if s.archive != nil {
		go s.archiveMetricsLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("🌐 API server starting")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	s.log.Info("🛑 API server stopped")
	return err
}

func (s *Server) archiveMetricsLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			UpdateArchiveStats(s.archive.Stats())
		}
	}
}
