package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"arena-core/internal/api"
	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/replay"
	"arena-core/internal/session"

	"github.com/joho/godotenv"
)

func main() {
	// .env in the parent directory wins, then the working directory
	envErr := godotenv.Load("../.env")
	if envErr != nil {
		envErr = godotenv.Load(".env")
	}

	logging.Init(logging.ConfigFromEnv())
	log := logging.For("main")
	if envErr != nil {
		log.Info("💡 No .env file found, using environment variables only")
	}

	log.Info("🎮 ================================")
	log.Info("🎮  ARENA CORE - HEADLESS SERVER")
	log.Info("🎮 ================================")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archive *replay.Archive
	if cfg.Replay.ArchivePath != "" {
		archive = replay.NewArchive(cfg.Replay.ArchiveRate)
		if err := archive.Start(cfg.Replay.ArchivePath); err != nil {
			log.WithError(err).Warn("⚠️ Replay archive disabled")
			archive = nil
		} else {
			defer archive.Stop()
		}
	}

	source := session.SourceHuman
	if cfg.Session.BotEnabled {
		source = session.SourceBot
	}
	opts := session.Options{
		Config:  cfg,
		Source:  source,
		Metrics: true,
	}
	if archive != nil {
		opts.OnFinish = func(s *replay.Session) { archive.Submit(s) }
	}

	runner, err := session.NewRunner(opts, session.DefaultRestartDelay)
	if err != nil {
		log.WithError(err).Fatal("❌ Failed to create session")
	}

	api.StartDebugServer(ctx, api.ObservabilityFromServer(cfg.Server))

	serverOpts := api.ServerOptions{
		Config:    cfg.Server,
		Sessions:  api.ProviderFunc(func() api.SessionInterface { return runner.Current() }),
		ReportDir: cfg.Profiler.ReportDir,
	}
	if archive != nil {
		serverOpts.Archive = archive
	}
	srv := api.NewServer(serverOpts)

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx) }()

	log.WithField("port", cfg.Server.Port).Info("✅ Server ready! Press Ctrl+C to stop.")
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("❌ API server failed")
		stop()
	}

	if err := <-runErr; err != nil {
		log.WithError(err).Error("❌ Session runner failed")
	}
	log.WithField("runs", runner.Runs()).Info("👋 Goodbye!")
}
