package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arena-core/internal/audio"
	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/replay"
	"arena-core/internal/session"
	"arena-core/internal/tui"

	"github.com/joho/godotenv"
)

func main() {
	seed := flag.String("seed", "", "run seed (empty draws a fresh one)")
	replayPath := flag.String("replay", "", "play back a saved replay (.json, .bin or .jsonl archive)")
	useBot := flag.Bool("bot", false, "start with the bot driving")
	savePath := flag.String("save", "", "write the finished run's replay to this path")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		_ = godotenv.Load("../.env")
	}

	// the terminal owns stdout, so logs go to a file
	logPath := os.Getenv("LOG_FILE")
	if logPath == "" {
		logPath = "arena.log"
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logCfg := logging.ConfigFromEnv()
	logCfg.Output = logFile
	logging.Init(logCfg)
	log := logging.For("main")

	cfg := config.Load()

	bank := audio.NewBank(cfg.Audio)
	if cfg.Audio.Enabled {
		bank.LoadDir(cfg.Audio.AssetDir)
		if err := audio.OpenSpeaker(bank); err != nil {
			log.WithError(err).Warn("⚠️ No audio device, running silent")
		} else {
			defer audio.CloseSpeaker()
		}
	}
	defer bank.Close()

	var archive *replay.Archive
	if cfg.Replay.ArchivePath != "" && *replayPath == "" {
		archive = replay.NewArchive(cfg.Replay.ArchiveRate)
		if err := archive.Start(cfg.Replay.ArchivePath); err != nil {
			log.WithError(err).Warn("⚠️ Replay archive disabled")
			archive = nil
		} else {
			defer archive.Stop()
		}
	}

	var final *replay.Session
	opts := session.Options{
		Config: cfg,
		Seed:   *seed,
		Bank:   bank,
		OnFinish: func(s *replay.Session) {
			final = s
			if archive != nil {
				archive.Submit(s)
			}
		},
	}
	if *useBot {
		opts.Source = session.SourceBot
	}
	if *replayPath != "" {
		rec, err := replay.LoadFile(*replayPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load replay: %v\n", err)
			os.Exit(1)
		}
		opts.Replay = rec
	}

	sess, err := session.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		os.Exit(1)
	}

	screen, err := tui.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(); err != nil {
		screen.Fini()
		fmt.Fprintf(os.Stderr, "start session: %v\n", err)
		os.Exit(1)
	}
	app := tui.New(screen, sess, tui.WithReportDir(cfg.Profiler.ReportDir))
	runErr := app.Run(ctx)
	sess.Stop()
	screen.Fini()
	if runErr != nil {
		log.WithError(runErr).Error("❌ Terminal host failed")
	}

	view := sess.View()
	fmt.Printf("seed %s  level %d  kills %d  time %.1fs\n",
		sess.Seed(), view.Player.Level, view.Totals.Kills, view.GameTime)
	if sess.IsReplay() {
		st := sess.ReplayStatus()
		fmt.Printf("replay %s  frame %d/%d  divergences %d\n", st.State, st.Frame, st.LastFrame, len(st.Divergences))
		return
	}
	if *savePath != "" {
		out := final
		if out == nil {
			// quit mid-run: save what was recorded so far
			out = sess.Replay()
		}
		if err := replay.SaveFile(*savePath, out); err != nil {
			fmt.Fprintf(os.Stderr, "save replay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("replay saved to %s\n", *savePath)
	}
}
