package main

import (
	"flag"
	"fmt"
	"os"

	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/replay"
	"arena-core/internal/session"
)

func main() {
	margin := flag.Int("margin", 600, "extra frames to step past the last recorded frame")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: replaycheck [-margin N] <replay file>")
		os.Exit(2)
	}

	logCfg := logging.ConfigFromEnv()
	logCfg.Output = os.Stderr
	if os.Getenv("LOG_LEVEL") == "" {
		logCfg.Level = "warn"
	}
	logging.Init(logCfg)

	rec, err := replay.LoadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load replay: %v\n", err)
		os.Exit(1)
	}

	sess, err := session.New(session.Options{Config: config.Load(), Replay: rec})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		os.Exit(1)
	}

	steps, err := sess.RunHeadless(int(rec.LastFrame()) + 1 + *margin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(1)
	}

	st := sess.ReplayStatus()
	view := sess.View()
	fmt.Printf("seed        %s\n", rec.Seed)
	fmt.Printf("steps       %d (last recorded frame %d)\n", steps, st.LastFrame)
	fmt.Printf("state       %s\n", st.State)
	fmt.Printf("checkpoints %d\n", st.Checkpoints)
	fmt.Printf("final       level %d  kills %d  time %.1fs\n", view.Player.Level, view.Totals.Kills, view.GameTime)

	if len(st.Divergences) == 0 {
		fmt.Println("✅ replay is deterministic")
		return
	}
	for _, d := range st.Divergences {
		fmt.Printf("❌ frame %d: expected pos (%d,%d) level %d kills %d, got pos (%d,%d) level %d kills %d\n",
			d.Frame,
			d.Expected.X, d.Expected.Z, d.Expected.Level, d.Expected.Kills,
			d.Actual.X, d.Actual.Z, d.Actual.Level, d.Actual.Kills)
	}
	os.Exit(1)
}
