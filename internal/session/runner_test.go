package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"arena-core/internal/replay"
)

func TestRunnerRestartsFinishedRuns(t *testing.T) {
	cfg := testConfig()
	cfg.Session.GoalSeconds = 0.1

	var mu sync.Mutex
	var finished []*replay.Session
	r, err := NewRunner(Options{
		Config: cfg,
		Source: SourceBot,
		OnFinish: func(s *replay.Session) {
			mu.Lock()
			finished = append(finished, s)
			mu.Unlock()
		},
	}, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	first := r.Current()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()

	deadline := time.Now().Add(10 * time.Second)
	for r.Runs() < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if r.Runs() < 2 {
		t.Fatalf("Expected at least 2 finished runs, got %d", r.Runs())
	}
	if r.Current() == first {
		t.Error("a finished run should be replaced by a fresh session")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(finished) < 2 {
		t.Fatalf("Expected OnFinish per run, got %d", len(finished))
	}
	if finished[0].Seed == finished[1].Seed {
		t.Error("each run should draw a fresh seed")
	}
}

func TestRunnerReplayPlaysOnce(t *testing.T) {
	_, rec := record(t, "runner-replay", 0.1, 60)
	if rec == nil {
		t.Fatal("expected a recorded session")
	}

	r, err := NewRunner(Options{Config: testConfig(), Replay: rec}, time.Millisecond)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if r.Runs() != 1 {
		t.Errorf("Expected a single replayed run, got %d", r.Runs())
	}
	if st := r.Current().ReplayStatus(); len(st.Divergences) != 0 {
		t.Errorf("Expected no divergences, got %v", st.Divergences)
	}
}
