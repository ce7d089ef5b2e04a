package session

import (
	"errors"
	"os"
	"testing"

	"arena-core/internal/config"
	"arena-core/internal/logging"
	"arena-core/internal/replay"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		Loop:     config.DefaultLoop(),
		Arena:    config.DefaultArena(),
		Profiler: config.DefaultProfiler(),
		Bot:      config.DefaultBot(),
		Replay:   config.DefaultReplay(),
		Audio:    config.DefaultAudio(),
		Server:   config.DefaultServer(),
		Session:  config.DefaultSession(),
	}
}

func record(t *testing.T, seed string, goal float64, steps int) (*Session, *replay.Session) {
	t.Helper()
	cfg := testConfig()
	cfg.Session.GoalSeconds = goal

	var got *replay.Session
	s, err := New(Options{
		Config:   cfg,
		Seed:     seed,
		Source:   SourceBot,
		OnFinish: func(r *replay.Session) { got = r },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.RunHeadless(steps); err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	return s, got
}

func TestRecordedRunReplaysWithoutDivergence(t *testing.T) {
	live, rec := record(t, "replay-seed", 20, 20*60+60)
	if !live.Finished() {
		t.Fatal("run should finish at the goal or on death")
	}
	if rec == nil {
		t.Fatal("OnFinish should receive the recorded session")
	}
	if err := rec.RequireTerminal(); err != nil {
		t.Fatalf("recorded session should be complete: %v", err)
	}
	if rec.Counts()[replay.KindCheckpoint] == 0 {
		t.Fatal("expected checkpoints in a 20s run")
	}

	pb, err := New(Options{Config: testConfig(), Replay: rec})
	if err != nil {
		t.Fatalf("New replay failed: %v", err)
	}
	if pb.Seed() != "replay-seed" {
		t.Errorf("replay should reuse the recorded seed, got %q", pb.Seed())
	}
	if _, err := pb.RunHeadless(int(rec.LastFrame()) + 10); err != nil {
		t.Fatalf("replay RunHeadless failed: %v", err)
	}

	st := pb.ReplayStatus()
	if !st.Active || st.State != "complete" {
		t.Errorf("Expected complete playback, got %+v", st)
	}
	if len(st.Divergences) != 0 {
		t.Errorf("Expected no divergences, got %+v", st.Divergences)
	}
	if st.Checkpoints != rec.Counts()[replay.KindCheckpoint] {
		t.Errorf("Expected %d checkpoints verified, got %d", rec.Counts()[replay.KindCheckpoint], st.Checkpoints)
	}

	lv, pv := live.View(), pb.View()
	if lv.Player.Level != pv.Player.Level || lv.Totals.Kills != pv.Totals.Kills {
		t.Errorf("live and replay ended differently: level %d/%d kills %d/%d",
			lv.Player.Level, pv.Player.Level, lv.Totals.Kills, pv.Totals.Kills)
	}
}

func TestSameSeedSameRun(t *testing.T) {
	_, a := record(t, "twin", 10, 10*60+60)
	_, b := record(t, "twin", 10, 10*60+60)
	if a == nil || b == nil {
		t.Fatal("both runs should finish")
	}
	if len(a.Events) != len(b.Events) {
		t.Fatalf("event counts differ: %d vs %d", len(a.Events), len(b.Events))
	}
	for i := range a.Events {
		if a.Events[i] != b.Events[i] {
			t.Fatalf("event %d differs: %+v vs %+v", i, a.Events[i], b.Events[i])
		}
	}
}

func TestHumanInputIsRecordedOnChange(t *testing.T) {
	s, err := New(Options{Config: testConfig(), Seed: "human"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	s.SetHumanInput(1, 0)
	s.RunHeadless(10)
	s.SetHumanInput(1, 0)
	s.RunHeadless(5)
	s.SetHumanInput(0.123456, -1)
	s.RunHeadless(5)

	var inputs []replay.Input
	for _, e := range s.Replay().Events {
		if in, ok := e.(replay.Input); ok {
			inputs = append(inputs, in)
		}
	}
	if len(inputs) != 2 {
		t.Fatalf("Expected 2 input events, got %+v", inputs)
	}
	if inputs[0].At != 0 || inputs[1].At != 15 {
		t.Errorf("Expected inputs at frames 0 and 15, got %d and %d", inputs[0].At, inputs[1].At)
	}
	if inputs[1].X != 0.123 {
		t.Errorf("Expected rounded axis 0.123, got %v", inputs[1].X)
	}
	if s.View().Frame != 20 {
		t.Errorf("Expected view at frame 20, got %d", s.View().Frame)
	}
}

func TestSourceSwitching(t *testing.T) {
	s, err := New(Options{Config: testConfig(), Seed: "src"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got, err := s.ToggleBot(); err != nil || got != SourceBot {
		t.Fatalf("ToggleBot = %v, %v", got, err)
	}
	if got, _ := s.ToggleBot(); got != SourceHuman {
		t.Errorf("second toggle should return to human, got %v", got)
	}
	if err := s.SetSource(SourceReplay); !errors.Is(err, ErrNotReplay) {
		t.Errorf("Expected ErrNotReplay, got %v", err)
	}
	if err := s.SetSource(Source(9)); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}

	if _, err := New(Options{Config: testConfig(), Source: SourceReplay}); !errors.Is(err, ErrNotReplay) {
		t.Errorf("replay source without a session should fail, got %v", err)
	}

	_, rec := record(t, "src", 2, 2*60+30)
	pb, err := New(Options{Config: testConfig(), Replay: rec})
	if err != nil {
		t.Fatalf("New replay failed: %v", err)
	}
	if err := pb.SetSource(SourceBot); !errors.Is(err, ErrReplayOnly) {
		t.Errorf("Expected ErrReplayOnly, got %v", err)
	}
	if pb.Control().Source != SourceReplay {
		t.Errorf("replay session should keep replay source, got %v", pb.Control().Source)
	}
}

func TestInvalidReplayRejected(t *testing.T) {
	bad := &replay.Session{Seed: "x", FormatVersion: 99}
	if _, err := New(Options{Config: testConfig(), Replay: bad}); !errors.Is(err, ErrInvalidReplay) {
		t.Errorf("Expected ErrInvalidReplay, got %v", err)
	}
}

func TestFinishedSessionStopsStepping(t *testing.T) {
	s, _ := record(t, "short", 1, 200)
	if !s.Finished() {
		t.Fatal("1s goal should finish within 200 steps")
	}
	n, err := s.RunHeadless(10)
	if err != nil || n != 0 {
		t.Errorf("finished session ran %d steps (err %v)", n, err)
	}
	if err := s.Start(); !errors.Is(err, ErrFinished) {
		t.Errorf("Expected ErrFinished, got %v", err)
	}
}

func TestTogglesAndExport(t *testing.T) {
	s, err := New(Options{Config: testConfig(), Seed: "export", Source: SourceBot})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	before := s.Profiler().Visible()
	if s.ToggleOverlay() == before {
		t.Error("ToggleOverlay should flip visibility")
	}
	if !s.ToggleUncapped() {
		t.Fatal("default loop is capped, toggle should enable uncapped mode")
	}
	s.RunHeadless(120)
	if !s.View().Uncapped {
		t.Error("view should report uncapped mode after a render")
	}

	res, err := s.ExportReport(t.TempDir())
	if err != nil {
		t.Fatalf("ExportReport failed: %v", err)
	}
	if _, err := os.Stat(res.ReportPath); err != nil {
		t.Errorf("report not written: %v", err)
	}
}

func TestParseSource(t *testing.T) {
	for in, want := range map[string]Source{"human": SourceHuman, " BOT ": SourceBot, "replay": SourceReplay} {
		got, err := ParseSource(in)
		if err != nil || got != want {
			t.Errorf("ParseSource(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseSource("ghost"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("Expected ErrUnknownSource, got %v", err)
	}
}

func TestMilestoneReplayLogsNoWarning(t *testing.T) {
	_, rec := record(t, "goal-seed", 3, 3*60+60)
	if rec == nil || rec.Counts()[replay.KindMilestone] != 1 {
		t.Fatal("expected a run ending on the survived goal")
	}

	hook := logtest.NewLocal(logging.Log)
	defer logging.Log.ReplaceHooks(make(logrus.LevelHooks))

	pb, err := New(Options{Config: testConfig(), Replay: rec})
	if err != nil {
		t.Fatalf("New replay failed: %v", err)
	}
	if _, err := pb.RunHeadless(int(rec.LastFrame()) + 10); err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}

	if st := pb.ReplayStatus(); st.State != "complete" || len(st.Divergences) != 0 {
		t.Errorf("Expected a clean complete playback, got %+v", st)
	}
	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			t.Errorf("unexpected %s log: %s", e.Level, e.Message)
		}
	}
	if _, div := pb.Profiler().ReplayCounts(); div != 0 {
		t.Errorf("Expected 0 divergences counted, got %d", div)
	}
}

func TestReplayCountersFollowRecorder(t *testing.T) {
	live, rec := record(t, "counters", 8, 8*60+60)
	if rec == nil {
		t.Fatal("run should finish")
	}
	if events, _ := live.Profiler().ReplayCounts(); events != uint64(len(rec.Events)) {
		t.Errorf("Expected %d recorded events counted, got %d", len(rec.Events), events)
	}

	tampered := rec.Clone()
	found := false
	for i, e := range tampered.Events {
		if cp, ok := e.(replay.Checkpoint); ok {
			cp.Kills++
			tampered.Events[i] = cp
			found = true
			break
		}
	}
	if !found {
		t.Fatal("expected a checkpoint in an 8s run")
	}

	pb, err := New(Options{Config: testConfig(), Replay: tampered})
	if err != nil {
		t.Fatalf("New replay failed: %v", err)
	}
	if _, err := pb.RunHeadless(int(tampered.LastFrame()) + 10); err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	if _, div := pb.Profiler().ReplayCounts(); div != 1 {
		t.Errorf("Expected 1 divergence counted, got %d", div)
	}
	if st := pb.ReplayStatus(); len(st.Divergences) != 1 {
		t.Errorf("Expected 1 reported divergence, got %+v", st.Divergences)
	}
}
