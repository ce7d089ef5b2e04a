package config

import (
	"testing"
	"time"
)

func TestDefaultLoopIsCapped(t *testing.T) {
	cfg := DefaultLoop()
	if cfg.Uncapped {
		t.Fatal("uncapped mode must never be the default")
	}
	if cfg.MaxFrameMs != 250 {
		t.Errorf("Expected 250ms clamp, got %v", cfg.MaxFrameMs)
	}
	if got := cfg.FixedStep(); got != time.Second/60 {
		t.Errorf("Expected fixed step 1/60s, got %v", got)
	}
}

func TestLoopFromEnv(t *testing.T) {
	t.Setenv("LOOP_UNCAPPED", "true")
	t.Setenv("LOOP_REFRESH_RATE", "144")

	cfg := LoopFromEnv()
	if !cfg.Uncapped {
		t.Error("LOOP_UNCAPPED=true should enable uncapped mode")
	}
	if cfg.RefreshRate != 144 {
		t.Errorf("Expected refresh rate 144, got %d", cfg.RefreshRate)
	}
}

func TestServerFromEnvCORS(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("PORT", "not-a-number")

	cfg := ServerFromEnv()
	if len(cfg.CORSOrigins) != 2 {
		t.Fatalf("Expected 2 origins, got %v", cfg.CORSOrigins)
	}
	if cfg.Port != DefaultServer().Port {
		t.Errorf("Invalid PORT should fall back to default, got %d", cfg.Port)
	}
}

func TestReplayFromEnvDisablesArchive(t *testing.T) {
	t.Setenv("REPLAY_ARCHIVE_PATH", "")

	cfg := ReplayFromEnv()
	if cfg.ArchivePath != "" {
		t.Errorf("Empty REPLAY_ARCHIVE_PATH should disable archive, got %q", cfg.ArchivePath)
	}
}

func TestProfilerThresholds(t *testing.T) {
	th := DefaultProfiler().Thresholds
	if th.FPSCritical >= th.FPSWarning {
		t.Error("critical FPS threshold must be below warning threshold")
	}
	if th.FrameTimeCritical <= th.FrameTimeWarning {
		t.Error("critical frame time threshold must be above warning threshold")
	}
}
