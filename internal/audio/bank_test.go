package audio

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"arena-core/internal/config"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"
)

func writeTone(t *testing.T, path string, sr beep.SampleRate, d time.Duration) {
	t.Helper()
	sine, err := generators.SineTone(sr, 440)
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	format := beep.Format{SampleRate: sr, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, beep.Take(sr.N(d), sine), format); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAndPlay(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "hit.wav"), SampleRate, 50*time.Millisecond)

	b := NewBank(config.DefaultAudio())
	defer b.Close()
	if n := b.LoadDir(dir); n != 1 || !b.Has("hit") {
		t.Fatalf("Expected hit to load, got %d %v", n, b.Names())
	}

	b.Play("hit")
	if b.Playing() != 0 {
		t.Error("Play without an output must be a no-op")
	}

	b.Attach()
	b.Play("hit")
	b.Play("missing")
	if b.Playing() != 1 {
		t.Fatalf("Expected 1 playing sound, got %d", b.Playing())
	}

	samples := make([][2]float64, 512)
	n, ok := b.Streamer().Stream(samples)
	if n != len(samples) || !ok {
		t.Fatalf("mixer should always fill, got %d %v", n, ok)
	}
	loud := false
	for _, s := range samples {
		if s[0] != 0 {
			loud = true
			break
		}
	}
	if !loud {
		t.Error("expected non-silent output while a sound plays")
	}
}

func TestLoadResamples(t *testing.T) {
	path := filepath.Join(t.TempDir(), "low.wav")
	writeTone(t, path, 22050, 100*time.Millisecond)

	b := NewBank(config.DefaultAudio())
	if err := b.Load("low", path); err != nil {
		t.Fatal(err)
	}
	buf := b.buffers["low"]
	if d := SampleRate.D(buf.Len()); d < 90*time.Millisecond || d > 110*time.Millisecond {
		t.Errorf("resampled length should stay ≈100ms, got %v", d)
	}
}

func TestLoadErrors(t *testing.T) {
	b := NewBank(config.DefaultAudio())
	if err := b.Load("x", filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Error("missing file should fail")
	}

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("la"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := b.Load("x", path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if b.Has("x") {
		t.Error("failed loads must not register a sound")
	}
	if n := b.LoadDir(filepath.Join(t.TempDir(), "absent")); n != 0 {
		t.Errorf("missing dir should load nothing, got %d", n)
	}
}

func TestDisabledBankIsSilent(t *testing.T) {
	dir := t.TempDir()
	writeTone(t, filepath.Join(dir, "hit.wav"), SampleRate, 20*time.Millisecond)

	cfg := config.DefaultAudio()
	cfg.Enabled = false
	b := NewBank(cfg)
	b.LoadDir(dir)
	b.Attach()
	b.Play("hit")
	if b.Playing() != 0 {
		t.Error("disabled bank should not play")
	}
}
