// Package audio holds a session's sound effects. Sounds are decoded once
// into memory and mixed on demand; with no output device attached every
// call is a silent no-op so the simulation never depends on audio.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"arena-core/internal/config"
	"arena-core/internal/logging"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	"github.com/sirupsen/logrus"
)

// SampleRate is the mixer's output rate. Sounds at other rates are resampled on load.
const SampleRate = beep.SampleRate(44100)

// ErrUnsupportedFormat is returned for files that are neither WAV nor OGG.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Bank is one session's decoded sounds and mixer.
type Bank struct {
	mu      sync.Mutex
	buffers map[string]*beep.Buffer
	mixer   *beep.Mixer

	enabled  bool
	volume   float64
	attached atomic.Bool
	log      *logrus.Entry
}

// NewBank creates an empty bank.
func NewBank(cfg config.AudioConfig) *Bank {
	return &Bank{
		buffers: make(map[string]*beep.Buffer),
		mixer:   &beep.Mixer{},
		enabled: cfg.Enabled,
		volume:  cfg.Volume,
		log:     logging.For("audio"),
	}
}

// Format is the format every loaded buffer is stored in.
func Format() beep.Format {
	return beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
}

// Load decodes a WAV or OGG file into memory under name.
// A failed load leaves the sound silent; callers log and continue.
func (b *Bank) Load(name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load sound %q: %w", name, err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("load sound %q: %w: %s", name, ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("decode sound %q: %w", name, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(Format())
	if format.SampleRate != SampleRate {
		buf.Append(beep.Resample(4, format.SampleRate, SampleRate, streamer))
	} else {
		buf.Append(streamer)
	}
	if err := streamer.Err(); err != nil {
		return fmt.Errorf("decode sound %q: %w", name, err)
	}

	b.mu.Lock()
	b.buffers[name] = buf
	b.mu.Unlock()

	b.log.WithFields(logrus.Fields{
		"name":       name,
		"sampleRate": format.SampleRate,
		"length":     SampleRate.D(buf.Len()).Round(time.Millisecond),
	}).Debug("sound loaded")
	return nil
}

// LoadDir loads every .wav and .ogg file in dir, named by file stem.
// Failures are logged and skipped. It returns the number loaded.
func (b *Bank) LoadDir(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.log.WithError(err).Warn("⚠️ Sound effects disabled")
		return 0
	}

	loaded := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".wav" && ext != ".ogg") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if err := b.Load(name, filepath.Join(dir, e.Name())); err != nil {
			b.log.WithError(err).Warn("⚠️ Sound skipped")
			continue
		}
		loaded++
	}
	b.log.WithFields(logrus.Fields{"dir": dir, "sounds": loaded}).Info("🔊 Sound bank loaded")
	return loaded
}

// Has reports whether name is loaded.
func (b *Bank) Has(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.buffers[name]
	return ok
}

// Names returns the loaded sound names, sorted.
func (b *Bank) Names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.buffers))
	for n := range b.buffers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Attach marks the mixer as connected to an output device.
// Until then Play does nothing.
func (b *Bank) Attach() { b.attached.Store(true) }

// Attached reports whether an output is connected.
func (b *Bank) Attached() bool { return b.attached.Load() }

// Play starts name on the mixer and returns immediately. Unknown names,
// a disabled bank or a missing output are silent.
func (b *Bank) Play(name string) {
	if !b.enabled || !b.attached.Load() {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[name]
	if !ok {
		return
	}
	b.mixer.Add(b.withVolume(buf.Streamer(0, buf.Len())))
}

func (b *Bank) withVolume(s beep.Streamer) beep.Streamer {
	if b.volume >= 1 {
		return s
	}
	if b.volume <= 0 {
		return &effects.Volume{Streamer: s, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(b.volume)}
}

// Playing returns the number of sounds currently mixing.
func (b *Bank) Playing() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mixer.Len()
}

// Streamer exposes the mixer to an output device. It never drains.
func (b *Bank) Streamer() beep.Streamer {
	return lockedMixer{b}
}

type lockedMixer struct{ b *Bank }

func (m lockedMixer) Stream(samples [][2]float64) (int, bool) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	return m.b.mixer.Stream(samples)
}

func (m lockedMixer) Err() error { return nil }

// Close stops every sound and drops the buffers.
func (b *Bank) Close() {
	b.attached.Store(false)
	b.mu.Lock()
	b.mixer.Clear()
	b.buffers = make(map[string]*beep.Buffer)
	b.mu.Unlock()
}
