package audio

import (
	"time"

	"github.com/gopxl/beep/speaker"
)

// OpenSpeaker connects b to the default output device.
func OpenSpeaker(b *Bank) error {
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(b.Streamer())
	b.Attach()
	b.log.Info("🔊 Audio output attached")
	return nil
}

// CloseSpeaker releases the output device.
func CloseSpeaker() {
	speaker.Close()
}
