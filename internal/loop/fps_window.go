package loop

// FPSWindow is a fixed-size rolling window of frame times in milliseconds.
type FPSWindow struct {
	samples []float64
	next    int
	count   int
	sum     float64
}

// NewFPSWindow creates a window holding the last size samples.
func NewFPSWindow(size int) *FPSWindow {
	if size <= 0 {
		size = 60
	}
	return &FPSWindow{samples: make([]float64, size)}
}

// Push adds a frame time, evicting the oldest sample when full.
func (w *FPSWindow) Push(frameTimeMs float64) {
	if w.count == len(w.samples) {
		w.sum -= w.samples[w.next]
	} else {
		w.count++
	}
	w.samples[w.next] = frameTimeMs
	w.sum += frameTimeMs
	w.next = (w.next + 1) % len(w.samples)
}

// Len returns the number of samples held.
func (w *FPSWindow) Len() int { return w.count }

// MeanFrameTime returns the mean frame time in ms, 0 when empty.
func (w *FPSWindow) MeanFrameTime() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// Average returns 1000/mean(frameTime), 0 when empty or mean is zero.
func (w *FPSWindow) Average() float64 {
	mean := w.MeanFrameTime()
	if mean <= 0 {
		return 0
	}
	return 1000 / mean
}
