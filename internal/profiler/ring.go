package profiler

// Ring is a bounded FIFO series: once full, each Push drops the oldest value.
type Ring struct {
	buf   []float64
	start int
	n     int
}

// NewRing creates a ring holding at most capacity values.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Push appends v.
func (r *Ring) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of values held.
func (r *Ring) Len() int { return r.n }

// Cap returns the bound.
func (r *Ring) Cap() int { return len(r.buf) }

// Last returns the newest value, 0 when empty.
func (r *Ring) Last() float64 {
	if r.n == 0 {
		return 0
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)]
}

// Values returns the values oldest first as a new slice.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Mean returns the arithmetic mean, 0 when empty.
func (r *Ring) Mean() float64 {
	if r.n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r.n; i++ {
		sum += r.buf[(r.start+i)%len(r.buf)]
	}
	return sum / float64(r.n)
}

// MinMax returns the smallest and largest values, zeros when empty.
func (r *Ring) MinMax() (min, max float64) {
	if r.n == 0 {
		return 0, 0
	}
	min = r.buf[r.start]
	max = min
	for i := 1; i < r.n; i++ {
		v := r.buf[(r.start+i)%len(r.buf)]
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
