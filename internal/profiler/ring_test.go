package profiler

import "testing"

func TestRingFIFO(t *testing.T) {
	r := NewRing(3)
	for i := 1; i <= 5; i++ {
		r.Push(float64(i))
	}

	got := r.Values()
	want := []float64{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: Expected %v, got %v", i, want[i], got[i])
		}
	}
	if r.Last() != 5 {
		t.Errorf("Expected last 5, got %v", r.Last())
	}
	if min, max := r.MinMax(); min != 3 || max != 5 {
		t.Errorf("Expected min/max 3/5, got %v/%v", min, max)
	}
	if r.Mean() != 4 {
		t.Errorf("Expected mean 4, got %v", r.Mean())
	}
}
