package spatial

import (
	"sort"
	"testing"
)

func TestGridQueryRadiusNegativeCoords(t *testing.T) {
	g := NewGrid(-50, -50, 100, 100, 10, 16)
	g.Insert(1, -45, -45)
	g.Insert(2, -42, -44)
	g.Insert(3, 40, 40)

	got := append([]uint32(nil), g.QueryRadius(-44, -44, 3)...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Expected [1 2], got %v", got)
	}
}

func TestGridClampsOutOfBounds(t *testing.T) {
	g := NewGrid(0, 0, 20, 20, 10, 4)
	g.Insert(7, -100, 500)

	if g.Len() != 1 {
		t.Fatalf("Expected 1 entity, got %d", g.Len())
	}
	found := false
	for _, id := range g.QueryRadius(0, 19, 1) {
		if id == 7 {
			found = true
		}
	}
	if !found {
		t.Error("out of bounds entity should land in the border cell")
	}
}

func TestGridClear(t *testing.T) {
	g := NewGrid(0, 0, 30, 30, 10, 4)
	for i := uint32(0); i < 9; i++ {
		g.Insert(i, float64(i%3)*10+1, float64(i/3)*10+1)
	}
	st := g.Stats()
	if st.NonEmptyCells != 9 || st.MaxInCell != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	g.Clear()
	if g.Len() != 0 || len(g.QueryRadius(15, 15, 30)) != 0 {
		t.Error("Clear should empty every cell")
	}
}

func BenchmarkGridRebuildAndQuery(b *testing.B) {
	g := NewGrid(-60, -60, 120, 120, 4, 2000)
	for i := 0; i < b.N; i++ {
		g.Clear()
		for id := 0; id < 2000; id++ {
			g.Insert(uint32(id), float64(id%120)-60, float64(id/17%120)-60)
		}
		_ = g.QueryRadius(0, 0, 12)
	}
}
