// Package spatial provides the broad-phase grid used for neighbor queries
// in the arena.
//
// The grid stores integer entity indices (not pointers) in preallocated
// cells to keep the per-step rebuild allocation free.
package spatial

import (
	"math"
)

// Grid buckets entity indices into square cells over a rectangular world
// that may extend into negative coordinates.
//
// Cell size should be close to the most common query radius. Cells are
// stored in row-major order (cells[row*cols+col]).
type Grid struct {
	minX, minZ  float64
	cellSize    float64
	invCellSize float64
	cols, rows  int
	cells       [][]uint32
	scratch     []uint32
	count       int
}

// NewGrid creates a grid covering [minX, minX+width) × [minZ, minZ+depth).
// maxEntities sizes the initial cell capacity.
func NewGrid(minX, minZ, width, depth, cellSize float64, maxEntities int) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	cols := int(math.Ceil(width / cellSize))
	rows := int(math.Ceil(depth / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([][]uint32, cols*rows)
	perCell := maxEntities / len(cells)
	if perCell < 4 {
		perCell = 4
	}
	for i := range cells {
		cells[i] = make([]uint32, 0, perCell)
	}

	return &Grid{
		minX:        minX,
		minZ:        minZ,
		cellSize:    cellSize,
		invCellSize: 1 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
		scratch:     make([]uint32, 0, 64),
	}
}

// Clear empties every cell, keeping capacity.
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.count = 0
}

// Len returns the number of inserted entities.
func (g *Grid) Len() int { return g.count }

func (g *Grid) col(x float64) int {
	c := int(math.Floor((x - g.minX) * g.invCellSize))
	if c < 0 {
		return 0
	}
	if c >= g.cols {
		return g.cols - 1
	}
	return c
}

func (g *Grid) row(z float64) int {
	r := int(math.Floor((z - g.minZ) * g.invCellSize))
	if r < 0 {
		return 0
	}
	if r >= g.rows {
		return g.rows - 1
	}
	return r
}

// Insert adds entity id at (x, z). Positions outside the world are clamped
// into the border cells.
func (g *Grid) Insert(id uint32, x, z float64) {
	idx := g.row(z)*g.cols + g.col(x)
	g.cells[idx] = append(g.cells[idx], id)
	g.count++
}

// QueryRadius returns the IDs in every cell overlapping the square around
// (cx, cz). Candidates may lie outside radius; callers do the exact
// distance check.
//
// The returned slice is reused by the next query.
func (g *Grid) QueryRadius(cx, cz, radius float64) []uint32 {
	g.scratch = g.scratch[:0]

	minCol, maxCol := g.col(cx-radius), g.col(cx+radius)
	minRow, maxRow := g.row(cz-radius), g.row(cz+radius)

	for r := minRow; r <= maxRow; r++ {
		for c := minCol; c <= maxCol; c++ {
			g.scratch = append(g.scratch, g.cells[r*g.cols+c]...)
		}
	}
	return g.scratch
}

// Stats describes occupancy for the debug overlay.
type Stats struct {
	TotalCells     int
	NonEmptyCells  int
	TotalEntities  int
	MaxInCell      int
	AvgPerNonEmpty float64
}

// Stats returns grid occupancy.
func (g *Grid) Stats() Stats {
	var s Stats
	s.TotalCells = len(g.cells)
	for _, cell := range g.cells {
		n := len(cell)
		s.TotalEntities += n
		if n > s.MaxInCell {
			s.MaxInCell = n
		}
		if n > 0 {
			s.NonEmptyCells++
		}
	}
	if s.NonEmptyCells > 0 {
		s.AvgPerNonEmpty = float64(s.TotalEntities) / float64(s.NonEmptyCells)
	}
	return s
}
