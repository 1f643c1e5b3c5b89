// Package systems provides the spatial index and the per-tick update
// systems that make up the simulation pipeline.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/sonder-sim/sonder/components"
)

// SpatialGrid partitions the world into uniform cells and answers neighbor
// queries in amortized O(1) by scanning only the radius-derived block of
// cells around the query point. It is persistent: callers must keep it in
// sync with Position changes through Insert, Remove, and UpdatePosition.
type SpatialGrid struct {
	cellSize int
	cols     int
	rows     int
	width    int
	height   int
	cells    [][]ecs.Entity
	count    int
}

// NewSpatialGrid creates a grid covering a width x height world with the
// given cell size.
func NewSpatialGrid(width, height, cellSize int) *SpatialGrid {
	cols := (width + cellSize - 1) / cellSize
	rows := (height + cellSize - 1) / cellSize
	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8)
	}
	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// CellOf returns the cell coordinates covering a position.
func (g *SpatialGrid) CellOf(p components.Position) (col, row int) {
	return p.X / g.cellSize, p.Y / g.cellSize
}

// InBounds reports whether a position lies within the world.
func (g *SpatialGrid) InBounds(p components.Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Len returns the number of indexed entities.
func (g *SpatialGrid) Len() int {
	return g.count
}

// Insert adds an entity at the given position.
func (g *SpatialGrid) Insert(e ecs.Entity, p components.Position) {
	idx := g.cellIndex(p)
	g.cells[idx] = append(g.cells[idx], e)
	g.count++
}

// Remove deletes an entity from the cell covering p. It reports false when
// the entity was not recorded there; that is an index/store desync the
// caller must treat as fatal.
func (g *SpatialGrid) Remove(e ecs.Entity, p components.Position) bool {
	idx := g.cellIndex(p)
	bucket := g.cells[idx]
	for i, other := range bucket {
		if other == e {
			g.cells[idx] = append(bucket[:i], bucket[i+1:]...)
			g.count--
			return true
		}
	}
	return false
}

// UpdatePosition moves an entity between cells. Must be called whenever a
// Position component changes; reports false on desync.
func (g *SpatialGrid) UpdatePosition(e ecs.Entity, oldPos, newPos components.Position) bool {
	oldIdx := g.cellIndex(oldPos)
	newIdx := g.cellIndex(newPos)
	if oldIdx == newIdx {
		return g.containsAt(oldIdx, e)
	}
	if !g.Remove(e, oldPos) {
		return false
	}
	g.Insert(e, newPos)
	return true
}

// Contains reports whether the cell covering p records the entity. Used by
// the scheduler's invariant check at tick boundaries.
func (g *SpatialGrid) Contains(e ecs.Entity, p components.Position) bool {
	return g.containsAt(g.cellIndex(p), e)
}

// QueryCell returns the entities recorded in one cell. The returned slice
// is owned by the grid; callers must not retain or mutate it.
func (g *SpatialGrid) QueryCell(col, row int) []ecs.Entity {
	if col < 0 || col >= g.cols || row < 0 || row >= g.rows {
		return nil
	}
	return g.cells[row*g.cols+col]
}

// QueryRadius returns every entity within Chebyshev distance radius of
// center, excluding the center entity itself. Results are in deterministic
// cell-scan order. Calling it twice without intervening mutation returns
// the same set.
func (g *SpatialGrid) QueryRadius(center components.Position, radius int, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []ecs.Entity {
	return g.QueryRadiusInto(nil, center, radius, exclude, posMap)
}

// QueryRadiusInto is QueryRadius appending into dst to avoid allocations
// in hot paths.
func (g *SpatialGrid) QueryRadiusInto(dst []ecs.Entity, center components.Position, radius int, exclude ecs.Entity, posMap *ecs.Map1[components.Position]) []ecs.Entity {
	if radius < 0 {
		return dst
	}
	cellRadius := radius/g.cellSize + 1
	centerCol, centerRow := g.CellOf(center)

	minCol := maxInt(centerCol-cellRadius, 0)
	maxCol := minInt(centerCol+cellRadius, g.cols-1)
	minRow := maxInt(centerRow-cellRadius, 0)
	maxRow := minInt(centerRow+cellRadius, g.rows-1)

	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			for _, e := range g.cells[row*g.cols+col] {
				if e == exclude {
					continue
				}
				pos := posMap.Get(e)
				if pos == nil {
					continue
				}
				if chebyshev(center, *pos) <= radius {
					dst = append(dst, e)
				}
			}
		}
	}
	return dst
}

// OccupiedAt reports whether any entity sits exactly on p.
func (g *SpatialGrid) OccupiedAt(p components.Position, posMap *ecs.Map1[components.Position]) bool {
	col, row := g.CellOf(p)
	for _, e := range g.QueryCell(col, row) {
		if pos := posMap.Get(e); pos != nil && *pos == p {
			return true
		}
	}
	return false
}

func (g *SpatialGrid) cellIndex(p components.Position) int {
	col, row := g.CellOf(p)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return row*g.cols + col
}

func (g *SpatialGrid) containsAt(idx int, e ecs.Entity) bool {
	for _, other := range g.cells[idx] {
		if other == e {
			return true
		}
	}
	return false
}

// chebyshev returns the grid distance between two positions: the number of
// king moves separating them.
func chebyshev(a, b components.Position) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return maxInt(dx, dy)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
