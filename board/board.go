// Package board models the dots-and-edges grid the game is played on.
// A grid of W×H cells has (W+1)×(H+1) dots; edges connect adjacent dots
// and each cell is bounded by exactly four of them. The grid itself is
// immutable; who claimed which edge lives in the game state, and every
// function here is a pure query over coordinates.
package board

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned by New for boards smaller than 1×1.
var ErrInvalidDimensions = errors.New("board dimensions must be at least 1x1")

// Orientation distinguishes the two edge directions.
type Orientation uint8

const (
	// Horizontal edges run from dot (x,y) to dot (x+1,y).
	Horizontal Orientation = iota
	// Vertical edges run from dot (x,y) to dot (x,y+1).
	Vertical
)

func (o Orientation) String() string {
	if o == Horizontal {
		return "h"
	}
	return "v"
}

// Edge identifies one claimable line segment by its lesser endpoint dot
// and direction. Comparable, so it serves directly as a map key.
type Edge struct {
	X   int         `json:"x"`
	Y   int         `json:"y"`
	Dir Orientation `json:"dir"`
}

func (e Edge) String() string {
	return fmt.Sprintf("%s:%d,%d", e.Dir, e.X, e.Y)
}

// Cell identifies one unit square by its top-left dot.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string {
	return fmt.Sprintf("c:%d,%d", c.X, c.Y)
}

// Grid is the fixed board geometry for one match.
type Grid struct {
	width  int
	height int
}

// New creates a grid of width×height cells.
func New(width, height int) (*Grid, error) {
	if width < 1 || height < 1 {
		return nil, ErrInvalidDimensions
	}
	return &Grid{width: width, height: height}, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

// DotCount returns (W+1)*(H+1).
func (g *Grid) DotCount() int {
	return (g.width + 1) * (g.height + 1)
}

// EdgeCount returns W*(H+1) + H*(W+1).
func (g *Grid) EdgeCount() int {
	return g.width*(g.height+1) + g.height*(g.width+1)
}

// CellCount returns W*H.
func (g *Grid) CellCount() int {
	return g.width * g.height
}

// ContainsEdge reports whether e lies on this grid.
func (g *Grid) ContainsEdge(e Edge) bool {
	switch e.Dir {
	case Horizontal:
		return e.X >= 0 && e.X < g.width && e.Y >= 0 && e.Y <= g.height
	case Vertical:
		return e.X >= 0 && e.X <= g.width && e.Y >= 0 && e.Y < g.height
	}
	return false
}

// ContainsCell reports whether c lies on this grid.
func (g *Grid) ContainsCell(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// EdgesOfCell returns the four bounding edges of a cell in
// top, bottom, left, right order.
func (g *Grid) EdgesOfCell(c Cell) [4]Edge {
	return [4]Edge{
		{X: c.X, Y: c.Y, Dir: Horizontal},
		{X: c.X, Y: c.Y + 1, Dir: Horizontal},
		{X: c.X, Y: c.Y, Dir: Vertical},
		{X: c.X + 1, Y: c.Y, Dir: Vertical},
	}
}

// CellsOfEdge returns the cells adjacent to an edge. Border edges touch
// one cell, interior edges two.
func (g *Grid) CellsOfEdge(e Edge) []Cell {
	var candidates [2]Cell
	switch e.Dir {
	case Horizontal:
		candidates = [2]Cell{{X: e.X, Y: e.Y - 1}, {X: e.X, Y: e.Y}}
	case Vertical:
		candidates = [2]Cell{{X: e.X - 1, Y: e.Y}, {X: e.X, Y: e.Y}}
	}

	cells := make([]Cell, 0, 2)
	for _, c := range candidates {
		if g.ContainsCell(c) {
			cells = append(cells, c)
		}
	}
	return cells
}

// Edges enumerates every edge on the grid, horizontal rows first.
func (g *Grid) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	for y := 0; y <= g.height; y++ {
		for x := 0; x < g.width; x++ {
			edges = append(edges, Edge{X: x, Y: y, Dir: Horizontal})
		}
	}
	for y := 0; y < g.height; y++ {
		for x := 0; x <= g.width; x++ {
			edges = append(edges, Edge{X: x, Y: y, Dir: Vertical})
		}
	}
	return edges
}

// Cells enumerates every cell on the grid in row-major order.
func (g *Grid) Cells() []Cell {
	cells := make([]Cell, 0, g.CellCount())
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			cells = append(cells, Cell{X: x, Y: y})
		}
	}
	return cells
}

// IsCellComplete reports whether all four bounding edges of c are
// claimed, per the supplied edge-state predicate.
func IsCellComplete(g *Grid, c Cell, claimed func(Edge) bool) bool {
	for _, e := range g.EdgesOfCell(c) {
		if !claimed(e) {
			return false
		}
	}
	return true
}
