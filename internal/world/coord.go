// Package world provides the bounded grid, its tiles, generation snapshots,
// the game aggregate, and the read-only queries over them.
package world

import "fmt"

// Coord identifies a tile position. X is the column, Y the row.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// NeighborDirections defines the eight neighbor offsets, row-major.
var NeighborDirections = [8]Coord{
	{X: -1, Y: -1}, {X: 0, Y: -1}, {X: 1, Y: -1},
	{X: -1, Y: 0}, {X: 1, Y: 0},
	{X: -1, Y: 1}, {X: 0, Y: 1}, {X: 1, Y: 1},
}

// Neighbors returns the eight surrounding coordinates, ignoring bounds.
func (c Coord) Neighbors() [8]Coord {
	var result [8]Coord
	for i, dir := range NeighborDirections {
		result[i] = Coord{X: c.X + dir.X, Y: c.Y + dir.Y}
	}
	return result
}

// Before reports whether c sorts strictly before o in row-major order
// (lower row first, then lower column).
func (c Coord) Before(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// String returns "(x,y)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}
