package world

import (
	"errors"
	"fmt"

	"github.com/talgya/extended-life/internal/cells"
)

var (
	// ErrMissingCell means a tile has no occupant where the grid requires one.
	ErrMissingCell = errors.New("tile has no cell")
	// ErrOutOfBounds means a coordinate lies outside the board.
	ErrOutOfBounds = errors.New("coordinate out of bounds")
)

const noCell cells.CellID = -1

// Tile is a fixed grid slot. Tiles never change occupant after setup.
type Tile struct {
	Coord    Coord `json:"coord"`
	Modifier int   `json:"modifier"` // Static energy bonus/penalty for living occupants

	neighbors []cells.CellID
	occupant  cells.CellID
}

// Neighbors returns the handles of the in-bounds surrounding tiles.
func (t *Tile) Neighbors() []cells.CellID {
	return t.neighbors
}

// Occupied reports whether a cell sits on the tile.
func (t *Tile) Occupied() bool {
	return t.occupant != noCell
}

// Board owns the grid of tiles and the cells placed on them.
// Tiles and cells share the same row-major arena index.
type Board struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	tiles []*Tile
	cells []*cells.Cell
}

// NewBoard creates a width×height board with a dead Standard cell on every tile.
func NewBoard(width, height int) (*Board, error) {
	b, err := NewEmptyBoard(width, height)
	if err != nil {
		return nil, err
	}
	for i, t := range b.tiles {
		b.cells[i] = cells.New(cells.CellID(i), t.Coord.X, t.Coord.Y)
		t.occupant = cells.CellID(i)
	}
	return b, nil
}

// NewEmptyBoard creates the tiles and neighbor topology without any cells.
// Callers must Place a cell on every tile before the board is evolved.
func NewEmptyBoard(width, height int) (*Board, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("board size %dx%d: dimensions must be positive", width, height)
	}

	b := &Board{
		Width:  width,
		Height: height,
		tiles:  make([]*Tile, width*height),
		cells:  make([]*cells.Cell, width*height),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b.tiles[b.index(x, y)] = &Tile{Coord: Coord{X: x, Y: y}, occupant: noCell}
		}
	}

	// Neighbor sets are computed once; no wraparound.
	for _, t := range b.tiles {
		for _, n := range t.Coord.Neighbors() {
			if b.InBounds(n) {
				t.neighbors = append(t.neighbors, cells.CellID(b.index(n.X, n.Y)))
			}
		}
	}
	return b, nil
}

func (b *Board) index(x, y int) int {
	return y*b.Width + x
}

// InBounds returns true if the coordinate lies on the board.
func (b *Board) InBounds(c Coord) bool {
	return c.X >= 0 && c.X < b.Width && c.Y >= 0 && c.Y < b.Height
}

// Len returns the number of tiles.
func (b *Board) Len() int {
	return len(b.tiles)
}

// Tiles returns all tiles in row-major order.
func (b *Board) Tiles() []*Tile {
	return b.tiles
}

// Tile returns the tile at c, or nil if out of bounds.
func (b *Board) Tile(c Coord) *Tile {
	if !b.InBounds(c) {
		return nil
	}
	return b.tiles[b.index(c.X, c.Y)]
}

// Cell returns the cell at c, or nil if out of bounds or unoccupied.
func (b *Board) Cell(c Coord) *cells.Cell {
	t := b.Tile(c)
	if t == nil || !t.Occupied() {
		return nil
	}
	return b.cells[t.occupant]
}

// CellByID returns the cell with the given handle, or nil.
func (b *Board) CellByID(id cells.CellID) *cells.Cell {
	if id < 0 || int(id) >= len(b.cells) {
		return nil
	}
	return b.cells[id]
}

// Occupant returns the cell on t, failing with ErrMissingCell when the tile is empty.
func (b *Board) Occupant(t *Tile) (*cells.Cell, error) {
	if t == nil || !t.Occupied() || b.cells[t.occupant] == nil {
		if t == nil {
			return nil, ErrMissingCell
		}
		return nil, fmt.Errorf("tile %s: %w", t.Coord, ErrMissingCell)
	}
	return b.cells[t.occupant], nil
}

// Cells returns all placed cells in row-major order. Empty tiles are skipped.
func (b *Board) Cells() []*cells.Cell {
	out := make([]*cells.Cell, 0, len(b.cells))
	for _, c := range b.cells {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Neighbors returns the cells on the tiles surrounding cell id.
func (b *Board) Neighbors(id cells.CellID) []*cells.Cell {
	if int(id) < 0 || int(id) >= len(b.tiles) {
		return nil
	}
	var out []*cells.Cell
	for _, n := range b.tiles[id].neighbors {
		if c := b.cells[n]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Place puts c on the tile at its coordinate. The cell's ID is rewritten to
// the tile's arena index.
func (b *Board) Place(c *cells.Cell) error {
	t := b.Tile(Coord{X: c.X, Y: c.Y})
	if t == nil {
		return fmt.Errorf("place %s: %w", c, ErrOutOfBounds)
	}
	id := cells.CellID(b.index(c.X, c.Y))
	c.ID = id
	b.cells[id] = c
	t.occupant = id
	return nil
}

// Validate checks that every tile has an occupant.
func (b *Board) Validate() error {
	for _, t := range b.tiles {
		if _, err := b.Occupant(t); err != nil {
			return err
		}
	}
	return nil
}

// SetModifier sets the static energy modifier ("interactable" bonus) of a tile.
func (b *Board) SetModifier(c Coord, modifier int) error {
	t := b.Tile(c)
	if t == nil {
		return fmt.Errorf("set modifier %s: %w", c, ErrOutOfBounds)
	}
	t.Modifier = modifier
	return nil
}

// SetEnergy sets the live energy of the cell at c. Capture the current
// generation afterwards for the change to be seen by the next tick.
func (b *Board) SetEnergy(c Coord, energy int) error {
	cell := b.Cell(c)
	if cell == nil {
		return fmt.Errorf("set energy %s: %w", c, ErrMissingCell)
	}
	cell.Energy = energy
	return nil
}

// SetVariant changes the variant of the cell at c.
func (b *Board) SetVariant(c Coord, v cells.Variant) error {
	cell := b.Cell(c)
	if cell == nil {
		return fmt.Errorf("set variant %s: %w", c, ErrMissingCell)
	}
	cell.Variant = v
	return nil
}

// SetSocial assigns a social state to every cell at the given coordinates.
func (b *Board) SetSocial(state cells.SocialState, coords ...Coord) error {
	for _, c := range coords {
		cell := b.Cell(c)
		if cell == nil {
			return fmt.Errorf("set social %s: %w", c, ErrMissingCell)
		}
		cell.Social = state
	}
	return nil
}

// String returns a summary of the board.
func (b *Board) String() string {
	return fmt.Sprintf("Board(%dx%d)", b.Width, b.Height)
}
