package world

import (
	"errors"
	"fmt"

	"github.com/talgya/extended-life/internal/cells"
)

var (
	// ErrFrozen means a generation past step 0 was asked to re-capture its state.
	ErrFrozen = errors.New("generation is frozen")
	// ErrNoBoard means a generation is not attached to a board.
	ErrNoBoard = errors.New("generation has no board")
)

// Generation is the snapshot of every cell's alive flag and energy at one step.
// Arrays are indexed by cell handle.
type Generation struct {
	Step  int
	Board *Board
	Game  *Game

	alive  []bool
	energy []int
	frozen bool
}

func newGeneration(step int, board *Board, game *Game) *Generation {
	g := &Generation{Step: step, Board: board, Game: game}
	if board != nil {
		g.alive = make([]bool, board.Len())
		g.energy = make([]int, board.Len())
	}
	return g
}

// NextGeneration creates the empty successor of prev on the same board and game.
func NextGeneration(prev *Generation) *Generation {
	return newGeneration(prev.Step+1, prev.Board, prev.Game)
}

// RestoreGeneration rebuilds a frozen generation from stored state.
func RestoreGeneration(game *Game, step int, alive []bool, energy []int) (*Generation, error) {
	if game == nil || game.Board == nil {
		return nil, ErrNoBoard
	}
	n := game.Board.Len()
	if len(alive) != n || len(energy) != n {
		return nil, fmt.Errorf("restore generation %d: have %d/%d states for %d tiles", step, len(alive), len(energy), n)
	}
	return &Generation{
		Step:   step,
		Board:  game.Board,
		Game:   game,
		alive:  alive,
		energy: energy,
		frozen: true,
	}, nil
}

// Record stores one cell's committed state. It is a no-op on a frozen generation.
func (g *Generation) Record(c *cells.Cell) {
	if g.frozen || int(c.ID) < 0 || int(c.ID) >= len(g.alive) {
		return
	}
	g.alive[c.ID] = c.Alive
	g.energy[c.ID] = c.Energy
}

// Snapshot captures the live state of every cell on the board and freezes the
// generation. Step 0 may be re-captured any number of times (setup edits and
// eager events); later steps are captured exactly once.
func (g *Generation) Snapshot() error {
	if g.Board == nil {
		return ErrNoBoard
	}
	if g.frozen && g.Step != 0 {
		return fmt.Errorf("snapshot step %d: %w", g.Step, ErrFrozen)
	}
	if len(g.alive) != g.Board.Len() {
		g.alive = make([]bool, g.Board.Len())
		g.energy = make([]int, g.Board.Len())
	}
	for _, t := range g.Board.tiles {
		c, err := g.Board.Occupant(t)
		if err != nil {
			return err
		}
		g.alive[c.ID] = c.Alive
		g.energy[c.ID] = c.Energy
	}
	g.frozen = true
	return nil
}

// Resnapshot re-captures the live state even if the generation is frozen.
// Only the driving loop uses this, to fold an eager event into the step it
// was scheduled at before that step is evolved.
func (g *Generation) Resnapshot() error {
	g.frozen = false
	return g.Snapshot()
}

// Frozen reports whether the generation has been captured.
func (g *Generation) Frozen() bool {
	return g.frozen
}

// Len returns the number of recorded cells.
func (g *Generation) Len() int {
	return len(g.alive)
}

// Alive returns the recorded alive flag of cell id.
func (g *Generation) Alive(id cells.CellID) bool {
	if int(id) < 0 || int(id) >= len(g.alive) {
		return false
	}
	return g.alive[id]
}

// Energy returns the recorded energy of cell id.
func (g *Generation) Energy(id cells.CellID) int {
	if int(id) < 0 || int(id) >= len(g.energy) {
		return 0
	}
	return g.energy[id]
}

// AliveStates returns a copy of the recorded alive flags.
func (g *Generation) AliveStates() []bool {
	return append([]bool(nil), g.alive...)
}

// EnergyStates returns a copy of the recorded energies.
func (g *Generation) EnergyStates() []int {
	return append([]int(nil), g.energy...)
}

// AliveCells returns the cells recorded alive, in row-major order.
func (g *Generation) AliveCells() []*cells.Cell {
	if g.Board == nil {
		return nil
	}
	var out []*cells.Cell
	for i, alive := range g.alive {
		if alive {
			if c := g.Board.CellByID(cells.CellID(i)); c != nil {
				out = append(out, c)
			}
		}
	}
	return out
}

// NewInitial resets the game to a fresh generation 0 in which exactly the
// given coordinates hold living Standard cells with zero energy.
func NewInitial(game *Game, alive []Coord) (*Generation, error) {
	types := make(map[Coord]cells.Variant, len(alive))
	for _, c := range alive {
		types[c] = cells.Standard
	}
	return NewInitialMixed(game, types)
}

// NewInitialMixed resets the game to a fresh generation 0 in which every
// listed coordinate holds a living cell of the given variant. Unlisted
// coordinates hold dead Standard cells.
func NewInitialMixed(game *Game, types map[Coord]cells.Variant) (*Generation, error) {
	if game == nil || game.Board == nil {
		return nil, ErrNoBoard
	}
	b := game.Board
	for c := range types {
		if !b.InBounds(c) {
			return nil, fmt.Errorf("initial generation %s: %w", c, ErrOutOfBounds)
		}
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	for _, c := range b.cells {
		*c = cells.Cell{ID: c.ID, X: c.X, Y: c.Y, Variant: cells.Standard}
	}
	for coord, v := range types {
		c := b.Cell(coord)
		c.Variant = v
		c.Alive = true
	}

	gen := newGeneration(0, b, game)
	if err := gen.Snapshot(); err != nil {
		return nil, err
	}
	game.Generations = []*Generation{gen}
	return gen, nil
}
