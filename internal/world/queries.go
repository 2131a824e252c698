package world

import "github.com/talgya/extended-life/internal/cells"

// Read-only aggregate queries over a generation snapshot of this board.

// CountAlive returns the number of cells alive in gen.
func (b *Board) CountAlive(gen *Generation) int {
	n := 0
	for _, alive := range gen.alive {
		if alive {
			n++
		}
	}
	return n
}

// CountByVariant counts living cells per variant. Variants with no living
// cell are absent from the result.
func (b *Board) CountByVariant(gen *Generation) map[cells.Variant]int {
	out := make(map[cells.Variant]int)
	for _, c := range b.cells {
		if c != nil && gen.Alive(c.ID) {
			out[c.Variant]++
		}
	}
	return out
}

// AliveNeighbors counts the neighbors of cell id recorded alive in gen.
func (b *Board) AliveNeighbors(gen *Generation, id cells.CellID) int {
	if int(id) < 0 || int(id) >= len(b.tiles) {
		return 0
	}
	n := 0
	for _, nb := range b.tiles[id].neighbors {
		if b.cells[nb] != nil && gen.Alive(nb) {
			n++
		}
	}
	return n
}

// GroupByAliveNeighbors groups living cells by their number of living neighbors in gen.
func (b *Board) GroupByAliveNeighbors(gen *Generation) map[int][]*cells.Cell {
	out := make(map[int][]*cells.Cell)
	for _, c := range b.cells {
		if c != nil && gen.Alive(c.ID) {
			n := b.AliveNeighbors(gen, c.ID)
			out[n] = append(out[n], c)
		}
	}
	return out
}

// GroupByEnergy groups living cells by their recorded energy in gen.
func (b *Board) GroupByEnergy(gen *Generation) map[int][]*cells.Cell {
	out := make(map[int][]*cells.Cell)
	for _, c := range b.cells {
		if c != nil && gen.Alive(c.ID) {
			e := gen.Energy(c.ID)
			out[e] = append(out[e], c)
		}
	}
	return out
}

// HighestEnergy returns the living cell with the most energy in gen. Ties go
// to the first cell in row-major order (lowest row, then lowest column).
// Returns nil when nothing is alive.
func (b *Board) HighestEnergy(gen *Generation) *cells.Cell {
	var best *cells.Cell
	bestEnergy := 0
	// Cells are stored row-major, so a strict comparison keeps the earliest.
	for _, c := range b.cells {
		if c == nil || !gen.Alive(c.ID) {
			continue
		}
		if e := gen.Energy(c.ID); best == nil || e > bestEnergy {
			best, bestEnergy = c, e
		}
	}
	return best
}
