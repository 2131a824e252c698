package cells

// ResilientGrace is how many consecutive deaths a Resilient cell shrugs off.
const ResilientGrace = 3

// Vote is the outcome of a cell's survival rule for one tick.
type Vote struct {
	Alive bool

	// Side-channel energy tracking for Territorial and Gregarious cells.
	// Reset restarts the working energy at zero before Drift is added.
	Drift int
	Reset bool

	// Grace is the Resilient counter value to commit with this vote.
	Grace int
}

// Evolve applies the variant's survival rule given the number of alive
// neighbors in the prior snapshot. It reads the cell's current state and
// never mutates it; the engine commits the vote.
func (c *Cell) Evolve(aliveNeighbors int) Vote {
	switch c.Variant {
	case Territorial:
		return c.bounded(aliveNeighbors, 1, 3)
	case Gregarious:
		return c.bounded(aliveNeighbors, 2, 8)
	case Resilient:
		return c.resilient(aliveNeighbors)
	default:
		return Vote{Alive: standardRule(c.Alive, aliveNeighbors), Grace: c.Grace}
	}
}

// standardRule is B3/S23.
func standardRule(alive bool, n int) bool {
	if alive {
		return n == 2 || n == 3
	}
	return n == 3
}

// bounded is the shared rule for variants with custom crowding limits.
// Living cells die outside [min, max]; dead cells revive on exactly 3.
func (c *Cell) bounded(n, min, max int) Vote {
	v := Vote{Alive: c.Alive, Grace: c.Grace}
	switch {
	case n > max || n < min:
		v.Alive = false
	case !c.Alive && n == 3:
		v.Alive = true
		v.Reset = true
	}

	if c.Alive {
		if v.Alive {
			v.Drift = 1
		} else {
			v.Drift = -1
		}
	}
	return v
}

func (c *Cell) resilient(n int) Vote {
	if standardRule(c.Alive, n) {
		return Vote{Alive: true, Grace: 0}
	}
	if c.Alive && c.Grace < ResilientGrace {
		return Vote{Alive: true, Grace: c.Grace + 1}
	}
	return Vote{Alive: false, Grace: c.Grace}
}
