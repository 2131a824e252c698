// Package engine advances a game one generation at a time.
//
// A tick reads a single frozen generation and produces the next one in five
// phases: pairwise interaction, infection maturation, per-cell next-state
// computation, the bankruptcy clamp, and a simultaneous commit. Nothing a cell
// decides in phase 3 is visible to any other cell until phase 5.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/talgya/extended-life/internal/cells"
	"github.com/talgya/extended-life/internal/world"
)

var (
	// ErrNilGeneration is returned when Evolve is called without a generation.
	ErrNilGeneration = errors.New("generation is nil")
	// ErrNilGame is returned when Run is called without a game.
	ErrNilGame = errors.New("game is nil")
	// ErrUnconfigured means a generation lacks its board or owning game.
	ErrUnconfigured = errors.New("generation must have an associated board and game")
)

// InteractFunc is called once per adjacent pair of cells during phase 1, with
// c sorting before n in row-major order.
type InteractFunc func(c, n *cells.Cell)

// Engine drives generations forward. It holds no per-game state, so one
// Engine may run any number of games.
type Engine struct {
	Speed    float64       // Multiplier for Play: 1.0 = one step per Interval, 0 = paused
	Interval time.Duration // Base step interval for Play

	interact InteractFunc
	logger   *slog.Logger
	onStep   []func(StepSummary)

	mu      sync.Mutex
	running chan struct{} // Closed by Stop while Play is active
}

// Option configures an Engine.
type Option func(*Engine)

// WithInteraction installs the phase-1 pairwise interaction hook.
// Without one, phase 1 has no effect.
func WithInteraction(f InteractFunc) Option {
	return func(e *Engine) { e.interact = f }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// OnStep registers a callback invoked after every committed tick.
func OnStep(f func(StepSummary)) Option {
	return func(e *Engine) { e.onStep = append(e.onStep, f) }
}

// New creates an engine with default settings.
func New(opts ...Option) *Engine {
	e := &Engine{
		Speed:    1.0,
		Interval: 250 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evolve computes the generation following current, using the event the
// owning game's schedule assigns to current's step. Eager event effects are
// the driving loop's job (see RunSchedule); Evolve applies only the tick-time
// effects.
func (e *Engine) Evolve(current *world.Generation) (*world.Generation, error) {
	if current == nil {
		return nil, ErrNilGeneration
	}
	if current.Board == nil || current.Game == nil {
		return nil, ErrUnconfigured
	}
	return e.evolve(current, current.Game.Schedule.At(current.Step))
}

// pending is a cell's computed next state, held until phase 5.
type pending struct {
	alive    bool
	energy   int
	grace    int
	social   cells.SocialState
	infected bool
}

func (e *Engine) evolve(current *world.Generation, event world.EventType) (*world.Generation, error) {
	if current == nil {
		return nil, ErrNilGeneration
	}
	if current.Board == nil || current.Game == nil {
		return nil, ErrUnconfigured
	}
	board := current.Board
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if current.Len() != board.Len() {
		return nil, fmt.Errorf("generation %d records %d cells, board has %d: %w",
			current.Step, current.Len(), board.Len(), ErrUnconfigured)
	}

	// Cells are stored row-major, which is the (row, column) order phase 1 needs.
	ordered := board.Cells()

	// Phase 1: pairwise interaction, each unordered adjacent pair exactly once.
	if e.interact != nil {
		for _, c := range ordered {
			self := world.Coord{X: c.X, Y: c.Y}
			for _, n := range board.Neighbors(c.ID) {
				if self.Before(world.Coord{X: n.X, Y: n.Y}) {
					e.interact(c, n)
				}
			}
		}
	}

	// Phase 2: infections inflicted last tick mature.
	for _, c := range ordered {
		if c.Infected && c.Social == cells.Ordinary {
			c.Social = cells.Predatory
			c.Infected = false
		}
	}

	// Phase 3: compute every next state from the prior generation.
	next := make([]pending, board.Len())
	for _, c := range ordered {
		next[c.ID] = pending{grace: c.Grace, social: c.Social, infected: c.Infected}
	}
	// Victims already drained this tick have nothing left for later predators.
	drained := make([]bool, board.Len())

	for _, tile := range board.Tiles() {
		c, err := board.Occupant(tile)
		if err != nil {
			return nil, err
		}
		p := &next[c.ID]

		prevEnergy := current.Energy(c.ID)
		wasAlive := current.Alive(c.ID)

		base := prevEnergy
		switch event {
		case world.Bloom, world.Famine, world.Cataclysm:
		default:
			if wasAlive && event != world.Sanctuary {
				base += tile.Modifier
			}
		}

		// Evaluate the rule against the recorded state, not the live cell.
		recorded := *c
		recorded.Alive = wasAlive
		vote := recorded.Evolve(board.AliveNeighbors(current, c.ID))
		nextAlive := vote.Alive

		if event == world.Cataclysm && wasAlive {
			prevEnergy = 0
			base = 0
		}

		var newEnergy int
		switch {
		case event == world.Sanctuary && c.Social == cells.Predatory:
			newEnergy = prevEnergy
			p.social = cells.Ordinary

		case c.Social == cells.Predatory:
			self := current.Energy(c.ID)
			if vote.Reset {
				self = 0
			}
			self += vote.Drift

			absorbed := 0
			for _, nid := range tile.Neighbors() {
				n := board.CellByID(nid)
				if n == nil || n.Social != cells.Ordinary || !current.Alive(nid) {
					continue
				}
				if !drained[nid] {
					absorbed += current.Energy(nid)
					drained[nid] = true
				}
				next[nid].infected = event != world.BloodMoon
			}
			newEnergy = self + absorbed

		case event == world.Bloom:
			if wasAlive {
				if nextAlive {
					newEnergy = base + 3
				} else {
					newEnergy = base - 1
				}
			} else {
				newEnergy = min(0, base+2)
			}

		case event == world.Famine:
			bonus := 0
			if wasAlive {
				if nextAlive {
					bonus = 1
				} else {
					bonus = -1
				}
			}
			newEnergy = base + bonus

		case !wasAlive && nextAlive:
			newEnergy = 0

		default:
			bonus := 0
			if nextAlive {
				bonus = 1
			} else if wasAlive {
				bonus = -1
			}
			newEnergy = base + bonus
		}

		// Phase 4: nothing lives in debt.
		if newEnergy < 0 && nextAlive {
			nextAlive = false
		}

		p.alive = nextAlive
		p.energy = newEnergy
		p.grace = vote.Grace
	}

	// Phase 5: commit everything at once.
	nextGen := world.NextGeneration(current)
	for _, c := range ordered {
		p := next[c.ID]
		c.Alive = p.alive
		c.Energy = p.energy
		c.Grace = p.grace
		c.Social = p.social
		c.Infected = p.infected
		nextGen.Record(c)
	}
	if err := nextGen.Snapshot(); err != nil {
		return nil, fmt.Errorf("snapshot step %d: %w", nextGen.Step, err)
	}

	return nextGen, nil
}

// AliveCells maps the coordinate of every cell alive in gen to the cell.
func AliveCells(gen *world.Generation) map[world.Coord]*cells.Cell {
	out := make(map[world.Coord]*cells.Cell)
	if gen == nil {
		return out
	}
	for _, c := range gen.AliveCells() {
		out[world.Coord{X: c.X, Y: c.Y}] = c
	}
	return out
}
