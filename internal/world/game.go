package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrStepRange means a requested step range is not covered by the history.
var ErrStepRange = errors.New("step out of range")

// Game is the aggregate root: one board, its ordered generation history,
// and the event schedule it was last run with.
type Game struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Board       *Board        `json:"board"`
	Generations []*Generation `json:"-"`
	Schedule    Schedule      `json:"schedule"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewGame creates a game on a fresh width×height board with an all-dead
// generation 0.
func NewGame(name string, width, height int) (*Game, error) {
	board, err := NewBoard(width, height)
	if err != nil {
		return nil, err
	}
	g := &Game{
		ID:        uuid.NewString(),
		Name:      name,
		Board:     board,
		Schedule:  make(Schedule),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := NewInitial(g, nil); err != nil {
		return nil, err
	}
	return g, nil
}

// Start returns generation 0, or nil if the history is empty.
func (g *Game) Start() *Generation {
	if len(g.Generations) == 0 {
		return nil
	}
	return g.Generations[0]
}

// Latest returns the most recent generation, or nil if the history is empty.
func (g *Game) Latest() *Generation {
	if len(g.Generations) == 0 {
		return nil
	}
	return g.Generations[len(g.Generations)-1]
}

// Generation returns the generation at step.
func (g *Game) Generation(step int) (*Generation, error) {
	if step < 0 || step >= len(g.Generations) {
		return nil, fmt.Errorf("generation %d of %d: %w", step, len(g.Generations), ErrStepRange)
	}
	return g.Generations[step], nil
}

// AddGeneration appends gen to the history. Steps must be contiguous.
func (g *Game) AddGeneration(gen *Generation) error {
	if gen.Step != len(g.Generations) {
		return fmt.Errorf("append step %d to history of %d generations: %w", gen.Step, len(g.Generations), ErrStepRange)
	}
	gen.Game = g
	g.Generations = append(g.Generations, gen)
	return nil
}

// EnergyStats summarizes the energy of living cells at one step.
type EnergyStats struct {
	Count int     `json:"count"`
	Sum   int     `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
}

// TimeSeries returns per-step energy statistics of living cells for every
// step in [from, to], inclusive. Steps with no living cells report zeros.
func (g *Game) TimeSeries(from, to int) (map[int]EnergyStats, error) {
	if from > to || from < 0 || to >= len(g.Generations) {
		return nil, fmt.Errorf("time series [%d,%d] over %d generations: %w", from, to, len(g.Generations), ErrStepRange)
	}
	out := make(map[int]EnergyStats, to-from+1)
	for step := from; step <= to; step++ {
		out[step] = energyStats(g.Generations[step])
	}
	return out, nil
}

func energyStats(gen *Generation) EnergyStats {
	var s EnergyStats
	for i, alive := range gen.alive {
		if !alive {
			continue
		}
		e := gen.energy[i]
		if s.Count == 0 || e < s.Min {
			s.Min = e
		}
		if s.Count == 0 || e > s.Max {
			s.Max = e
		}
		s.Count++
		s.Sum += e
	}
	if s.Count > 0 {
		s.Mean = float64(s.Sum) / float64(s.Count)
	}
	return s
}
