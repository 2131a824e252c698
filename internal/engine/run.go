package engine

import (
	"errors"
	"fmt"

	"github.com/talgya/extended-life/internal/world"
)

var (
	// ErrNegativeSteps is returned when a run is asked to go backwards.
	ErrNegativeSteps = errors.New("step count must not be negative")
	// ErrForeignGeneration means a generation belongs to another game or board.
	ErrForeignGeneration = errors.New("generation does not belong to game")
	// ErrNotLatest means a step was requested from a generation that already
	// has a successor. History is append-only.
	ErrNotLatest = errors.New("generation is not the latest")
)

// Run advances game by steps ticks with no events, continuing from its latest
// generation. New generations are appended to the game's history.
func (e *Engine) Run(game *world.Game, steps int) (*world.Game, error) {
	return e.drive(game, steps, nil)
}

// RunSchedule advances game by steps ticks, applying the events in schedule at
// the steps they are keyed to. The schedule replaces the game's stored one.
//
// On error the run stops; generations appended before the failing step stay
// in the history and the returned error names the step.
func (e *Engine) RunSchedule(game *world.Game, steps int, schedule world.Schedule) (*world.Game, error) {
	if game == nil {
		return nil, ErrNilGame
	}
	game.Schedule = schedule.Clone()
	return e.drive(game, steps, game.Schedule)
}

func (e *Engine) drive(game *world.Game, steps int, schedule world.Schedule) (*world.Game, error) {
	if game == nil {
		return nil, ErrNilGame
	}
	if steps < 0 {
		return game, ErrNegativeSteps
	}
	if game.Board == nil {
		return game, ErrUnconfigured
	}
	current := game.Latest()
	if current == nil {
		return game, fmt.Errorf("game %s has no initial generation: %w", game.ID, ErrUnconfigured)
	}

	// Setup edits made after generation 0 was created are picked up here.
	if current.Step == 0 {
		if err := current.Snapshot(); err != nil {
			return game, fmt.Errorf("step 0: %w", err)
		}
	}

	for i := 0; i < steps; i++ {
		next, err := e.Step(game, current, schedule.At(current.Step))
		if err != nil {
			return game, err
		}
		current = next
	}

	if steps > 0 {
		e.logger.Debug("run complete",
			"game", game.ID,
			"steps", steps,
			"latest", current.Step,
			"alive", game.Board.CountAlive(current),
		)
	}
	return game, nil
}

// Step performs one iteration of the driving loop: apply event's eager effect
// and re-capture current, evolve, append to history, and notify callbacks.
func (e *Engine) Step(game *world.Game, current *world.Generation, event world.EventType) (*world.Generation, error) {
	if game == nil {
		return nil, ErrNilGame
	}
	if current == nil {
		return nil, ErrNilGeneration
	}
	// Everything below mutates live cells or history, so reject bad input first.
	if game.Board == nil || current.Board == nil {
		return nil, ErrUnconfigured
	}
	if current.Board != game.Board || current.Game != game {
		return nil, fmt.Errorf("step %d: %w", current.Step, ErrForeignGeneration)
	}
	if latest := game.Latest(); current != latest {
		return nil, fmt.Errorf("step %d: %w", current.Step, ErrNotLatest)
	}

	if event != world.NoEvent && event != world.Cataclysm {
		if err := applyEager(game.Board, event); err != nil {
			return nil, fmt.Errorf("step %d: apply %s: %w", current.Step, event, err)
		}
		if err := current.Resnapshot(); err != nil {
			return nil, fmt.Errorf("step %d: %w", current.Step, err)
		}
	}

	next, err := e.evolve(current, event)
	if err != nil {
		return nil, fmt.Errorf("step %d: %w", current.Step, err)
	}
	if err := game.AddGeneration(next); err != nil {
		return nil, fmt.Errorf("step %d: %w", current.Step, err)
	}

	summary := Summarize(current, next, event)
	e.logger.Debug("tick",
		"step", summary.Step,
		"event", summary.Event,
		"alive", summary.Alive,
		"born", summary.Born,
		"died", summary.Died,
		"predators", summary.Predators,
	)
	for _, f := range e.onStep {
		f(summary)
	}
	return next, nil
}
